// Package extract converts grant and project documents into the structured
// mappings the rest of the system consumes.
package extract

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/beingthebridges/grantpal/internal/ai"
	"github.com/beingthebridges/grantpal/internal/errs"
	"github.com/beingthebridges/grantpal/internal/models"
)

const (
	ModeGrant   = "grant"
	ModeProject = "project"
)

// jsonObjectPattern matches the leftmost "{" through the rightmost "}" of a
// reply. The span is greedy, so two separate objects in one reply merge into
// a single invalid span and fail to parse.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Completer is the LLM dependency of the extractor.
type Completer interface {
	GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// GrantSaver persists serialized grant records.
type GrantSaver interface {
	InsertGrant(ctx context.Context, g models.GrantRecord, embedding []float32) (uuid.UUID, error)
}

// FileInput is an uploaded document.
type FileInput struct {
	Filename string
	Data     []byte
}

// Input is one extraction request: exactly one of File or URL, plus a mode.
type Input struct {
	File *FileInput
	URL  string
	Mode string
}

type Extractor struct {
	LLM     Completer
	Fetcher *PageFetcher
	Grants  GrantSaver
	// Embedder is optional; when set, stored grants get an embedding for
	// semantic search. Embedding failures are logged, never fatal.
	Embedder ai.Embedder
}

func NewExtractor(llm Completer, fetcher *PageFetcher, grants GrantSaver, embedder ai.Embedder) *Extractor {
	return &Extractor{LLM: llm, Fetcher: fetcher, Grants: grants, Embedder: embedder}
}

// Extract obtains text from the input, asks the LLM for the mode-specific
// structured mapping, and (in grant mode) persists the serialized record.
func (e *Extractor) Extract(ctx context.Context, in Input) (map[string]any, error) {
	if in.File == nil && in.URL == "" {
		return nil, errs.Input("no input provided")
	}

	var text string
	var err error
	if in.File != nil {
		text, err = TextFromFile(in.File.Filename, in.File.Data)
	} else {
		text, err = e.Fetcher.FetchText(in.URL)
	}
	if err != nil {
		return nil, err
	}

	text = Truncate(text)
	prompt := buildPrompt(in.Mode, text)

	parsed, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if in.Mode == ModeGrant && e.Grants != nil {
		if err := e.saveGrant(ctx, parsed, in.URL); err != nil {
			return nil, err
		}
	}

	return parsed, nil
}

// complete tries the provider's JSON response format first, then falls back
// to a plain completion parsed with the greedy brace scan.
func (e *Extractor) complete(ctx context.Context, prompt string) (map[string]any, error) {
	reply, err := e.LLM.GenerateCompletion(ctx, prompt, true)
	if err == nil {
		if parsed, parseErr := ParseReply(reply); parseErr == nil {
			return parsed, nil
		} else {
			log.Printf("JSON mode reply failed parsing: %v. Retrying with text mode...", parseErr)
		}
	} else {
		if errs.KindOf(err) == errs.KindConfig {
			return nil, err
		}
		log.Printf("JSON mode generation failed: %v. Retrying with text mode...", err)
	}

	reply, err = e.LLM.GenerateCompletion(ctx, prompt, false)
	if err != nil {
		return nil, err
	}
	return ParseReply(reply)
}

// ParseReply locates the embedded JSON object of an LLM reply and parses it.
func ParseReply(reply string) (map[string]any, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	jsonStr := jsonObjectPattern.FindString(cleaned)
	if jsonStr == "" {
		return nil, errs.Extraction("no valid JSON found in response")
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, errs.Wrap(errs.KindExtraction, err, "failed to parse JSON in response")
	}
	return parsed, nil
}

func (e *Extractor) saveGrant(ctx context.Context, grant map[string]any, sourceURL string) error {
	record := models.GrantRecord{
		Name:       fieldAsString(grant, "grant_name", "Unnamed Grant"),
		Timeline:   fieldAsString(grant, "timeline_condition", ""),
		Applicants: fieldAsString(grant, "eligible_applicants", ""),
		Budget:     fieldAsString(grant, "budget_policy", ""),
		SourceURL:  sourceURL,
	}

	var embedding []float32
	if e.Embedder != nil {
		seed := record.Name + "\n" + fieldAsString(grant, "grant_description", "")
		vec, err := e.Embedder.GenerateEmbedding(ctx, seed)
		if err != nil {
			log.Printf("Failed to embed grant %q: %v", record.Name, err)
		} else {
			embedding = vec
		}
	}

	if _, err := e.Grants.InsertGrant(ctx, record, embedding); err != nil {
		return err
	}
	return nil
}

// fieldAsString reads a mapping field as text. Structured values (lists,
// maps) are serialized to their JSON form: the store only accepts scalars.
func fieldAsString(m map[string]any, key, fallback string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			return fallback
		}
		return string(payload)
	}
}
