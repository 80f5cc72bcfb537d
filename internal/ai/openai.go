package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beingthebridges/grantpal/internal/errs"
)

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// OpenAIClient talks to an OpenAI-compatible chat/embeddings API.
// Completions are requested at temperature 0 for determinism.
type OpenAIClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
	HTTP       *http.Client
}

func NewOpenAIClient(baseURL, apiKey, model, embedModel string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		EmbedModel: embedModel,
		HTTP:       &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateCompletion issues a single-turn completion. jsonMode requests the
// provider's JSON object response format.
func (c *OpenAIClient) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := chatRequest{
		Model:       c.Model,
		Temperature: 0,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return c.chat(ctx, req)
}

// GenerateText issues a single-turn completion capped at maxTokens.
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.chat(ctx, chatRequest{
		Model:       c.Model,
		Temperature: 0,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
	})
}

func (c *OpenAIClient) chat(ctx context.Context, reqBody chatRequest) (string, error) {
	if c.APIKey == "" {
		return "", errs.Config("OPENAI_API_KEY is not configured")
	}

	var parsed chatResponse
	if err := c.post(ctx, "/v1/chat/completions", reqBody, &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", errs.Upstream(fmt.Errorf("%s", parsed.Error.Message), "llm request rejected")
	}
	if len(parsed.Choices) == 0 {
		return "", errs.Upstream(fmt.Errorf("empty choices"), "llm returned no completion")
	}
	return parsed.Choices[0].Message.Content, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *OpenAIClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.APIKey == "" {
		return nil, errs.Config("OPENAI_API_KEY is not configured")
	}

	var parsed embeddingResponse
	if err := c.post(ctx, "/v1/embeddings", embeddingRequest{Model: c.EmbedModel, Input: text}, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, errs.Upstream(fmt.Errorf("empty data"), "embedding response had no vectors")
	}
	return parsed.Data[0].Embedding, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errs.Upstream(err, "llm request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.Upstream(fmt.Errorf("status %d: %s", resp.StatusCode, snippet), "llm returned error status")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Upstream(err, "failed to decode llm response")
	}
	return nil
}
