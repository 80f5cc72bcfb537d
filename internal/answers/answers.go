// Package answers drafts responses to grant-application questions from a
// proposal document, one LLM round trip per question.
package answers

import (
	"context"
	"fmt"
	"strings"

	"github.com/beingthebridges/grantpal/internal/errs"
)

// DefaultMaxAnswerTokens bounds each drafted answer.
const DefaultMaxAnswerTokens = 300

// Completer is the LLM dependency of the generator.
type Completer interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Generator struct {
	LLM             Completer
	MaxAnswerTokens int
}

func NewGenerator(llm Completer) *Generator {
	return &Generator{LLM: llm, MaxAnswerTokens: DefaultMaxAnswerTokens}
}

// Generate answers each non-blank line of questionsText in order. Calls are
// strictly sequential; the first failure aborts the whole batch and no
// partial results are returned.
func (g *Generator) Generate(ctx context.Context, questionsText, proposalText string) ([]Answer, error) {
	questions := splitQuestions(questionsText)
	if len(questions) == 0 {
		return nil, errs.Input("no questions provided")
	}
	if strings.TrimSpace(proposalText) == "" {
		return nil, errs.Input("no proposal text provided")
	}

	results := make([]Answer, 0, len(questions))
	for _, q := range questions {
		answer, err := g.answerOne(ctx, q, proposalText)
		if err != nil {
			return nil, err
		}
		results = append(results, Answer{Question: q, Answer: answer})
	}
	return results, nil
}

// Regenerate answers exactly one question/proposal pair.
func (g *Generator) Regenerate(ctx context.Context, question, proposal string) (string, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(proposal) == "" {
		return "", errs.Input("missing question or proposal")
	}
	return g.answerOne(ctx, question, proposal)
}

func (g *Generator) answerOne(ctx context.Context, question, proposal string) (string, error) {
	prompt := fmt.Sprintf(
		"The following is a project proposal:\n%s\n\nPlease answer the following grant application question in a professional tone, based on the proposal:\nQuestion: %s\nAnswer:",
		proposal, question,
	)

	maxTokens := g.MaxAnswerTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxAnswerTokens
	}

	reply, err := g.LLM.GenerateText(ctx, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func splitQuestions(text string) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}
