// Package generator produces study summaries and multiple-choice questions
// with an LLM.
package generator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/preppro/backend/internal/config"
	"github.com/preppro/backend/internal/models"
)

// Generator wraps an LLMClient with the summary and MCQ prompts.
type Generator struct {
	llm      LLMClient
	model    string
	timeout  time.Duration
	verifier *Verifier
}

type Option func(*Generator)

func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithVerification enables a second pass that answers each question and
// drops disagreements.
func WithVerification() Option {
	return func(g *Generator) { g.verifier = NewVerifier(g.llm) }
}

func NewGenerator(llm LLMClient, model string, opts ...Option) *Generator {
	g := &Generator{llm: llm, model: model}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New builds a Generator from configuration.
func New(ctx context.Context, cfg config.LLMConfig) (*Generator, error) {
	llm, model, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithTimeout(cfg.Timeout)}
	if cfg.Verify {
		opts = append(opts, WithVerification())
	}
	return NewGenerator(llm, model, opts...), nil
}

func (g *Generator) ModelName() string {
	return g.model
}

func (g *Generator) generate(ctx context.Context, system, user string) (*LLMResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.llm.Generate(ctx, system, user)
}

// Summarize returns the non-empty lines of a summary of text.
func (g *Generator) Summarize(ctx context.Context, text string) ([]string, error) {
	resp, err := g.generate(ctx, summarySystemPrompt, BuildSummaryPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}
	return ParseSummary(resp.Content), nil
}

// GenerateMCQs returns at most count structurally valid questions about text.
func (g *Generator) GenerateMCQs(ctx context.Context, text string, count int, difficulty models.Difficulty) ([]models.GeneratedMCQ, error) {
	start := time.Now()
	resp, err := g.generate(ctx, mcqSystemPrompt, BuildMCQPrompt(text, count, difficulty))
	if err != nil {
		return nil, fmt.Errorf("generate MCQs: %w", err)
	}

	qs, err := ParseMCQs(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse MCQs: %w", err)
	}
	qs = FilterMCQs(qs)
	if g.verifier != nil {
		qs = g.verifier.Verify(ctx, text, qs)
	}
	if len(qs) > count {
		qs = qs[:count]
	}

	log.Printf("[generator] %d/%d MCQs from %s in %v (tokens in=%d out=%d)",
		len(qs), count, g.model, time.Since(start).Round(time.Millisecond), resp.PromptTokens, resp.OutputTokens)
	return qs, nil
}
