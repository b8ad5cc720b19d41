package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/preppro/backend/internal/config"
)

// LLMClient is the interface every provider satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// NewClient builds the provider named by cfg.Provider and wraps it with retries.
// It also returns the model name for logging.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, string, error) {
	var (
		llm   LLMClient
		model string
		err   error
	)
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		model = cfg.AnthropicModel
		llm = NewAPIClient(cfg.AnthropicAPIKey, model)
	case "openai":
		model = cfg.OpenAIModel
		llm, err = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)
	case "gemini":
		model = cfg.GeminiModel
		llm, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
	case "cli":
		model = cfg.AnthropicModel
		llm = NewCLIClient(cfg.CLIPath, model)
	case "mock", "":
		model = "mock"
		llm = NewMockClient()
	default:
		return nil, "", fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
	if err != nil {
		return nil, "", err
	}
	log.Printf("[generator] using %s provider (%s)", cfg.Provider, model)

	if model == "mock" {
		return llm, model, nil
	}
	return WithRetry(llm, DefaultRetryConfig(cfg.MaxAttempts)), model, nil
}

// ── APIClient: Anthropic SDK ───────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(apiKey, model string) *APIClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("no text content in API response")}
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// ── MockClient: local development ──────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

var mockCountRe = regexp.MustCompile(`Generate (\d+) `)

// Generate answers MCQ prompts with JSON questions and anything else with a
// short bullet summary.
func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if systemPrompt == mcqSystemPrompt {
		n := 5
		if match := mockCountRe.FindStringSubmatch(userPrompt); match != nil {
			n, _ = strconv.Atoi(match[1])
		}
		return &LLMResponse{Content: buildMockMCQJSON(n), PromptTokens: 400, OutputTokens: 120 * n}, nil
	}
	summary := strings.Join([]string{
		"Summary: [Mock] The passage introduces its main idea and supports it with examples.",
		"- [Mock] Key point one",
		"- [Mock] Key point two",
		"- [Mock] Key point three",
		"- [Mock] Key point four",
		"- [Mock] Key point five",
		"Concepts: [Mock] main idea, supporting evidence",
	}, "\n")
	return &LLMResponse{Content: summary, PromptTokens: 300, OutputTokens: 80}, nil
}

func buildMockMCQJSON(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"questions":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb,
			`{"question_text":"[Mock] Question %d about the passage?","options":["Option A%d","Option B%d","Option C%d","Option D%d"],"correct_answer":"Option %c%d"}`,
			i+1, i+1, i+1, i+1, i+1, 'A'+rune(i%4), i+1)
	}
	sb.WriteString("]}")
	return sb.String()
}
