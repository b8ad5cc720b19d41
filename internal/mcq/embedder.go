package mcq

import (
	"fmt"
	"log"

	"github.com/preppro/backend/internal/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// NewEmbedder builds the text embedder used for bank search and import.
// It returns nil when embeddings are disabled, in which case every request
// is answered by the LLM.
func NewEmbedder(cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case "", "none":
		log.Printf("[mcq] embeddings disabled, bank search off")
		return nil, nil
	case "openai":
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding provider %q requires an API key", cfg.Provider)
	}
	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(64))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	log.Printf("[mcq] embeddings via openai (%s)", model)
	return embedder, nil
}
