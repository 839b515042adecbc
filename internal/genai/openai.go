package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedConfig configures the OpenAI-compatible embedder. It works
// against the OpenAI API and any OpenAI-compatible endpoint such as a local
// TEI server.
type OpenAIEmbedConfig struct {
	// BaseURL is the API base URL, e.g. https://api.openai.com/v1 or a
	// local TEI endpoint.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey is the API key. Optional for TEI.
	APIKey string

	// Dimension is the expected embedding dimension.
	Dimension int
}

// Validate validates the configuration.
func (c OpenAIEmbedConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// OpenAIEmbedder implements Embedder via langchaingo's embeddings
// abstraction over an OpenAI-compatible API.
type OpenAIEmbedder struct {
	embedder *embeddings.EmbedderImpl
	config   OpenAIEmbedConfig
}

// NewOpenAIEmbedder creates an embedder for the configured endpoint.
func NewOpenAIEmbedder(cfg OpenAIEmbedConfig) (*OpenAIEmbedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token; TEI ignores it.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIEmbedder{embedder: embedder, config: cfg}, nil
}

// EmbedText returns the embedding vector for a single text.
func (o *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	vector, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return normalizeVector(vector, o.config.Dimension)
}

// Dimension returns the configured embedding dimension.
func (o *OpenAIEmbedder) Dimension() int {
	return o.config.Dimension
}

var _ Embedder = (*OpenAIEmbedder)(nil)
