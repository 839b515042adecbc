package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gemini "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/fyrsmithlabs/clauseguard/internal/logging"
)

const (
	defaultGeminiModel = "gemini-1.5-pro"
	defaultEmbedModel  = "text-embedding-004"
	defaultTimeout     = 60 * time.Second
	defaultRateLimit   = 2 // requests per second
	defaultBurst       = 4
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second

	// completionTemperature keeps verdicts consistent across runs.
	completionTemperature = 0.2
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	// APIKey authenticates against the Generative Language API. Required.
	APIKey string

	// Model is the completion model name. Default: gemini-1.5-pro.
	Model string

	// EmbedModel is the embedding model name. Default: text-embedding-004.
	EmbedModel string

	// Dimension is the expected embedding dimension. Default: 768
	// (text-embedding-004).
	Dimension int

	// Timeout bounds each API call. Default: 60s.
	Timeout time.Duration

	// RateLimit is requests per second. Default: 2.
	RateLimit float64

	// MaxRetries is the retry budget for transient API failures. Default: 3.
	MaxRetries int
}

// ApplyDefaults sets default values for unset fields.
func (c *GeminiConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = defaultGeminiModel
	}
	if c.EmbedModel == "" {
		c.EmbedModel = defaultEmbedModel
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

// Validate validates the configuration.
func (c GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: gemini API key required", ErrInvalidConfig)
	}
	return nil
}

// GeminiClient implements Completer and Embedder against the Google
// Generative Language API.
type GeminiClient struct {
	client  *gemini.Client
	config  GeminiConfig
	limiter *rate.Limiter
	logger  *logging.Logger
	metrics *Metrics
}

// NewGeminiClient creates a Gemini-backed completion and embedding client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *logging.Logger) (*GeminiClient, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client, err := gemini.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), defaultBurst),
		logger:  logger.Named("gemini"),
		metrics: NewMetrics(),
	}, nil
}

// CompleteJSON sends system instructions and user content to the completion
// model and returns the response body as validated raw JSON.
func (g *GeminiClient) CompleteJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	if strings.TrimSpace(user) == "" {
		return nil, ErrEmptyInput
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	model := g.client.GenerativeModel(g.config.Model)
	model.SetTemperature(completionTemperature)
	model.ResponseMIMEType = "application/json"
	if system != "" {
		model.SystemInstruction = &gemini.Content{Parts: []gemini.Part{gemini.Text(system)}}
	}

	start := time.Now()
	var raw json.RawMessage
	err := g.withRetry(ctx, func(callCtx context.Context) error {
		resp, err := model.GenerateContent(callCtx, gemini.Text(user))
		if err != nil {
			return err
		}
		text, err := candidateText(resp)
		if err != nil {
			return err
		}
		raw, err = normalizeJSON(text)
		return err
	})
	g.metrics.RecordCall(ctx, "complete_json", g.config.Model, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	return raw, nil
}

// EmbedText returns the embedding vector for a single text.
func (g *GeminiClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	em := g.client.EmbeddingModel(g.config.EmbedModel)

	start := time.Now()
	var values []float32
	err := g.withRetry(ctx, func(callCtx context.Context) error {
		resp, err := em.EmbedContent(callCtx, gemini.Text(text))
		if err != nil {
			return err
		}
		if resp == nil || resp.Embedding == nil {
			return fmt.Errorf("%w: nil embedding in response", ErrEmbeddingFailed)
		}
		values, err = normalizeVector(resp.Embedding.Values, g.config.Dimension)
		return err
	})
	g.metrics.RecordCall(ctx, "embed_text", g.config.EmbedModel, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return values, nil
}

// Dimension returns the configured embedding dimension.
func (g *GeminiClient) Dimension() int {
	return g.config.Dimension
}

// Close releases the underlying client connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// withRetry runs op with per-call timeout and exponential backoff on
// transient API errors.
func (g *GeminiClient) withRetry(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	backoff := defaultBaseBackoff

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Debug(ctx, "retrying gemini call",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		err := op(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable reports whether an API error is worth retrying: rate limits,
// server errors, and timeouts.
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// candidateText extracts the text parts of the first candidate. SDK response
// shapes vary across versions; this is the single normalization point.
func candidateText(resp *gemini.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("candidate has no content parts")
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(gemini.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("candidate contains no text parts")
	}
	return sb.String(), nil
}

var (
	_ Completer = (*GeminiClient)(nil)
	_ Embedder  = (*GeminiClient)(nil)
)
