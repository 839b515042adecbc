// Package config provides configuration loading for clauseguard.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/clauseguard/internal/logging"
)

// ErrInvalidConfig indicates a configuration value that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Server     ServerConfig   `koanf:"server"`
	Logging    logging.Config `koanf:"logging"`
	Gemini     GeminiConfig   `koanf:"gemini"`
	Embeddings EmbedConfig    `koanf:"embeddings"`
	Qdrant     QdrantConfig   `koanf:"qdrant"`
	Analysis   AnalysisConfig `koanf:"analysis"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `koanf:"addr"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// MaxUploadBytes caps the size of uploaded contract documents.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// GeminiConfig configures the structured-completion service.
type GeminiConfig struct {
	APIKey  Secret   `koanf:"api_key"`
	Model   string   `koanf:"model"`
	Timeout Duration `koanf:"timeout"`
	// RateLimit is requests per second to the completion API.
	RateLimit float64 `koanf:"rate_limit"`
}

// EmbedConfig configures the embedding service.
type EmbedConfig struct {
	// Provider selects the embedding backend: "gemini" or "openai".
	// "openai" covers any OpenAI-compatible endpoint (TEI included).
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   Secret `koanf:"api_key"`
	// Dimension must match the vector size of the precedent collection.
	Dimension int `koanf:"dimension"`
}

// QdrantConfig configures the vector index.
type QdrantConfig struct {
	Host           string   `koanf:"host"`
	Port           int      `koanf:"port"`
	UseTLS         bool     `koanf:"use_tls"`
	APIKey         Secret   `koanf:"api_key"`
	Collection     string   `koanf:"collection"`
	RequestTimeout Duration `koanf:"request_timeout"`
	MaxRetries     int      `koanf:"max_retries"`
	// Embedded switches to the in-process chromem index for local
	// development; no Qdrant server needed.
	Embedded bool `koanf:"embedded"`
}

// AnalysisConfig tunes the clause analysis pipeline.
type AnalysisConfig struct {
	// PrecedentLimit is the number of precedents retrieved per clause.
	PrecedentLimit int `koanf:"precedent_limit"`
	// Concurrency bounds parallel clause syntheses within one request.
	Concurrency int `koanf:"concurrency"`
	// FallbackClauseTypeOnly re-queries on clause_type alone when the
	// conjunctive clause_type+contract_type filter matches nothing.
	FallbackClauseTypeOnly bool `koanf:"fallback_clause_type_only"`
}

// NewDefault returns the built-in defaults before file/env overrides.
func NewDefault() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
			MaxUploadBytes:  10 << 20,
		},
		Logging: *logging.NewDefaultConfig(),
		Gemini: GeminiConfig{
			Model:     "gemini-1.5-pro",
			Timeout:   Duration(60 * time.Second),
			RateLimit: 2,
		},
		Embeddings: EmbedConfig{
			Provider:  "gemini",
			Model:     "text-embedding-004",
			Dimension: 768,
		},
		Qdrant: QdrantConfig{
			Host:           "localhost",
			Port:           6334,
			Collection:     "contract_precedents",
			RequestTimeout: Duration(30 * time.Second),
			MaxRetries:     3,
		},
		Analysis: AnalysisConfig{
			PrecedentLimit: 3,
			Concurrency:    3,
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr required", ErrInvalidConfig)
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("%w: gemini.model required", ErrInvalidConfig)
	}
	switch c.Embeddings.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%w: unknown embeddings.provider %q", ErrInvalidConfig, c.Embeddings.Provider)
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("%w: embeddings.dimension must be positive", ErrInvalidConfig)
	}
	if !c.Qdrant.Embedded {
		if c.Qdrant.Host == "" {
			return fmt.Errorf("%w: qdrant.host required", ErrInvalidConfig)
		}
		if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
			return fmt.Errorf("%w: invalid qdrant.port %d", ErrInvalidConfig, c.Qdrant.Port)
		}
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("%w: qdrant.collection required", ErrInvalidConfig)
	}
	if c.Analysis.PrecedentLimit <= 0 {
		return fmt.Errorf("%w: analysis.precedent_limit must be positive", ErrInvalidConfig)
	}
	if c.Analysis.Concurrency <= 0 {
		return fmt.Errorf("%w: analysis.concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}
