// Package genai is the boundary to external generative-AI services: the
// structured-completion model and the embedding model.
//
// The rest of the pipeline only sees the Completer and Embedder interfaces;
// provider SDK response shapes are normalized here and never leak out.
package genai

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrEmptyInput indicates empty input text.
	ErrEmptyInput = errors.New("empty input text")

	// ErrCompletionFailed indicates the completion service failed or
	// returned an unusable response.
	ErrCompletionFailed = errors.New("completion failed")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrInvalidConfig indicates invalid client configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Completer produces schema-conforming JSON from a prompt. Implementations
// must return syntactically valid JSON or an error; schema validation is the
// caller's concern.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}

// Embedder turns text into a fixed-dimension vector. Repeated calls on
// identical text must yield stable vectors; the precedent index is
// meaningless otherwise.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
