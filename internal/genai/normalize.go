package genai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// normalizeJSON turns raw model output into a clean JSON document. Models
// occasionally wrap JSON in markdown fences even when asked for a pure JSON
// MIME type; this is the single place that heterogeneity is absorbed.
func normalizeJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrCompletionFailed)
	}
	return json.RawMessage(trimmed), nil
}

// normalizeVector validates an embedding against the expected dimension and
// rejects degenerate all-zero vectors. One canonical []float32 comes out of
// every provider, whatever shape its SDK returns.
func normalizeVector(values []float32, wantDim int) ([]float32, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingFailed)
	}
	if wantDim > 0 && len(values) != wantDim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrEmbeddingFailed, len(values), wantDim)
	}
	allZero := true
	for _, v := range values {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, fmt.Errorf("%w: zero vector", ErrEmbeddingFailed)
	}
	return values, nil
}
