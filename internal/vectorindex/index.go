// Package vectorindex is the boundary to the approximate-nearest-neighbor
// index holding the precedent corpus.
//
// Two implementations are provided: a Qdrant gRPC client for deployments and
// an embedded chromem index for local development and tests.
package vectorindex

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid index configuration.
	ErrInvalidConfig = errors.New("invalid index configuration")

	// ErrQueryFailed indicates a search against the index failed.
	ErrQueryFailed = errors.New("index query failed")
)

// Point is a vector with its payload, keyed by ID.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit: the stored point plus its similarity score.
// Higher scores mean closer matches under cosine similarity.
type ScoredPoint struct {
	Point
	Score float32
}

// Condition is an exact-match constraint on a payload field.
type Condition struct {
	Field string
	Match string
}

// Filter restricts a search to points whose payload satisfies every Must
// condition.
type Filter struct {
	Must []Condition
}

// Index is a metadata-filtered k-NN search engine over stored vectors.
// Implementations must preserve descending-similarity order in Search
// results and treat an empty result set as a valid outcome.
type Index interface {
	// EnsureCollection creates the backing collection and its payload
	// indexes if they do not already exist. Idempotent.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, points []*Point) error

	// Search returns up to limit points nearest to vector, restricted by
	// filter, ordered by descending similarity.
	Search(ctx context.Context, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error)

	// Health checks connectivity to the index.
	Health(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
