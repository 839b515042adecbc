package vectorindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex implements Index over an in-process chromem-go collection.
// It needs no external server, which makes it the default for local
// development and the test double of choice for retrieval tests.
type ChromemIndex struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

// NewChromemIndex creates an empty in-memory index.
func NewChromemIndex(collection string) (*ChromemIndex, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	return &ChromemIndex{
		db:   chromem.NewDB(),
		name: collection,
	}, nil
}

// EnsureCollection creates the backing chromem collection. The vector size
// is implied by the first upserted embedding; chromem does not pre-declare it.
func (c *ChromemIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collection != nil {
		return nil
	}
	col, err := c.db.GetOrCreateCollection(c.name, nil, rejectEmbeddingFunc)
	if err != nil {
		return fmt.Errorf("creating chromem collection: %w", err)
	}
	c.collection = col
	return nil
}

// rejectEmbeddingFunc guards against accidental text-based queries: every
// vector entering this index is computed upstream by the Embedder.
func rejectEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("chromem index only accepts precomputed embeddings")
}

// Upsert stores points with their payloads as chromem document metadata.
func (c *ChromemIndex) Upsert(ctx context.Context, points []*Point) error {
	col, err := c.ensure(ctx)
	if err != nil {
		return err
	}

	for _, p := range points {
		metadata := make(map[string]string, len(p.Payload))
		var content string
		for k, v := range p.Payload {
			if k == "text" {
				content = fmt.Sprint(v)
				continue
			}
			metadata[k] = fmt.Sprint(v)
		}
		err := col.AddDocument(ctx, chromem.Document{
			ID:        p.ID,
			Metadata:  metadata,
			Embedding: p.Vector,
			Content:   content,
		})
		if err != nil {
			return fmt.Errorf("adding document %s: %w", p.ID, err)
		}
	}
	return nil
}

// Search runs a filtered k-NN query against the in-memory collection.
func (c *ChromemIndex) Search(ctx context.Context, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error) {
	col, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem rejects nResults greater than the collection size.
	n := int(limit)
	if n > count {
		n = count
	}

	where := make(map[string]string)
	if filter != nil {
		for _, cond := range filter.Must {
			where[cond.Field] = cond.Match
		}
	}

	results, err := col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	hits := make([]*ScoredPoint, 0, len(results))
	for _, r := range results {
		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload["text"] = r.Content
		hits = append(hits, &ScoredPoint{
			Point: Point{ID: r.ID, Payload: payload},
			Score: r.Similarity,
		})
	}
	return hits, nil
}

// Health always succeeds for the in-process index.
func (c *ChromemIndex) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op; chromem holds no external resources here.
func (c *ChromemIndex) Close() error {
	return nil
}

func (c *ChromemIndex) ensure(ctx context.Context) (*chromem.Collection, error) {
	c.mu.Lock()
	col := c.collection
	c.mu.Unlock()
	if col != nil {
		return col, nil
	}
	if err := c.EnsureCollection(ctx, 0); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection, nil
}

var _ Index = (*ChromemIndex)(nil)
