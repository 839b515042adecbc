package precedent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/clauseguard/internal/vectorindex"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Dimension() int { return len(f.vector) }

type fakeIndex struct {
	vectorindex.Index

	searches []*vectorindex.Filter
	results  [][]*vectorindex.ScoredPoint
	err      error
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, limit uint64, filter *vectorindex.Filter) ([]*vectorindex.ScoredPoint, error) {
	f.searches = append(f.searches, filter)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func scoredPoint(id string, payload map[string]any) *vectorindex.ScoredPoint {
	return &vectorindex.ScoredPoint{
		Point: vectorindex.Point{ID: id, Payload: payload},
		Score: 0.9,
	}
}

func TestRetrieveFiltersOnBothTypes(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	index := &fakeIndex{results: [][]*vectorindex.ScoredPoint{{
		scoredPoint("point-1", map[string]any{
			"precedent_id":  "liab_low",
			"clause_type":   "limitation_of_liability",
			"contract_type": "saas",
			"risk_level":    "low",
			"jurisdiction":  "England and Wales",
			"text":          "liability capped at twelve months",
		}),
	}}}
	retriever := NewRetriever(embedder, index, RetrieverConfig{}, nil)

	records, err := retriever.Retrieve(context.Background(), "some clause", "limitation_of_liability", "saas", 3)
	require.NoError(t, err)

	require.Len(t, index.searches, 1)
	require.NotNil(t, index.searches[0])
	assert.Equal(t, []vectorindex.Condition{
		{Field: "clause_type", Match: "limitation_of_liability"},
		{Field: "contract_type", Match: "saas"},
	}, index.searches[0].Must)

	require.Len(t, records, 1)
	assert.Equal(t, "liab_low", records[0].ID)
	assert.Equal(t, "low", records[0].RiskLevel)
	assert.Equal(t, "liability capped at twelve months", records[0].Text)
}

func TestRetrieveMissingPayloadFieldsDefaultEmpty(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	index := &fakeIndex{results: [][]*vectorindex.ScoredPoint{{
		scoredPoint("point-raw-id", map[string]any{"clause_type": "termination"}),
	}}}
	retriever := NewRetriever(embedder, index, RetrieverConfig{}, nil)

	records, err := retriever.Retrieve(context.Background(), "clause", "termination", "saas", 3)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "point-raw-id", records[0].ID)
	assert.Equal(t, "termination", records[0].ClauseType)
	assert.Empty(t, records[0].RiskLevel)
	assert.Empty(t, records[0].Jurisdiction)
	assert.Empty(t, records[0].Text)
}

func TestRetrieveEmptyResultIsNotError(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	index := &fakeIndex{}
	retriever := NewRetriever(embedder, index, RetrieverConfig{}, nil)

	records, err := retriever.Retrieve(context.Background(), "clause", "governing_law", "saas", 3)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, index.searches, 1)
}

func TestRetrieveEmbeddingErrorPropagates(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding backend down")}
	index := &fakeIndex{}
	retriever := NewRetriever(embedder, index, RetrieverConfig{}, nil)

	_, err := retriever.Retrieve(context.Background(), "clause", "termination", "saas", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding clause text")
	assert.Empty(t, index.searches)
}

func TestRetrieveSearchErrorPropagates(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	index := &fakeIndex{err: errors.New("index unavailable")}
	retriever := NewRetriever(embedder, index, RetrieverConfig{}, nil)

	_, err := retriever.Retrieve(context.Background(), "clause", "termination", "saas", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching precedents")
}

func TestRetrieveFallbackClauseTypeOnly(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		index := &fakeIndex{}
		retriever := NewRetriever(embedder, index, RetrieverConfig{}, nil)

		records, err := retriever.Retrieve(context.Background(), "clause", "termination", "employment", 3)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Len(t, index.searches, 1)
	})

	t.Run("re-queries on clause type alone when enabled", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		index := &fakeIndex{results: [][]*vectorindex.ScoredPoint{
			nil,
			{scoredPoint("point-1", map[string]any{
				"precedent_id": "term_low",
				"clause_type":  "termination",
				"text":         "thirty days notice",
			})},
		}}
		retriever := NewRetriever(embedder, index, RetrieverConfig{FallbackClauseTypeOnly: true}, nil)

		records, err := retriever.Retrieve(context.Background(), "clause", "termination", "employment", 3)
		require.NoError(t, err)

		require.Len(t, index.searches, 2)
		assert.Equal(t, []vectorindex.Condition{
			{Field: "clause_type", Match: "termination"},
			{Field: "contract_type", Match: "employment"},
		}, index.searches[0].Must)
		assert.Equal(t, []vectorindex.Condition{
			{Field: "clause_type", Match: "termination"},
		}, index.searches[1].Must)

		require.Len(t, records, 1)
		assert.Equal(t, "term_low", records[0].ID)
	})

	t.Run("no second query when first has hits", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		index := &fakeIndex{results: [][]*vectorindex.ScoredPoint{
			{scoredPoint("point-1", map[string]any{"clause_type": "termination"})},
		}}
		retriever := NewRetriever(embedder, index, RetrieverConfig{FallbackClauseTypeOnly: true}, nil)

		_, err := retriever.Retrieve(context.Background(), "clause", "termination", "saas", 3)
		require.NoError(t, err)
		assert.Len(t, index.searches, 1)
	})
}

func TestRetrieveDefaultsLimit(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	index := &fakeIndex{}
	retriever := NewRetriever(embedder, index, RetrieverConfig{}, nil)

	_, err := retriever.Retrieve(context.Background(), "clause", "termination", "saas", 0)
	require.NoError(t, err)
	assert.Len(t, index.searches, 1)
}
