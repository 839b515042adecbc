package precedent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/vectorindex"
)

type captureIndex struct {
	vectorindex.Index

	ensuredSize uint64
	points      []*vectorindex.Point
	upsertErr   error
}

func (c *captureIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	c.ensuredSize = vectorSize
	return nil
}

func (c *captureIndex) Upsert(ctx context.Context, points []*vectorindex.Point) error {
	if c.upsertErr != nil {
		return c.upsertErr
	}
	c.points = append(c.points, points...)
	return nil
}

func TestSeedCorpusCoversTrackedLabels(t *testing.T) {
	byType := map[string]int{}
	for _, rec := range SeedCorpus {
		byType[rec.ClauseType]++
		assert.NotEmpty(t, rec.ID)
		assert.NotEmpty(t, rec.Text)
		assert.NotEmpty(t, rec.RiskLevel)
	}

	for label := range contract.TrackedLabels {
		assert.GreaterOrEqual(t, byType[string(label)], 2, "label %s needs contrasting precedents", label)
	}
}

func TestSeedUpsertsAllRecords(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	index := &captureIndex{}
	seeder := NewSeeder(embedder, index, nil)

	err := seeder.Seed(context.Background(), SeedCorpus)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), index.ensuredSize)
	assert.Equal(t, len(SeedCorpus), embedder.calls)
	require.Len(t, index.points, len(SeedCorpus))

	for i, point := range index.points {
		rec := SeedCorpus[i]
		assert.Equal(t, rec.ID, point.Payload["precedent_id"])
		assert.Equal(t, rec.ClauseType, point.Payload["clause_type"])
		assert.Equal(t, rec.Text, point.Payload["text"])
		assert.NotEmpty(t, point.ID)
		assert.NotEqual(t, rec.ID, point.ID, "point IDs are UUIDs, not corpus IDs")
	}
}

func TestSeedPointIDsAreDeterministic(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.5}}

	first := &captureIndex{}
	require.NoError(t, NewSeeder(embedder, first, nil).Seed(context.Background(), SeedCorpus[:2]))

	second := &captureIndex{}
	require.NoError(t, NewSeeder(embedder, second, nil).Seed(context.Background(), SeedCorpus[:2]))

	require.Len(t, second.points, 2)
	assert.Equal(t, first.points[0].ID, second.points[0].ID)
	assert.Equal(t, first.points[1].ID, second.points[1].ID)
	assert.NotEqual(t, first.points[0].ID, first.points[1].ID)
}

func TestSeedEmbeddingErrorAborts(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	index := &captureIndex{}
	seeder := NewSeeder(embedder, index, nil)

	err := seeder.Seed(context.Background(), SeedCorpus[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding precedent")
	assert.Empty(t, index.points)
}

func TestSeedUpsertErrorPropagates(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	index := &captureIndex{upsertErr: errors.New("index write failed")}
	seeder := NewSeeder(embedder, index, nil)

	err := seeder.Seed(context.Background(), SeedCorpus[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting precedents")
}
