// Package precedent retrieves reference clauses from the vector index by
// semantic similarity, filtered to the same clause and contract type.
package precedent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/genai"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
	"github.com/fyrsmithlabs/clauseguard/internal/vectorindex"
)

var tracer = otel.Tracer("clauseguard.precedent")

// DefaultLimit is the number of precedents retrieved per clause when the
// caller does not specify one.
const DefaultLimit = 3

// RetrieverConfig tunes retrieval behavior.
type RetrieverConfig struct {
	// FallbackClauseTypeOnly re-queries with the clause_type filter alone
	// when the conjunctive clause_type+contract_type filter matches
	// nothing. Useful when the corpus is sparse for some contract types.
	FallbackClauseTypeOnly bool
}

// Retriever embeds clause text and queries the index for the nearest
// type-matching precedents.
type Retriever struct {
	embedder genai.Embedder
	index    vectorindex.Index
	config   RetrieverConfig
	logger   *logging.Logger
}

// NewRetriever builds a retriever over the given embedder and index.
func NewRetriever(embedder genai.Embedder, index vectorindex.Index, cfg RetrieverConfig, logger *logging.Logger) *Retriever {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		config:   cfg,
		logger:   logger.Named("precedent"),
	}
}

// Retrieve returns up to limit precedents similar to clauseText, restricted
// to records matching both clauseType and contractType, ordered by
// descending similarity.
//
// An empty result set is a valid outcome and not an error. Embedding or
// index failures propagate; the caller decides the fallback policy.
func (r *Retriever) Retrieve(ctx context.Context, clauseText, clauseType, contractType string, limit int) ([]contract.PrecedentRecord, error) {
	ctx, span := tracer.Start(ctx, "precedent.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("clause_type", clauseType),
		attribute.String("contract_type", contractType),
	)

	if limit <= 0 {
		limit = DefaultLimit
	}

	vector, err := r.embedder.EmbedText(ctx, clauseText)
	if err != nil {
		return nil, fmt.Errorf("embedding clause text: %w", err)
	}

	filter := &vectorindex.Filter{Must: []vectorindex.Condition{
		{Field: "clause_type", Match: clauseType},
		{Field: "contract_type", Match: contractType},
	}}

	hits, err := r.index.Search(ctx, vector, uint64(limit), filter)
	if err != nil {
		return nil, fmt.Errorf("searching precedents: %w", err)
	}

	if len(hits) == 0 && r.config.FallbackClauseTypeOnly {
		r.logger.Debug(ctx, "no precedents for contract type, falling back to clause type only",
			zap.String("clause_type", clauseType),
			zap.String("contract_type", contractType),
		)
		fallback := &vectorindex.Filter{Must: []vectorindex.Condition{
			{Field: "clause_type", Match: clauseType},
		}}
		hits, err = r.index.Search(ctx, vector, uint64(limit), fallback)
		if err != nil {
			return nil, fmt.Errorf("searching precedents (fallback): %w", err)
		}
	}

	records := make([]contract.PrecedentRecord, 0, len(hits))
	for _, hit := range hits {
		records = append(records, recordFromHit(hit))
	}
	return records, nil
}

// recordFromHit maps a search hit's payload to a PrecedentRecord. Missing
// payload fields default to empty strings rather than failing.
func recordFromHit(hit *vectorindex.ScoredPoint) contract.PrecedentRecord {
	rec := contract.PrecedentRecord{
		ID:           hit.ID,
		ClauseType:   payloadString(hit.Payload, "clause_type"),
		ContractType: payloadString(hit.Payload, "contract_type"),
		RiskLevel:    payloadString(hit.Payload, "risk_level"),
		Jurisdiction: payloadString(hit.Payload, "jurisdiction"),
		Text:         payloadString(hit.Payload, "text"),
	}
	// Prefer the human-readable corpus ID when stored in the payload.
	if id := payloadString(hit.Payload, "precedent_id"); id != "" {
		rec.ID = id
	}
	return rec
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
