package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/clauseguard/internal/logging"
)

// indexedPayloadFields are the payload fields the retriever filters on.
// Keyword indexes are created for each during EnsureCollection.
var indexedPayloadFields = []string{"clause_type", "contract_type"}

// QdrantConfig configures the Qdrant gRPC index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address. Default: "localhost".
	Host string

	// Port is the Qdrant gRPC port (not the HTTP REST port). Default: 6334.
	Port int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// APIKey authenticates against Qdrant Cloud. Empty for local servers.
	APIKey string

	// Collection is the collection holding the precedent corpus.
	Collection string

	// RequestTimeout bounds individual requests. Default: 30s.
	RequestTimeout time.Duration

	// MaxRetries is the retry budget for transient failures. Default: 3.
	MaxRetries int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	return nil
}

// QdrantIndex implements Index over Qdrant's official Go client.
type QdrantIndex struct {
	client *qdrant.Client
	config QdrantConfig
	logger *logging.Logger
}

// NewQdrantIndex connects to Qdrant and verifies the connection.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig, logger *logging.Logger) (*QdrantIndex, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	qdrantConfig := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	}
	if !cfg.UseTLS {
		qdrantConfig.GrpcOptions = append(qdrantConfig.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	client, err := qdrant.NewClient(qdrantConfig)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client: client,
		config: cfg,
		logger: logger.Named("qdrant"),
	}

	healthCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	if err := idx.Health(healthCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	logger.Info(ctx, "qdrant connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("collection", cfg.Collection),
	)

	return idx, nil
}

// EnsureCollection creates the precedent collection with cosine distance and
// keyword payload indexes on the filterable fields. Idempotent.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	ctx, cancel := context.WithTimeout(ctx, q.config.RequestTimeout)
	defer cancel()

	exists, err := q.client.CollectionExists(ctx, q.config.Collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}

	if !exists {
		err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection: %w", err)
		}
		q.logger.Info(ctx, "created collection",
			zap.String("collection", q.config.Collection),
			zap.Uint64("vector_size", vectorSize),
		)
	}

	for _, field := range indexedPayloadFields {
		_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: q.config.Collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			// Index may already exist; anything else is a real failure.
			if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
				continue
			}
			return fmt.Errorf("creating payload index on %s: %w", field, err)
		}
	}

	return nil
}

// Upsert inserts or replaces precedent points.
func (q *QdrantIndex) Upsert(ctx context.Context, points []*Point) error {
	ctx, cancel := context.WithTimeout(ctx, q.config.RequestTimeout)
	defer cancel()

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}

	return q.withRetry(ctx, func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.config.Collection,
			Points:         qdrantPoints,
		})
		return err
	})
}

// Search runs a filtered k-NN query and returns hits in descending
// similarity order with payloads attached.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, q.config.RequestTimeout)
	defer cancel()

	var results []*qdrant.ScoredPoint
	err := q.withRetry(ctx, func() error {
		res, err := q.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: q.config.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         toQdrantFilter(filter),
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	hits := make([]*ScoredPoint, len(results))
	for i, r := range results {
		hits[i] = &ScoredPoint{
			Point: Point{
				ID:      pointIDString(r.Id),
				Payload: payloadMap(r.Payload),
			},
			Score: r.Score,
		}
	}
	return hits, nil
}

// Health checks connectivity to the Qdrant server.
func (q *QdrantIndex) Health(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Close closes the client connection.
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// withRetry retries an operation with exponential backoff on transient gRPC
// codes.
func (q *QdrantIndex) withRetry(ctx context.Context, op func() error) error {
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= q.config.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) || attempt == q.config.MaxRetries {
			break
		}

		q.logger.Debug(ctx, "retrying qdrant operation",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return lastErr
}

// isTransient reports whether a gRPC error should be retried.
func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func toQdrantFilter(filter *Filter) *qdrant.Filter {
	if filter == nil || len(filter.Must) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter.Must))
	for _, cond := range filter.Must {
		must = append(must, qdrant.NewMatch(cond.Field, cond.Match))
	}
	return &qdrant.Filter{Must: must}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func payloadMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		default:
			out[k] = v.String()
		}
	}
	return out
}

var _ Index = (*QdrantIndex)(nil)
