package genai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records call counts and latency for external generative-AI calls.
type Metrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates metrics instruments on the global meter provider.
func NewMetrics() *Metrics {
	meter := otel.Meter("clauseguard.genai")

	calls, _ := meter.Int64Counter("genai.calls",
		metric.WithDescription("Number of generative-AI API calls"),
	)
	duration, _ := meter.Float64Histogram("genai.call.duration",
		metric.WithDescription("Generative-AI API call duration"),
		metric.WithUnit("s"),
	)

	return &Metrics{calls: calls, duration: duration}
}

// RecordCall records one API call with its operation, model and outcome.
func (m *Metrics) RecordCall(ctx context.Context, operation, model string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("model", model),
		attribute.String("status", status),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
