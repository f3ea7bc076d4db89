package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/bikenavi/bikenavi/internal/telemetry"

// ProviderMetrics records calls to upstream providers (Mapbox, GBFS feeds).
// It satisfies resilience.CallObserver.
type ProviderMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// NewProviderMetrics creates the instruments on the global meter provider.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{duration: duration, total: total}, nil
}

// ObserveCall records one provider call.
func (m *ProviderMetrics) ObserveCall(provider string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.Bool("error", err != nil),
	)
	ctx := context.Background()
	m.duration.Record(ctx, d.Seconds(), attrs)
	m.total.Add(ctx, 1, attrs)
}
