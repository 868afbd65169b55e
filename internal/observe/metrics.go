// Package observe provides application-wide observability primitives for
// matchherald: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all matchherald metrics.
const meterName = "matchherald"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use since the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// FetchDuration tracks stats API fetch latency per tracked identity.
	FetchDuration metric.Float64Histogram

	// GenerationDuration tracks commentary generation latency.
	GenerationDuration metric.Float64Histogram

	// DeliveryDuration tracks report delivery latency.
	DeliveryDuration metric.Float64Histogram

	// --- Counters ---

	// PollPasses counts completed polling passes. Use with attribute:
	//   attribute.String("status", "ok"|"panic")
	PollPasses metric.Int64Counter

	// MatchesDiscovered counts new matches surviving dedup.
	MatchesDiscovered metric.Int64Counter

	// MatchesReported counts successfully delivered match reports.
	MatchesReported metric.Int64Counter

	// --- Error counters ---

	// FetchErrors counts failed stats API fetches. Use with attribute:
	//   attribute.String("steam_id", ...)
	FetchErrors metric.Int64Counter

	// GenerationFailures counts commentary generation calls that ended in
	// fallback text. Use with attribute: attribute.String("provider", ...)
	GenerationFailures metric.Int64Counter

	// DeliveryFailures counts failed report deliveries.
	DeliveryFailures metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote API round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.FetchDuration, err = m.Float64Histogram("matchherald.fetch.duration",
		metric.WithDescription("Latency of stats API fetches."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerationDuration, err = m.Float64Histogram("matchherald.generation.duration",
		metric.WithDescription("Latency of commentary generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DeliveryDuration, err = m.Float64Histogram("matchherald.delivery.duration",
		metric.WithDescription("Latency of report delivery."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.PollPasses, err = m.Int64Counter("matchherald.poller.passes",
		metric.WithDescription("Total polling passes by completion status."),
	); err != nil {
		return nil, err
	}
	if met.MatchesDiscovered, err = m.Int64Counter("matchherald.matches.discovered",
		metric.WithDescription("Total new matches discovered after dedup."),
	); err != nil {
		return nil, err
	}
	if met.MatchesReported, err = m.Int64Counter("matchherald.matches.reported",
		metric.WithDescription("Total match reports delivered."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.FetchErrors, err = m.Int64Counter("matchherald.fetch.errors",
		metric.WithDescription("Total failed stats API fetches by Steam id."),
	); err != nil {
		return nil, err
	}
	if met.GenerationFailures, err = m.Int64Counter("matchherald.generation.failures",
		metric.WithDescription("Total generation calls that fell back to templated text."),
	); err != nil {
		return nil, err
	}
	if met.DeliveryFailures, err = m.Int64Counter("matchherald.delivery.failures",
		metric.WithDescription("Total failed report deliveries."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("matchherald.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordPass records one completed polling pass with the given status
// ("ok" or "panic").
func (m *Metrics) RecordPass(ctx context.Context, status string) {
	m.PollPasses.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordFetchError records one failed stats API fetch.
func (m *Metrics) RecordFetchError(ctx context.Context, steamID string) {
	m.FetchErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("steam_id", steamID)),
	)
}

// RecordGenerationFailure records one generation call that ended in fallback text.
func (m *Metrics) RecordGenerationFailure(ctx context.Context, provider string) {
	m.GenerationFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordDeliveryFailure records one failed report delivery.
func (m *Metrics) RecordDeliveryFailure(ctx context.Context) {
	m.DeliveryFailures.Add(ctx, 1)
}
