// Package observe provides application-wide observability primitives for
// hatsuon: OpenTelemetry metrics, tracing, structured logging, and gin
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hatsuon metrics.
const meterName = "github.com/hatsuonlab/hatsuon"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscodeDuration tracks ffmpeg normalization latency.
	TranscodeDuration metric.Float64Histogram

	// RecognizeDuration tracks cloud speech recognition latency.
	RecognizeDuration metric.Float64Histogram

	// GenerateDuration tracks diagnosis report generation latency.
	GenerateDuration metric.Float64Histogram

	// LogSinkDuration tracks spreadsheet append latency.
	LogSinkDuration metric.Float64Histogram

	// --- Counters ---

	// Analyses counts completed analyses. Use with attribute:
	//   attribute.String("outcome", "ok"|"no_speech"|"conversion_error"|"recognition_error")
	Analyses metric.Int64Counter

	// ProviderErrors counts upstream provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("stage", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveAnalyses tracks the number of analyses currently in flight.
	ActiveAnalyses metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets are generous because long-running recognition can take minutes.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscodeDuration, err = m.Float64Histogram("hatsuon.transcode.duration",
		metric.WithDescription("Latency of ffmpeg audio normalization."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecognizeDuration, err = m.Float64Histogram("hatsuon.recognize.duration",
		metric.WithDescription("Latency of cloud speech recognition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerateDuration, err = m.Float64Histogram("hatsuon.generate.duration",
		metric.WithDescription("Latency of diagnosis report generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LogSinkDuration, err = m.Float64Histogram("hatsuon.logsink.duration",
		metric.WithDescription("Latency of spreadsheet row appends."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Analyses, err = m.Int64Counter("hatsuon.analyses",
		metric.WithDescription("Total analyses by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("hatsuon.provider.errors",
		metric.WithDescription("Total upstream provider errors by provider and stage."),
	); err != nil {
		return nil, err
	}

	if met.ActiveAnalyses, err = m.Int64UpDownCounter("hatsuon.active_analyses",
		metric.WithDescription("Number of analyses currently in flight."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("hatsuon.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

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

// RecordAnalysis records a completed analysis with its outcome.
func (m *Metrics) RecordAnalysis(ctx context.Context, outcome string) {
	m.Analyses.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordProviderError records an upstream provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, stage string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage),
		),
	)
}
