package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"hatsuon.transcode.duration", m.TranscodeDuration},
		{"hatsuon.recognize.duration", m.RecognizeDuration},
		{"hatsuon.generate.duration", m.GenerateDuration},
		{"hatsuon.logsink.duration", m.LogSinkDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 45.6)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("metric %q count = %d, want 2", tc.name, got)
			}
		})
	}
}

func TestRecordAnalysisOutcomes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnalysis(ctx, "ok")
	m.RecordAnalysis(ctx, "ok")
	m.RecordAnalysis(ctx, "no_speech")

	rm := collect(t, reader)
	met := findMetric(rm, "hatsuon.analyses")
	if met == nil {
		t.Fatal("hatsuon.analyses not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("hatsuon.analyses is not a sum")
	}
	// One data point per distinct outcome attribute.
	if len(sum.DataPoints) != 2 {
		t.Fatalf("data points = %d, want 2", len(sum.DataPoints))
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total analyses = %d, want 3", total)
	}
}

func TestRecordProviderError(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordProviderError(context.Background(), "gemini-1.5-flash", "generate")

	rm := collect(t, reader)
	met := findMetric(rm, "hatsuon.provider.errors")
	if met == nil {
		t.Fatal("hatsuon.provider.errors not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("provider errors has no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("value = %d, want 1", sum.DataPoints[0].Value)
	}
}

func TestActiveAnalysesUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveAnalyses.Add(ctx, 1)
	m.ActiveAnalyses.Add(ctx, 1)
	m.ActiveAnalyses.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "hatsuon.active_analyses")
	if met == nil {
		t.Fatal("hatsuon.active_analyses not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("active analyses has no data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("value = %d, want 1", got)
	}
}
