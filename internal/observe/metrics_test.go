package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics_RecordsCounters(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics() error: %v", err)
	}

	ctx := context.Background()
	m.JobsProcessed.Add(ctx, 2)
	m.RecordJobFailure(ctx, "dead_letter")
	m.TranscribeDuration.Record(ctx, 12.5)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			names[met.Name] = true
		}
	}
	for _, want := range []string{
		"meetingctl.jobs.processed",
		"meetingctl.jobs.failed",
		"meetingctl.transcribe.duration",
	} {
		if !names[want] {
			t.Errorf("metric %q not collected (have %v)", want, names)
		}
	}
}
