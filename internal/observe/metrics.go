// Package observe provides observability primitives for meetingctl:
// OpenTelemetry metrics with a Prometheus exporter bridge, plus the
// /metrics endpoint served while the ingest watcher runs.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all meetingctl
// metrics.
const meterName = "github.com/MrWong99/meetingctl"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscribeDuration tracks speech-to-text latency per job.
	TranscribeDuration metric.Float64Histogram

	// SummarizeDuration tracks summarizer latency per job.
	SummarizeDuration metric.Float64Histogram

	// ConvertDuration tracks audio re-encode latency per job.
	ConvertDuration metric.Float64Histogram

	// --- Counters ---

	// JobsProcessed counts successfully processed queue jobs.
	JobsProcessed metric.Int64Counter

	// JobsFailed counts failed queue jobs. Use with attribute:
	//   attribute.String("mode", "stop"|"dead_letter")
	JobsFailed metric.Int64Counter

	// FilesIngested counts audio files promoted into the queue by the
	// ingest watcher.
	FilesIngested metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries in seconds. The
// stages here are whole external-program runs, so the buckets reach into
// minutes rather than milliseconds.
var latencyBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation
// fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscribeDuration, err = m.Float64Histogram("meetingctl.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription per job."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SummarizeDuration, err = m.Float64Histogram("meetingctl.summarize.duration",
		metric.WithDescription("Latency of transcript summarization per job."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConvertDuration, err = m.Float64Histogram("meetingctl.convert.duration",
		metric.WithDescription("Latency of audio re-encoding per job."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.JobsProcessed, err = m.Int64Counter("meetingctl.jobs.processed",
		metric.WithDescription("Total queue jobs processed successfully."),
	); err != nil {
		return nil, err
	}
	if met.JobsFailed, err = m.Int64Counter("meetingctl.jobs.failed",
		metric.WithDescription("Total queue jobs that failed, by failure mode."),
	); err != nil {
		return nil, err
	}
	if met.FilesIngested, err = m.Int64Counter("meetingctl.files.ingested",
		metric.WithDescription("Total audio files promoted into the queue by ingest."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer.
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

// RecordJobFailure increments the failed-jobs counter with the failure
// mode attribute.
func (m *Metrics) RecordJobFailure(ctx context.Context, mode string) {
	m.JobsFailed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}
