// Package telemetry defines the counters/histograms/spans the core
// pipeline emits at defined points, kept behind an
// interface so orchestration logic stays testable without a real
// exporter.
package telemetry

import (
	"context"
	"time"
)

// Hooks is implemented once per process (NewProm) and passed
// explicitly to every component that needs to record something.
type Hooks interface {
	CounterInc(name string, labels map[string]string)
	CounterAdd(name string, value float64, labels map[string]string)
	Observe(name string, value float64, labels map[string]string)
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is closed when the unit of work it tracks finishes.
type Span interface {
	End()
	SetError(err error)
}

// Counter/histogram names shared across the pipeline's components.
const (
	MetricProcessingSuccess  = "processing_success_total"
	MetricProcessingFailure  = "processing_failure_total"
	MetricQueueEnqueue       = "queue_enqueue_total"
	MetricQueueDequeue       = "queue_dequeue_total"
	MetricPollingEmitted     = "polling_emitted_total"
	MetricPollingSkipped     = "polling_skipped_total"
	MetricPollingErrors      = "polling_errors_total"
	MetricBytesCopied        = "bytes_copied_total"
	MetricSinkWriteFailures  = "sink_write_failures_total"
	MetricRouterMatches      = "router_matches_total"
	MetricRouterFanoutCount  = "router_fanout_count"
	MetricIngress            = "ingress_total"

	HistogramProcessingDurationMs = "processing_duration_ms"
	HistogramSinkWriteLatencyMs   = "sink_write_latency_ms"

	SpanOrchestrate  = "file.orchestrate"
	SpanReaderOpen   = "reader.open"
	SpanSinkWrite    = "sink.write"
	SpanPipelineLife = "pipeline.lifetime"
)

// noop is used where no real Hooks has been wired (tests, CLI
// subcommands that don't run the pipeline).
type noop struct{}

func NewNoop() Hooks { return noop{} }

func (noop) CounterInc(string, map[string]string)             {}
func (noop) CounterAdd(string, float64, map[string]string)    {}
func (noop) Observe(string, float64, map[string]string)       {}
func (noop) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()           {}
func (noopSpan) SetError(error) {}

// ObserveSince records the milliseconds elapsed since start, so callers
// can do defer telemetry.ObserveSince(hooks, name, labels, time.Now()).
func ObserveSince(h Hooks, name string, labels map[string]string, start time.Time) {
	h.Observe(name, time.Since(start).Seconds()*1000, labels)
}
