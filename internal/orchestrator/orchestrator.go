// Package orchestrator drives one dequeued FileEvent through
// validation, idempotency gating, routing, sink fan-out, source
// deletion, and notification: Received -> Validated -> Deduped ->
// Routed -> Reading -> Writing(i) -> Deleting -> Notifying ->
// Acked/DeadLettered.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/littleandi/filehorizon/internal/config"
	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/eventvalidate"
	"github.com/littleandi/filehorizon/internal/idempotency"
	"github.com/littleandi/filehorizon/internal/logging"
	"github.com/littleandi/filehorizon/internal/notifier"
	"github.com/littleandi/filehorizon/internal/protocol"
	"github.com/littleandi/filehorizon/internal/queue"
	"github.com/littleandi/filehorizon/internal/router"
	"github.com/littleandi/filehorizon/internal/sink"
	"github.com/littleandi/filehorizon/internal/telemetry"
)

// State names one step of the orchestration state machine, logged at
// every transition for replay debugging.
type State string

const (
	StateReceived     State = "Received"
	StateValidated    State = "Validated"
	StateDeduped      State = "Deduped"
	StateRouted       State = "Routed"
	StateReading      State = "Reading"
	StateWriting      State = "Writing"
	StateDeleting     State = "Deleting"
	StateNotifying    State = "Notifying"
	StateAcked        State = "Acked"
	StateDeadLettered State = "DeadLettered"
)

// SourceResolver returns a connected protocol.Client able to read the
// event's source.
type SourceResolver interface {
	ResolveSource(ctx context.Context, event domain.FileEvent) (protocol.Client, error)
}

// Orchestrator wires every collaborator the per-event pipeline needs.
type Orchestrator struct {
	sources     SourceResolver
	validator   *eventvalidate.Validator
	idempotency idempotency.Store
	router      *router.Router
	sinks       *sink.Registry
	notifier    *notifier.Notifier
	hooks       telemetry.Hooks
	retry       config.RetryConfig
	failPipelineOnNotifyFailure bool
}

func New(
	sources SourceResolver,
	validator *eventvalidate.Validator,
	idem idempotency.Store,
	rt *router.Router,
	sinks *sink.Registry,
	n *notifier.Notifier,
	hooks telemetry.Hooks,
	retry config.RetryConfig,
	failPipelineOnNotifyFailure bool,
) *Orchestrator {
	return &Orchestrator{
		sources:                     sources,
		validator:                   validator,
		idempotency:                 idem,
		router:                      rt,
		sinks:                       sinks,
		notifier:                    n,
		hooks:                       hooks,
		retry:                       retry,
		failPipelineOnNotifyFailure: failPipelineOnNotifyFailure,
	}
}

// Process runs one event through the full state machine and acks or
// nacks it on delivery, never returning an error for ordinary event
// failures — those are recorded as DestinationResults and dead-letter
// envelopes instead. If the idempotency claim itself fails, the
// delivery is neither acked nor nacked.
func (o *Orchestrator) Process(ctx context.Context, delivery queue.Delivery) {
	event := delivery.Event
	start := time.Now()

	ctx = logging.With(ctx, "eventId", event.ID, "sourcePath", event.Metadata.SourcePath)
	ctx, span := o.hooks.StartSpan(ctx, telemetry.SpanOrchestrate)
	defer span.End()
	log := logging.GetLogger(ctx, logging.SubsysOrchestrator)

	state := StateReceived
	log.Debug("orchestrating", "state", state)

	if verr := o.validator.Validate(event); verr != nil {
		state = StateDeadLettered
		log.Warn("validation failed", "state", state, "code", verr.Code, "error", verr.Message)
		o.hooks.CounterInc(telemetry.MetricProcessingFailure, map[string]string{"reason": "validation"})
		_ = delivery.Nack(ctx, verr.Message, string(verr.Code))
		return
	}
	state = StateValidated

	key := "file:" + event.ID
	claimed, err := o.idempotency.Claim(ctx, key)
	if err != nil {
		log.Error("idempotency claim failed", "error", err)
		return
	}
	if !claimed {
		state = StateDeduped
		log.Info("already processed, skipping", "state", state)
		o.hooks.CounterInc(telemetry.MetricProcessingSuccess, map[string]string{"reason": "already_processed"})
		_ = delivery.Ack(ctx)
		return
	}
	state = StateDeduped

	plans, policy := o.router.Route(event)
	state = StateRouted
	o.hooks.CounterInc(telemetry.MetricRouterMatches, nil)
	if len(plans) == 0 {
		log.Info("no matching route, acking as no-op", "state", state)
		o.hooks.CounterInc(telemetry.MetricProcessingSuccess, map[string]string{"reason": "no_route"})
		_ = delivery.Ack(ctx)
		return
	}
	o.hooks.CounterAdd(telemetry.MetricRouterFanoutCount, float64(len(plans)), nil)

	sourceClient, err := o.sources.ResolveSource(ctx, event)
	if err != nil {
		state = StateDeadLettered
		log.Error("resolve source failed", "state", state, "error", err)
		o.hooks.CounterInc(telemetry.MetricProcessingFailure, map[string]string{"reason": "source_unreachable"})
		_ = delivery.Nack(ctx, err.Error(), "File.NotFound")
		return
	}

	state = StateReading
	readCtx, readSpan := o.hooks.StartSpan(ctx, telemetry.SpanReaderOpen)
	rawReader, err := sourceClient.OpenRead(readCtx, event.Metadata.SourcePath)
	readSpan.End()
	if err != nil {
		state = StateDeadLettered
		log.Error("open source failed", "state", state, "error", err)
		o.hooks.CounterInc(telemetry.MetricProcessingFailure, map[string]string{"reason": "read_open"})
		_ = delivery.Nack(ctx, err.Error(), "File.NotFound")
		return
	}
	defer rawReader.Close()

	reader, err := asSeekable(rawReader, len(plans) > 1 || o.retry.MaxAttempts > 1)
	if err != nil {
		state = StateDeadLettered
		log.Error("buffer source for fan-out failed", "state", state, "error", err)
		o.hooks.CounterInc(telemetry.MetricProcessingFailure, map[string]string{"reason": "read_buffer"})
		_ = delivery.Nack(ctx, err.Error(), "File.NotFound")
		return
	}

	results, allSucceeded := o.writeToAllSinks(ctx, reader, event, plans, policy)
	state = StateWriting

	if allSucceeded && event.DeleteAfterTransfer {
		state = StateDeleting
		if err := sourceClient.Delete(ctx, event.Metadata.SourcePath); err != nil {
			log.Warn("source delete failed after successful transfer", "error", err)
		}
	}

	status := domain.NotificationSuccess
	if !allSucceeded {
		status = domain.NotificationFailure
	}
	completedUtc := time.Now().UTC()
	notification := domain.NewNotification(&event, status, time.Since(start), completedUtc, results)

	state = StateNotifying
	if err := o.notifier.Notify(ctx, notification); err != nil {
		log.Warn("notify failed", "error", err)
		if o.failPipelineOnNotifyFailure {
			allSucceeded = false
		}
	}

	if allSucceeded {
		state = StateAcked
		o.hooks.CounterInc(telemetry.MetricProcessingSuccess, nil)
		_ = delivery.Ack(ctx)
	} else {
		state = StateDeadLettered
		o.hooks.CounterInc(telemetry.MetricProcessingFailure, map[string]string{"reason": "sink_write"})
		_ = delivery.Nack(ctx, "one or more destinations failed", "FileTransfer.SinkFailure")
	}

	telemetry.ObserveSince(o.hooks, telemetry.HistogramProcessingDurationMs, nil, start)
	log.Debug("orchestration finished", "state", state, "success", allSucceeded)
}

// writeToAllSinks fans the already-opened reader out to every plan in
// order. All-or-nothing aborts remaining plans on the first failure;
// best-effort continues and reports a mixed result. Each plan after the
// first rewinds reader to byte zero, which asSeekable made possible
// (buffering the whole source up front only when the stream itself
// cannot seek).
func (o *Orchestrator) writeToAllSinks(ctx context.Context, reader readSeekerCloser, event domain.FileEvent, plans []domain.DestinationPlan, policy domain.FailurePolicy) ([]domain.DestinationResult, bool) {
	results := make([]domain.DestinationResult, 0, len(plans))
	allSucceeded := true

	for i, plan := range plans {
		s, ok := o.sinks.Get(plan.DestinationName)
		if !ok {
			result := domain.DestinationResult{Type: "unknown", Identifier: plan.DestinationName, Error: "destination not registered"}
			results = append(results, result)
			allSucceeded = false
			if policy == domain.FailurePolicyAllOrNothing {
				break
			}
			continue
		}

		if i > 0 {
			if _, err := reader.Seek(0, 0); err != nil {
				results = append(results, domain.DestinationResult{Type: s.Name(), Identifier: plan.DestinationName, Error: err.Error()})
				allSucceeded = false
				if policy == domain.FailurePolicyAllOrNothing {
					break
				}
				continue
			}
		}

		writeCtx, writeSpan := o.hooks.StartSpan(ctx, telemetry.SpanSinkWrite)
		result, err := o.writeWithRetry(writeCtx, s, reader, event, plan)
		if err != nil {
			writeSpan.SetError(err)
			o.hooks.CounterInc(telemetry.MetricSinkWriteFailures, map[string]string{"reason": classify(err)})
		} else {
			o.hooks.CounterAdd(telemetry.MetricBytesCopied, float64(result.BytesWritten), nil)
		}
		writeSpan.End()
		o.hooks.Observe(telemetry.HistogramSinkWriteLatencyMs, result.Latency.Seconds()*1000, map[string]string{"destination": plan.DestinationName})

		results = append(results, result)
		if !result.Success {
			allSucceeded = false
			if policy == domain.FailurePolicyAllOrNothing {
				break
			}
		}
	}
	return results, allSucceeded
}

// readSeekerCloser is what an orchestrated fan-out needs from an open
// source stream so each destination (and each retry) reads from byte
// zero.
type readSeekerCloser interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// asSeekable returns r unchanged if it already implements Seek (the
// common case: os.File and sftp.File both do). Otherwise — an FTP
// response stream, which does not support seeking — it is only safe
// to rewind by buffering the whole file in memory, which is required
// whenever fan-out to more than one destination or a retry might
// rewind. needsSeek is false for a single-destination, no-retry path,
// letting that case stream without buffering.
func asSeekable(r io.ReadCloser, needsSeek bool) (readSeekerCloser, error) {
	if s, ok := r.(io.Seeker); ok {
		return struct {
			io.Reader
			io.Seeker
			io.Closer
		}{r, s, r}, nil
	}
	if !needsSeek {
		return &nopSeeker{r: r}, nil
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffer source for fan-out: %w", err)
	}
	return &bufferedSeeker{data: content}, nil
}

// nopSeeker lets a single-pass, non-seekable stream satisfy
// readSeekerCloser without buffering; Seek(0, 0) on the first call is
// a no-op since nothing has been read yet.
type nopSeeker struct {
	r      io.ReadCloser
	seeked bool
}

func (n *nopSeeker) Read(p []byte) (int, error) { return n.r.Read(p) }
func (n *nopSeeker) Close() error               { return n.r.Close() }
func (n *nopSeeker) Seek(int64, int) (int64, error) {
	if n.seeked {
		return 0, fmt.Errorf("orchestrator: source stream does not support rewinding for retry")
	}
	n.seeked = true
	return 0, nil
}

type bufferedSeeker struct {
	data []byte
	pos  int
}

func (b *bufferedSeeker) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

func (b *bufferedSeeker) Seek(offset int64, whence int) (int64, error) {
	if offset != 0 || whence != 0 {
		return 0, fmt.Errorf("orchestrator: only Seek(0, io.SeekStart) is supported")
	}
	b.pos = 0
	return 0, nil
}

func (b *bufferedSeeker) Close() error { return nil }

func (o *Orchestrator) writeWithRetry(ctx context.Context, s sink.Sink, r readSeekerCloser, event domain.FileEvent, plan domain.DestinationPlan) (domain.DestinationResult, error) {
	maxAttempts := o.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	base := time.Duration(o.retry.BackoffBaseMs) * time.Millisecond
	capMs := time.Duration(o.retry.BackoffMaxMs) * time.Millisecond

	var lastResult domain.DestinationResult
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if _, err := r.Seek(0, 0); err != nil {
				return lastResult, err
			}
			delay := backoffDelay(base, capMs, attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return lastResult, ctx.Err()
			}
		}
		result, err := s.Write(ctx, r, event.Metadata.Size, plan, baseName(event.Metadata.SourcePath))
		lastResult, lastErr = result, err
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			break
		}
	}
	return lastResult, lastErr
}

// backoffDelay returns base * 2^(attempt-1), capped, with full jitter.
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return time.Duration(rand.Int64N(int64(d) + 1))
}

func isRetryable(err error) bool {
	var fhErr *domain.Error
	if errors.As(err, &fhErr) {
		return false
	}
	return true
}

func classify(err error) string {
	var fhErr *domain.Error
	if errors.As(err, &fhErr) {
		return string(fhErr.Code)
	}
	return "unspecified"
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}

