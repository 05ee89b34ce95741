// Package poller implements the per-source discovery loop: list,
// dedup, readiness-check, emit. One Poller runs all
// configured sources under a sequential multi-protocol dispatcher,
// each on its own cron schedule.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/logging"
	"github.com/littleandi/filehorizon/internal/protocol"
	"github.com/littleandi/filehorizon/internal/queue"
	"github.com/littleandi/filehorizon/internal/readiness"
	"github.com/littleandi/filehorizon/internal/telemetry"
)

// sourceState is the poller-owned, single-writer bookkeeping for one
// source: its snapshot map and emitted set.
type sourceState struct {
	snapshots map[string]domain.FileObservationSnapshot
	emitted   *emittedSet
	backoff   backoffTracker
	mu        sync.Mutex
}

// Poller drives discovery for every configured Source.
type Poller struct {
	sources    []Source
	pool       *protocol.Pool
	newChecker func(minStable time.Duration) readiness.Checker
	q          queue.Queue
	hooks      telemetry.Hooks
	batchLimit int
	enabled    func(domain.Protocol) bool

	state map[string]*sourceState
}

// New builds a Poller. newChecker builds the readiness policy applied
// to one source's observation, given that source's configured
// MinStableSeconds; a nil newChecker defaults to
// readiness.NewSizeStabilityChecker, so every source gets its own
// stability window instead of sharing one global policy.
func New(sources []Source, pool *protocol.Pool, newChecker func(time.Duration) readiness.Checker, q queue.Queue, hooks telemetry.Hooks, batchLimit int, enabled func(domain.Protocol) bool) *Poller {
	if newChecker == nil {
		newChecker = func(minStable time.Duration) readiness.Checker {
			return readiness.NewSizeStabilityChecker(minStable)
		}
	}
	state := make(map[string]*sourceState, len(sources))
	for _, s := range sources {
		state[s.Name] = &sourceState{
			snapshots: make(map[string]domain.FileObservationSnapshot),
			emitted:   newEmittedSet(10000),
		}
	}
	return &Poller{
		sources:    sources,
		pool:       pool,
		newChecker: newChecker,
		q:          q,
		hooks:      hooks,
		batchLimit: batchLimit,
		enabled:    enabled,
		state:      state,
	}
}

// PollAll runs one pass over every configured source, sequentially.
func (p *Poller) PollAll(ctx context.Context) {
	for _, src := range p.sources {
		if ctx.Err() != nil {
			return
		}
		p.pollOne(ctx, src)
	}
}

func (p *Poller) pollOne(ctx context.Context, src Source) {
	log := logging.GetLogger(ctx, logging.SubsysPoller).With("source", src.Name)
	st := p.state[src.Name]

	if p.enabled != nil && !p.enabled(src.Protocol) {
		return
	}
	now := time.Now()
	if st.backoff.inBackoff(now) {
		log.Debug("source in backoff window, skipping")
		return
	}

	client, err := p.pool.Acquire(ctx, src.PoolKey)
	if err != nil {
		p.onSourceError(ctx, src, st, err)
		return
	}

	entries, err := client.List(ctx, src.Path, src.Recursive, src.Pattern)
	if err != nil {
		p.onSourceError(ctx, src, st, err)
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	count := 0
	failed := false
	for result := range entries {
		if p.batchLimit > 0 && count >= p.batchLimit {
			break
		}
		if result.Err != nil {
			log.Warn("list entry error", "error", result.Err)
			failed = true
			continue
		}
		p.observe(ctx, src, st, result.Info)
		count++
	}
	st.emitted.Sweep()

	if failed {
		p.onSourceError(ctx, src, st, nil)
		return
	}
	st.backoff.reset()
}

func (p *Poller) observe(ctx context.Context, src Source, st *sourceState, info protocol.RemoteFileInfo) {
	log := logging.GetLogger(ctx, logging.SubsysPoller).With("source", src.Name, "path", info.FullPath)

	ref := domain.FileReference{Scheme: src.Protocol, Host: src.Host, Port: src.Port, Path: info.FullPath, SourceName: src.Name}
	key := domain.BuildIdentityKey(ref)

	now := time.Now()
	previous, hadPrevious := st.snapshots[key]
	current := domain.FileObservationSnapshot{
		Size:            info.Size,
		LastWriteUtc:    info.LastWriteUtc,
		LastObservedUtc: now,
	}
	if hadPrevious && previous.Size == info.Size {
		current.FirstObservedUtc = previous.FirstObservedUtc
	} else {
		current.FirstObservedUtc = now
	}
	st.snapshots[key] = current

	var previousPtr *domain.FileObservationSnapshot
	if hadPrevious {
		previousPtr = &previous
	}

	checker := p.newChecker(src.MinStableSeconds)
	ready := checker.IsReady(now, current, previousPtr)
	if !ready {
		return
	}
	if st.emitted.Contains(key) {
		st.emitted.Mark(key)
		return
	}

	event := domain.FileEvent{
		ID:       uuid.NewString(),
		Protocol: src.Protocol,
		Metadata: domain.EventMetadata{
			SourcePath: info.FullPath,
			Size:       info.Size,
			LastModUtc: info.LastWriteUtc,
		},
		DiscoveredAtUtc:     now.UTC(),
		SourceName:          src.Name,
		Host:                src.Host,
		Port:                src.Port,
		DestinationPathHint: src.DestinationPathHint,
		DeleteAfterTransfer: src.DeleteAfterTransfer,
	}

	result, err := p.q.Enqueue(ctx, event)
	if err != nil || !result.Accepted {
		log.Warn("enqueue failed", "error", err)
		p.hooks.CounterInc(telemetry.MetricPollingErrors, map[string]string{"protocol": string(src.Protocol)})
		return
	}

	st.emitted.Mark(key)
	p.hooks.CounterInc(telemetry.MetricPollingEmitted, map[string]string{"protocol": string(src.Protocol)})
	log.Info("emitted file event", "eventId", event.ID, "size", info.Size)
}

func (p *Poller) onSourceError(ctx context.Context, src Source, st *sourceState, err error) {
	log := logging.GetLogger(ctx, logging.SubsysPoller).With("source", src.Name)
	delay := st.backoff.recordFailure(time.Now())
	p.hooks.CounterInc(telemetry.MetricPollingErrors, map[string]string{"protocol": string(src.Protocol)})
	if err != nil {
		log.Warn("source poll failed, entering backoff", "error", err, "backoff", delay)
	} else {
		log.Warn("source poll had entry errors, entering backoff", "backoff", delay)
	}
}
