// Package queue defines the narrow enqueue/dequeue contract shared by
// the stream-backed and in-memory event queues. Core
// pipeline code only ever depends on this package, never on
// memqueue/streamqueue directly, so backend-specific primitives
// (stream IDs, consumer names) never leak past the composition root.
package queue

import (
	"context"

	"github.com/littleandi/filehorizon/internal/domain"
)

// Result is what Enqueue returns on success: enough to log or trace
// without leaking backend identifiers into calling code.
type Result struct {
	Accepted bool
}

// Delivery wraps one dequeued event with the means to acknowledge or
// dead-letter it. The consumer must call exactly one of Ack/Nack.
type Delivery struct {
	Event domain.FileEvent
	Ack   func(ctx context.Context) error
	Nack  func(ctx context.Context, reason, code string) error
}

// Queue is the contract both backends satisfy.
type Queue interface {
	Enqueue(ctx context.Context, event domain.FileEvent) (Result, error)

	// Dequeue returns a channel of Deliveries. It is closed when ctx is
	// canceled or the queue is closed.
	Dequeue(ctx context.Context) (<-chan Delivery, error)

	Close() error
}
