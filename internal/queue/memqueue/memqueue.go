// Package memqueue is the in-memory queue backend: an unbounded FIFO
// channel, no persistence, ack implicit by dequeue. Selected when the
// stream backend is disabled or fails to initialize at startup.
package memqueue

import (
	"context"
	"sync"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/queue"
)

type Queue struct {
	mu     sync.Mutex
	items  chan domain.FileEvent
	closed bool
}

// New creates an in-memory queue over a 1024-slot channel buffer.
// Enqueue never blocks: once the buffer is full, each further event is
// handed to its own goroutine that sends it when room frees up, so
// events enqueued while the buffer is full may be dequeued out of
// order.
func New() *Queue {
	return &Queue{items: make(chan domain.FileEvent, 1024)}
}

func (q *Queue) Enqueue(ctx context.Context, event domain.FileEvent) (queue.Result, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return queue.Result{}, context.Canceled
	}
	q.mu.Unlock()

	select {
	case q.items <- event:
		return queue.Result{Accepted: true}, nil
	case <-ctx.Done():
		return queue.Result{}, ctx.Err()
	default:
		// Channel buffer full: spill into a goroutine so Enqueue never
		// blocks the poller.
		go func() {
			select {
			case q.items <- event:
			case <-ctx.Done():
			}
		}()
		return queue.Result{Accepted: true}, nil
	}
}

func (q *Queue) Dequeue(ctx context.Context) (<-chan queue.Delivery, error) {
	out := make(chan queue.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- queue.Delivery{
					Event: ev,
					Ack:   func(context.Context) error { return nil },
					Nack:  func(context.Context, string, string) error { return nil },
				}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.items)
	return nil
}
