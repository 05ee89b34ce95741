package memqueue

import (
	"context"
	"testing"
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
)

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q := New()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	event := domain.FileEvent{ID: "abc-123", Metadata: domain.EventMetadata{SourcePath: "/tmp/in/a.txt", Size: 5}}
	if _, err := q.Enqueue(ctx, event); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deliveries, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	select {
	case d := <-deliveries:
		if d.Event.ID != event.ID {
			t.Fatalf("got event %+v, want %+v", d.Event, event)
		}
		if err := d.Ack(ctx); err != nil {
			t.Fatalf("ack: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	q := New()
	q.Close()
	if _, err := q.Enqueue(context.Background(), domain.FileEvent{ID: "x"}); err == nil {
		t.Fatal("expected error enqueuing to a closed queue")
	}
}
