package poller

import (
	"context"
	"testing"
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/protocol"
	"github.com/littleandi/filehorizon/internal/queue/memqueue"
	"github.com/littleandi/filehorizon/internal/readiness"
	"github.com/littleandi/filehorizon/internal/telemetry"
)

func TestDispatcher_RunsSourceOnItsCronSchedule(t *testing.T) {
	client := &fakeListClient{files: []protocol.RemoteFileInfo{
		{FullPath: "/tmp/in/a.txt", Name: "a.txt", Size: 5, LastWriteUtc: time.Unix(1000, 0)},
	}}
	key := protocol.PoolKey{Scheme: "local"}
	pool := protocol.NewPool(time.Minute)
	pool.Register(key, &fakeDialer{client: client})

	q := memqueue.New()
	defer q.Close()

	newChecker := func(time.Duration) readiness.Checker { return readiness.NewSizeStabilityChecker(0) }
	src := Source{Name: "local-in", Protocol: domain.ProtocolLocal, Path: "/tmp/in", PoolKey: key, CronSpec: "@every 10ms"}
	p := New([]Source{src}, pool, newChecker, q, telemetry.NewNoop(), 0, nil)

	dispatcher := NewDispatcher(p)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer dispatcher.Stop()

	deliveries, _ := q.Dequeue(ctx)
	select {
	case d := <-deliveries:
		if d.Event.Metadata.SourcePath != "/tmp/in/a.txt" {
			t.Fatalf("got %+v", d.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the cron schedule to trigger at least one poll")
	}
}

func TestDispatcher_RejectsInvalidCronSpec(t *testing.T) {
	pool := protocol.NewPool(time.Minute)
	q := memqueue.New()
	defer q.Close()

	src := Source{Name: "bad-cron", Protocol: domain.ProtocolLocal, Path: "/tmp/in", CronSpec: "not a cron spec"}
	p := New([]Source{src}, pool, nil, q, telemetry.NewNoop(), 0, nil)

	dispatcher := NewDispatcher(p)
	if err := dispatcher.Start(context.Background()); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}
