package poller

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/protocol"
	"github.com/littleandi/filehorizon/internal/queue/memqueue"
	"github.com/littleandi/filehorizon/internal/readiness"
	"github.com/littleandi/filehorizon/internal/telemetry"
)

type fakeListClient struct {
	files []protocol.RemoteFileInfo
}

func (c *fakeListClient) Connect(context.Context) error { return nil }
func (c *fakeListClient) List(ctx context.Context, string, bool, string) (<-chan protocol.ListResult, error) {
	out := make(chan protocol.ListResult, len(c.files))
	for _, f := range c.files {
		out <- protocol.ListResult{Info: f}
	}
	close(out)
	return out, nil
}
func (c *fakeListClient) GetInfo(context.Context, string) (protocol.RemoteFileInfo, error) {
	return protocol.RemoteFileInfo{}, nil
}
func (c *fakeListClient) OpenRead(context.Context, string) (io.ReadCloser, error) { return nil, nil }
func (c *fakeListClient) Delete(context.Context, string) error                    { return nil }
func (c *fakeListClient) Write(context.Context, string, io.Reader, protocol.WriteOptions) (int64, error) {
	return 0, nil
}
func (c *fakeListClient) Close() error { return nil }

type fakeDialer struct{ client *fakeListClient }

func (d *fakeDialer) Dial(context.Context) (protocol.Client, error) { return d.client, nil }

func TestPollOne_EmitsOnlyOnceStableFile(t *testing.T) {
	client := &fakeListClient{files: []protocol.RemoteFileInfo{
		{FullPath: "/tmp/in/a.txt", Name: "a.txt", Size: 5, LastWriteUtc: time.Unix(1000, 0)},
	}}
	key := protocol.PoolKey{Scheme: "local", Host: "", Port: 0, CredentialFingerprint: ""}
	pool := protocol.NewPool(time.Minute)
	pool.Register(key, &fakeDialer{client: client})

	q := memqueue.New()
	defer q.Close()

	checker := readiness.NewSizeStabilityChecker(10 * time.Millisecond)
	newChecker := func(time.Duration) readiness.Checker { return checker }
	src := Source{Name: "local-in", Protocol: domain.ProtocolLocal, Path: "/tmp/in", PoolKey: key}
	p := New([]Source{src}, pool, newChecker, q, telemetry.NewNoop(), 0, nil)

	ctx := context.Background()
	p.PollAll(ctx) // first observation: not stable yet
	time.Sleep(20 * time.Millisecond)
	p.PollAll(ctx) // now stable: should emit
	p.PollAll(ctx) // third poll: already emitted, must not re-emit

	deliveries, _ := q.Dequeue(ctx)
	select {
	case d := <-deliveries:
		if d.Event.Metadata.SourcePath != "/tmp/in/a.txt" {
			t.Fatalf("got %+v", d.Event)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected one emitted event")
	}
	select {
	case d := <-deliveries:
		t.Fatalf("expected exactly one event, got a second: %+v", d.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollOne_BackoffOnSourceError(t *testing.T) {
	pool := protocol.NewPool(time.Minute)
	q := memqueue.New()
	defer q.Close()
	checker := readiness.NewSizeStabilityChecker(time.Second)
	newChecker := func(time.Duration) readiness.Checker { return checker }
	src := Source{Name: "missing", Protocol: domain.ProtocolLocal, Path: "/nowhere", PoolKey: protocol.PoolKey{Scheme: "local"}}
	p := New([]Source{src}, pool, newChecker, q, telemetry.NewNoop(), 0, nil)

	ctx := context.Background()
	p.PollAll(ctx)

	st := p.state["missing"]
	if !st.backoff.inBackoff(time.Now()) {
		t.Fatal("expected source to enter backoff after unresolved pool dialer")
	}
}
