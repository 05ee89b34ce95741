package orchestrator

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/littleandi/filehorizon/internal/config"
	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/eventvalidate"
	"github.com/littleandi/filehorizon/internal/idempotency/memstore"
	"github.com/littleandi/filehorizon/internal/notifier"
	"github.com/littleandi/filehorizon/internal/protocol"
	"github.com/littleandi/filehorizon/internal/queue"
	"github.com/littleandi/filehorizon/internal/router"
	"github.com/littleandi/filehorizon/internal/sink"
	"github.com/littleandi/filehorizon/internal/telemetry"
)

type fakeReadCloser struct {
	*bytes.Reader
}

func (f fakeReadCloser) Close() error { return nil }

type fakeClient struct {
	content []byte
	deleted bool
}

func (f *fakeClient) Connect(context.Context) error { return nil }
func (f *fakeClient) List(context.Context, string, bool, string) (<-chan protocol.ListResult, error) {
	return nil, nil
}
func (f *fakeClient) GetInfo(context.Context, string) (protocol.RemoteFileInfo, error) {
	return protocol.RemoteFileInfo{}, nil
}
func (f *fakeClient) OpenRead(context.Context, string) (io.ReadCloser, error) {
	return fakeReadCloser{bytes.NewReader(f.content)}, nil
}
func (f *fakeClient) Delete(context.Context, string) error {
	f.deleted = true
	return nil
}
func (f *fakeClient) Write(context.Context, string, io.Reader, protocol.WriteOptions) (int64, error) {
	return 0, nil
}
func (f *fakeClient) Close() error { return nil }

type fakeResolver struct{ client *fakeClient }

func (r *fakeResolver) ResolveSource(context.Context, domain.FileEvent) (protocol.Client, error) {
	return r.client, nil
}

type fakeSink struct {
	name    string
	fail    bool
	written []byte
}

func (s *fakeSink) Name() string { return s.name }
func (s *fakeSink) Write(_ context.Context, r io.Reader, _ int64, _ domain.DestinationPlan, _ string) (domain.DestinationResult, error) {
	if s.fail {
		return domain.DestinationResult{Type: "fake", Identifier: s.name, Success: false, Error: "boom"}, domain.NewError(domain.CodeFileNotFound, "boom", nil)
	}
	b, _ := io.ReadAll(r)
	s.written = b
	return domain.DestinationResult{Type: "fake", Identifier: s.name, Success: true, BytesWritten: int64(len(b))}, nil
}
func (s *fakeSink) Close() error { return nil }

func newOrchestrator(t *testing.T, sinks map[string]*fakeSink, rule config.RoutingRule, client *fakeClient) *Orchestrator {
	t.Helper()
	registry := sink.NewRegistry()
	for _, s := range sinks {
		registry.Register(s)
	}
	rt := router.New(config.Routing{Rules: []config.RoutingRule{rule}})
	return New(
		&fakeResolver{client: client},
		eventvalidate.New(),
		memstore.New(time.Minute),
		rt,
		registry,
		notifier.New(nil, "", false),
		telemetry.NewNoop(),
		config.RetryConfig{MaxAttempts: 1, BackoffBaseMs: 1, BackoffMaxMs: 10},
		false,
	)
}

func testEvent() domain.FileEvent {
	return domain.FileEvent{
		ID:       "evt-1",
		Protocol: domain.ProtocolLocal,
		Metadata: domain.EventMetadata{SourcePath: "/tmp/in/a.txt", Size: 5, LastModUtc: time.Now()},
	}
}

func TestProcess_SingleSinkSuccess(t *testing.T) {
	client := &fakeClient{content: []byte("hello")}
	s := &fakeSink{name: "archive"}
	o := newOrchestrator(t, map[string]*fakeSink{"archive": s}, config.RoutingRule{
		Destinations: []config.RoutingDestination{{Name: "archive"}},
	}, client)

	acked := false
	delivery := queue.Delivery{
		Event: testEvent(),
		Ack:   func(context.Context) error { acked = true; return nil },
		Nack:  func(context.Context, string, string) error { return nil },
	}
	o.Process(context.Background(), delivery)

	if !acked {
		t.Fatal("expected ack on success")
	}
	if string(s.written) != "hello" {
		t.Fatalf("got %q, want hello", s.written)
	}
}

func TestProcess_DuplicateDeliveryShortCircuits(t *testing.T) {
	client := &fakeClient{content: []byte("hello")}
	s := &fakeSink{name: "archive"}
	o := newOrchestrator(t, map[string]*fakeSink{"archive": s}, config.RoutingRule{
		Destinations: []config.RoutingDestination{{Name: "archive"}},
	}, client)

	event := testEvent()
	ackCount := 0
	mkDelivery := func() queue.Delivery {
		return queue.Delivery{
			Event: event,
			Ack:   func(context.Context) error { ackCount++; return nil },
			Nack:  func(context.Context, string, string) error { return nil },
		}
	}
	o.Process(context.Background(), mkDelivery())
	s.written = nil
	o.Process(context.Background(), mkDelivery())

	if ackCount != 2 {
		t.Fatalf("expected both deliveries acked, got %d", ackCount)
	}
	if s.written != nil {
		t.Fatal("expected no second write for duplicate delivery")
	}
}

func TestProcess_AllOrNothingAbortsOnFirstFailure(t *testing.T) {
	client := &fakeClient{content: []byte("hello")}
	good := &fakeSink{name: "d1"}
	bad := &fakeSink{name: "d2", fail: true}
	o := newOrchestrator(t, map[string]*fakeSink{"d1": good, "d2": bad}, config.RoutingRule{
		Destinations:  []config.RoutingDestination{{Name: "d1"}, {Name: "d2"}},
		FailurePolicy: "AllOrNothing",
	}, client)

	var nackReason string
	delivery := queue.Delivery{
		Event: testEvent(),
		Ack:   func(context.Context) error { return nil },
		Nack:  func(_ context.Context, reason, _ string) error { nackReason = reason; return nil },
	}
	o.Process(context.Background(), delivery)

	if nackReason == "" {
		t.Fatal("expected nack on partial fan-out failure")
	}
	if string(good.written) != "hello" {
		t.Fatal("expected first destination to have been written before the failure")
	}
}

func TestProcess_ValidationFailureDeadLetters(t *testing.T) {
	client := &fakeClient{content: []byte("hello")}
	o := newOrchestrator(t, nil, config.RoutingRule{Destinations: []config.RoutingDestination{{Name: "archive"}}}, client)

	event := testEvent()
	event.ID = ""
	var nacked bool
	delivery := queue.Delivery{
		Event: event,
		Ack:   func(context.Context) error { return nil },
		Nack:  func(context.Context, string, string) error { nacked = true; return nil },
	}
	o.Process(context.Background(), delivery)
	if !nacked {
		t.Fatal("expected validation failure to be nacked")
	}
}
