package health

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/littleandi/filehorizon/internal/config"
)

func TestServer_HealthReflectsReadiness(t *testing.T) {
	cfg := config.Health{ListenAddress: "127.0.0.1:0", MetricsPath: "/metrics"}
	srv := New(cfg, prometheus.NewRegistry())

	w := &fakeResponseWriter{header: make(http.Header)}
	srv.handleHealth(w, nil)
	if w.status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", w.status)
	}

	srv.SetReady(true)
	w = &fakeResponseWriter{header: make(http.Header)}
	srv.handleHealth(w, nil)
	if w.status != http.StatusOK {
		t.Fatalf("expected 200 once ready, got %d", w.status)
	}

	srv.SetReady(false)
	w = &fakeResponseWriter{header: make(http.Header)}
	srv.handleHealth(w, nil)
	if w.status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown drain began, got %d", w.status)
	}
}

func TestServer_RunStopsOnContextCancel(t *testing.T) {
	cfg := config.Health{ListenAddress: "127.0.0.1:0", MetricsPath: "/metrics"}
	srv := New(cfg, prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return promptly after context cancellation")
	}
}

type fakeResponseWriter struct {
	header http.Header
	status int
	body   []byte
}

func (w *fakeResponseWriter) Header() http.Header { return w.header }
func (w *fakeResponseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}
func (w *fakeResponseWriter) WriteHeader(status int) { w.status = status }

var _ io.Writer = (*fakeResponseWriter)(nil)
