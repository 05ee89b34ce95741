// Package health serves the operational surface: an HTTP health probe
// at /health returning 200 iff background services are running, plus
// a Prometheus /metrics endpoint.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/littleandi/filehorizon/internal/config"
)

// Server exposes /health and /metrics on a single listener.
type Server struct {
	cfg     config.Health
	httpSrv *http.Server
	ready   atomic.Bool
}

// New serves metrics off reg, the same registry telemetry.Prom was
// constructed with, so /metrics reflects the real counters/histograms.
func New(cfg config.Health, reg *prometheus.Registry) *Server {
	s := &Server{cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.httpSrv = &http.Server{Addr: cfg.ListenAddress, Handler: mux}
	return s
}

// SetReady flips whether /health reports 200. Callers mark ready once
// the poller/worker background services are actually running, and
// unready during graceful shutdown drain.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("not ready"))
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
