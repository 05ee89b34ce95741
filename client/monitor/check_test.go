package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dsh2dsh/go-monitoringplugin/v2"
)

func TestPipelineCheck_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp := monitoringplugin.NewResponse("pipeline check")
	check := NewPipelineCheck(resp).WithURL(srv.URL + "/health")
	if err := check.UpdateStatus(context.Background()); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if check.failed {
		t.Fatal("expected healthy check to not be marked failed")
	}
}

func TestPipelineCheck_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp := monitoringplugin.NewResponse("pipeline check")
	check := NewPipelineCheck(resp).WithURL(srv.URL + "/health")
	if err := check.UpdateStatus(context.Background()); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !check.failed {
		t.Fatal("expected unhealthy response to be marked failed")
	}
}

func TestPipelineCheck_Unreachable(t *testing.T) {
	resp := monitoringplugin.NewResponse("pipeline check")
	check := NewPipelineCheck(resp).WithURL("http://127.0.0.1:1")
	if err := check.UpdateStatus(context.Background()); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !check.failed {
		t.Fatal("expected unreachable target to be marked failed")
	}
}
