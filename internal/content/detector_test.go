package content

import (
	"testing"

	"github.com/littleandi/filehorizon/internal/config"
)

func TestDetect_Edifact(t *testing.T) {
	c := NewSnifferCatalogue(config.ContentDetection{EnableEdifact: true})
	got := c.Detect([]byte("UNB+UNOA:1+SENDER+RECEIVER+240101:1200+1++ORDERS'"))
	if got != "application/edifact" {
		t.Fatalf("got %q", got)
	}
}

func TestDetect_PlainText(t *testing.T) {
	c := NewSnifferCatalogue(config.ContentDetection{EnableEdifact: true, EnableXml: true})
	got := c.Detect([]byte("hello world"))
	if got == "" {
		t.Fatalf("expected non-empty content type")
	}
}

func TestDetect_EdifactDisabled(t *testing.T) {
	c := NewSnifferCatalogue(config.ContentDetection{EnableEdifact: false})
	got := c.Detect([]byte("UNB+UNOA:1+SENDER"))
	if got == "application/edifact" {
		t.Fatalf("edifact detection should be disabled")
	}
}
