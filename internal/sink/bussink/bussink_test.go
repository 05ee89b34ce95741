package bussink

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/littleandi/filehorizon/internal/config"
	"github.com/littleandi/filehorizon/internal/content"
	"github.com/littleandi/filehorizon/internal/domain"
)

type fakePublisher struct {
	destination string
	isTopic     bool
	payload     []byte
}

func (p *fakePublisher) Publish(_ context.Context, destination string, isTopic bool, payload []byte) error {
	p.destination, p.isTopic, p.payload = destination, isTopic, payload
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestSink_Write_PublishesRequest(t *testing.T) {
	pub := &fakePublisher{}
	s := New("orders-out", pub, false, content.NewSnifferCatalogue(config.ContentDetection{EnableXml: true}))

	plan := domain.DestinationPlan{DestinationName: "orders-out", IsTopic: true}
	body := "<?xml version=\"1.0\"?><root/>"
	result, err := s.Write(context.Background(), strings.NewReader(body), int64(len(body)), plan, "order.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if !pub.isTopic || pub.destination != "orders-out" {
		t.Fatalf("publisher did not receive expected target: %+v", pub)
	}

	var req domain.FilePublishRequest
	if err := json.Unmarshal(pub.payload, &req); err != nil {
		t.Fatalf("unmarshal published payload: %v", err)
	}
	if req.ContentType != "application/xml" {
		t.Fatalf("expected xml content type detected, got %q", req.ContentType)
	}
	if string(req.ContentBytes) != body {
		t.Fatalf("expected uncompressed body round trip, got %q", req.ContentBytes)
	}
}

func TestSink_Write_CompressesWhenConfigured(t *testing.T) {
	pub := &fakePublisher{}
	s := New("orders-out", pub, true, nil)

	plan := domain.DestinationPlan{DestinationName: "orders-out"}
	body := "plain text body"
	_, err := s.Write(context.Background(), strings.NewReader(body), int64(len(body)), plan, "order.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var req domain.FilePublishRequest
	if err := json.Unmarshal(pub.payload, &req); err != nil {
		t.Fatalf("unmarshal published payload: %v", err)
	}
	if req.AppProps["contentEncoding"] != "gzip" {
		t.Fatalf("expected gzip content-encoding app prop, got %+v", req.AppProps)
	}
	if string(req.ContentBytes) == body {
		t.Fatalf("expected compressed body to differ from plain text")
	}
}
