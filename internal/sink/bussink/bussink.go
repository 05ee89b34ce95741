// Package bussink implements FileContentPublisher: a specialized sink
// that reads the source into memory (whole-file mode only) and
// publishes a FilePublishRequest to a queue or topic. Two transports
// share the contract: Redis pub/sub and RabbitMQ/AMQP.
package bussink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/littleandi/filehorizon/internal/content"
	"github.com/littleandi/filehorizon/internal/domain"
)

// Publisher is the narrow contract a transport implements.
type Publisher interface {
	Publish(ctx context.Context, destination string, isTopic bool, payload []byte) error
	Close() error
}

// Sink reads the whole source into memory, optionally gzips it, and
// hands the resulting FilePublishRequest to a Publisher.
type Sink struct {
	name      string
	publisher Publisher
	compress  bool
	detector  content.Detector
}

func New(name string, publisher Publisher, compress bool, detector content.Detector) *Sink {
	return &Sink{name: name, publisher: publisher, compress: compress, detector: detector}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Write(ctx context.Context, r io.Reader, size int64, plan domain.DestinationPlan, fileName string) (domain.DestinationResult, error) {
	start := time.Now()

	content, err := io.ReadAll(r)
	if err != nil {
		return domain.DestinationResult{Type: "bus", Identifier: plan.DestinationName, Error: err.Error()}, fmt.Errorf("bussink: read source: %w", err)
	}

	contentType := ""
	if s.detector != nil {
		prefix := content[:min(512, len(content))]
		contentType = s.detector.Detect(prefix)
	}

	appProps := map[string]string{}
	if s.compress {
		compressed, cerr := gzipBytes(content)
		if cerr != nil {
			return domain.DestinationResult{Type: "bus", Identifier: plan.DestinationName, Error: cerr.Error()}, fmt.Errorf("bussink: gzip: %w", cerr)
		}
		content = compressed
		appProps["contentEncoding"] = "gzip"
	}

	req := domain.FilePublishRequest{
		SourcePath:      fileName,
		FileName:        fileName,
		ContentBytes:    content,
		ContentType:     contentType,
		DestinationName: plan.DestinationName,
		IsTopic:         plan.IsTopic,
		AppProps:        appProps,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.DestinationResult{Type: "bus", Identifier: plan.DestinationName, Error: err.Error()}, fmt.Errorf("bussink: marshal request: %w", err)
	}

	err = s.publisher.Publish(ctx, plan.DestinationName, plan.IsTopic, payload)
	result := domain.DestinationResult{
		Type:         "bus",
		Identifier:   plan.DestinationName,
		Success:      err == nil,
		BytesWritten: size,
		Latency:      time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}

func (s *Sink) Close() error { return s.publisher.Close() }

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
