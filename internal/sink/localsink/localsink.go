// Package localsink writes to a local filesystem destination via the
// protocol.Client localfs implementation, satisfying sink.Sink.
package localsink

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/protocol"
)

// Sink writes under root, the destination's configured Target
// directory; plan.TargetPath (or, absent that, the source file name)
// is resolved relative to it.
type Sink struct {
	name   string
	client protocol.Client
	root   string
}

func New(name string, client protocol.Client, root string) *Sink {
	return &Sink{name: name, client: client, root: root}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Write(ctx context.Context, r io.Reader, _ int64, plan domain.DestinationPlan, fileName string) (domain.DestinationResult, error) {
	start := time.Now()
	relative := plan.TargetPath
	if relative == "" {
		relative = fileName
	}
	target := relative
	if !filepath.IsAbs(relative) {
		target = filepath.Join(s.root, relative)
	}

	n, err := s.client.Write(ctx, target, r, protocol.WriteOptions{
		Overwrite:                    plan.WriteOptions.Overwrite,
		CreateDestinationDirectories: true,
	})
	result := domain.DestinationResult{
		Type:         "local",
		Identifier:   target,
		Success:      err == nil,
		BytesWritten: n,
		Latency:      time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}

func (s *Sink) Close() error { return s.client.Close() }
