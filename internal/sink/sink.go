// Package sink defines the write contract every destination
// implements: filesystem, SFTP, object storage, and message bus.
package sink

import (
	"context"
	"io"

	"github.com/littleandi/filehorizon/internal/domain"
)

// Sink writes one file to one destination and reports what happened.
type Sink interface {
	// Name is the destinationName this sink answers to in routing rules.
	Name() string

	Write(ctx context.Context, r io.Reader, size int64, plan domain.DestinationPlan, fileName string) (domain.DestinationResult, error)

	Close() error
}

// Registry resolves a DestinationPlan's destinationName to a Sink.
type Registry struct {
	sinks map[string]Sink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

func (r *Registry) Register(s Sink) {
	r.sinks[s.Name()] = s
}

func (r *Registry) Get(name string) (Sink, bool) {
	s, ok := r.sinks[name]
	return s, ok
}

func (r *Registry) CloseAll() {
	for _, s := range r.sinks {
		_ = s.Close()
	}
}
