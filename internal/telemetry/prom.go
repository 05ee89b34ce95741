package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prom implements Hooks over prometheus/client_golang, registering
// one CounterVec/HistogramVec per metric name on first use.
type Prom struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewProm(reg *prometheus.Registry) *Prom {
	return &Prom{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *Prom) counterVec(name string, labelNames []string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filehorizon",
		Name:      name,
	}, labelNames)
	p.reg.MustRegister(c)
	p.counters[name] = c
	return c
}

func (p *Prom) histogramVec(name string, labelNames []string) *prometheus.HistogramVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filehorizon",
		Name:      name,
		Buckets:   prometheus.DefBuckets,
	}, labelNames)
	p.reg.MustRegister(h)
	p.histograms[name] = h
	return h
}

func labelNamesAndValues(labels map[string]string) ([]string, prometheus.Labels) {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names, prometheus.Labels(labels)
}

func (p *Prom) CounterInc(name string, labels map[string]string) {
	p.CounterAdd(name, 1, labels)
}

func (p *Prom) CounterAdd(name string, value float64, labels map[string]string) {
	names, values := labelNamesAndValues(labels)
	p.counterVec(name, names).With(values).Add(value)
}

func (p *Prom) Observe(name string, value float64, labels map[string]string) {
	names, values := labelNamesAndValues(labels)
	p.histogramVec(name, names).With(values).Observe(value)
}

func (p *Prom) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	// Spans are recorded as a histogram of duration per span name; a
	// real tracing exporter can be substituted behind the same Hooks
	// interface without touching call sites.
	return ctx, &promSpan{p: p, name: name, start: time.Now()}
}
