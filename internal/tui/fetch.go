// Package tui implements the live terminal dashboard for a running
// filehorizon process: it polls the /metrics text exposition over
// HTTP and renders the samples as a filterable table.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Sample is one flattened metric observation: a counter/gauge/
// histogram-sum reading with its label set rendered as "k=v,k=v".
type Sample struct {
	Metric string
	Labels string
	Value  float64
}

// Fetcher scrapes a running process's metrics endpoint.
type Fetcher struct {
	url    string
	client *http.Client
}

func NewFetcher(url string, timeout time.Duration) *Fetcher {
	return &Fetcher{url: url, client: &http.Client{Timeout: timeout}}
}

// Fetch parses the text exposition format the same way linkerd's CLI
// diagnostics parse a scraped gateway's /metrics: expfmt.TextParser
// into MetricFamily, flattened here into one Sample per time series.
func (f *Fetcher) Fetch(ctx context.Context) ([]Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("tui: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tui: fetch %s: %w", f.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tui: %s returned %d", f.url, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("tui: read body: %w", err)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("tui: parse metrics: %w", err)
	}

	var samples []Sample
	for name, family := range families {
		if !strings.HasPrefix(name, "filehorizon_") {
			continue
		}
		for _, m := range family.GetMetric() {
			samples = append(samples, Sample{
				Metric: name,
				Labels: labelString(m.GetLabel()),
				Value:  metricValue(family, m),
			})
		}
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Metric != samples[j].Metric {
			return samples[i].Metric < samples[j].Metric
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}

// metricValue reads the one numeric field populated for family's type;
// histograms report their sample sum, the closest single-number
// summary of "how much work happened".
func metricValue(family *dto.MetricFamily, m *dto.Metric) float64 {
	switch family.GetType() {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return m.GetHistogram().GetSampleSum()
	case dto.MetricType_SUMMARY:
		return m.GetSummary().GetSampleSum()
	default:
		return 0
	}
}
