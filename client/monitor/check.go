// Package monitor implements a Nagios-style check for an operator to
// run against a running FileHorizon process: a fluent builder over a
// monitoringplugin.Response.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dsh2dsh/go-monitoringplugin/v2"
)

// PipelineCheck probes a FileHorizon process's /health endpoint and
// reports Nagios-style OK/WARNING/CRITICAL.
type PipelineCheck struct {
	url     string
	timeout time.Duration
	warn    time.Duration
	crit    time.Duration

	resp *monitoringplugin.Response

	failed bool
}

func NewPipelineCheck(resp *monitoringplugin.Response) *PipelineCheck {
	return &PipelineCheck{resp: resp, timeout: 5 * time.Second}
}

func (self *PipelineCheck) WithURL(url string) *PipelineCheck {
	self.url = url
	return self
}

func (self *PipelineCheck) WithTimeout(d time.Duration) *PipelineCheck {
	self.timeout = d
	return self
}

func (self *PipelineCheck) WithThresholds(warn, crit time.Duration) *PipelineCheck {
	self.warn = warn
	self.crit = crit
	return self
}

func (self *PipelineCheck) WithResponse(resp *monitoringplugin.Response) *PipelineCheck {
	self.resp = resp
	return self
}

// UpdateStatus runs the check and records its outcome on the response.
func (self *PipelineCheck) UpdateStatus(ctx context.Context) error {
	if err := self.Run(ctx); err != nil {
		return err
	}
	if !self.failed {
		self.updateStatus(monitoringplugin.OK, "healthy: %s", self.url)
	}
	return nil
}

func (self *PipelineCheck) Run(ctx context.Context) error {
	client := &http.Client{Timeout: self.timeout}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, self.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		self.updateStatus(monitoringplugin.CRITICAL, "unreachable: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		self.updateStatus(monitoringplugin.CRITICAL, "status %d", resp.StatusCode)
		return nil
	}

	switch {
	case self.crit > 0 && elapsed >= self.crit:
		self.updateStatus(monitoringplugin.CRITICAL, "health check latency %v >= %v", elapsed, self.crit)
	case self.warn > 0 && elapsed >= self.warn:
		self.updateStatus(monitoringplugin.WARNING, "health check latency %v >= %v", elapsed, self.warn)
	}
	return nil
}

func (self *PipelineCheck) updateStatus(statusCode int, format string, a ...any) {
	self.failed = self.failed || statusCode != monitoringplugin.OK
	self.resp.UpdateStatus(statusCode, fmt.Sprintf(format, a...))
}
