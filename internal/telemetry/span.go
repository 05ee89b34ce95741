package telemetry

import "time"

type promSpan struct {
	p      *Prom
	name   string
	start  time.Time
	errSet bool
}

func (s *promSpan) End() {
	status := "ok"
	if s.errSet {
		status = "error"
	}
	s.p.Observe("span_duration_ms", float64(time.Since(s.start).Milliseconds()), map[string]string{
		"span":   s.name,
		"status": status,
	})
}

func (s *promSpan) SetError(err error) {
	s.errSet = err != nil
}
