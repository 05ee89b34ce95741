// Package readiness decides whether a just-seen file is safe to emit,
// guarding against picking up a file still being written.
package readiness

import (
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
)

// Checker decides readiness from the current observation and the
// previous snapshot for the same identity key, if any.
type Checker interface {
	IsReady(now time.Time, current domain.FileObservationSnapshot, previous *domain.FileObservationSnapshot) bool
}

// SizeStabilityChecker implements the default policy: ready iff a
// previous snapshot exists, size is unchanged, and the file has been
// observed with that size for at least MinStableSeconds.
type SizeStabilityChecker struct {
	MinStableSeconds time.Duration
}

func NewSizeStabilityChecker(minStable time.Duration) *SizeStabilityChecker {
	if minStable < 0 {
		minStable = 5 * time.Second
	}
	return &SizeStabilityChecker{MinStableSeconds: minStable}
}

func (c *SizeStabilityChecker) IsReady(now time.Time, current domain.FileObservationSnapshot, previous *domain.FileObservationSnapshot) bool {
	if previous == nil {
		return false
	}
	if current.Size != previous.Size {
		return false
	}
	return now.Sub(current.FirstObservedUtc) >= c.MinStableSeconds
}
