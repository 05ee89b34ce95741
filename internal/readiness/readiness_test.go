package readiness

import (
	"testing"
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
)

func TestIsReady_NoPrevious(t *testing.T) {
	c := NewSizeStabilityChecker(time.Second)
	now := time.Now()
	current := domain.FileObservationSnapshot{Size: 5, FirstObservedUtc: now, LastObservedUtc: now}
	if c.IsReady(now, current, nil) {
		t.Fatal("expected not ready with no previous snapshot")
	}
}

func TestIsReady_SizeChanged(t *testing.T) {
	c := NewSizeStabilityChecker(time.Second)
	now := time.Now()
	previous := domain.FileObservationSnapshot{Size: 100, FirstObservedUtc: now.Add(-5 * time.Second)}
	current := domain.FileObservationSnapshot{Size: 200, FirstObservedUtc: now}
	if c.IsReady(now, current, &previous) {
		t.Fatal("expected not ready after size growth")
	}
}

func TestIsReady_StableLongEnough(t *testing.T) {
	c := NewSizeStabilityChecker(time.Second)
	firstObserved := time.Now().Add(-2 * time.Second)
	previous := domain.FileObservationSnapshot{Size: 5, FirstObservedUtc: firstObserved}
	current := domain.FileObservationSnapshot{Size: 5, FirstObservedUtc: firstObserved}
	if !c.IsReady(time.Now(), current, &previous) {
		t.Fatal("expected ready after stability window elapsed")
	}
}

func TestIsReady_NotYetStable(t *testing.T) {
	c := NewSizeStabilityChecker(5 * time.Second)
	firstObserved := time.Now()
	previous := domain.FileObservationSnapshot{Size: 5, FirstObservedUtc: firstObserved}
	current := domain.FileObservationSnapshot{Size: 5, FirstObservedUtc: firstObserved}
	if c.IsReady(firstObserved.Add(time.Second), current, &previous) {
		t.Fatal("expected not ready before stability window elapses")
	}
}
