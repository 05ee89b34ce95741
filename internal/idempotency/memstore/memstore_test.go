package memstore

import (
	"context"
	"testing"
	"time"
)

func TestClaim_FirstWinsSecondShortCircuits(t *testing.T) {
	s := New(time.Minute)
	ctx := context.Background()

	first, err := s.Claim(ctx, "file:abc")
	if err != nil || !first {
		t.Fatalf("expected first claim to win, got %v, %v", first, err)
	}
	second, err := s.Claim(ctx, "file:abc")
	if err != nil || second {
		t.Fatalf("expected second claim to lose, got %v, %v", second, err)
	}
}

func TestRelease_AllowsReclaim(t *testing.T) {
	s := New(time.Minute)
	ctx := context.Background()
	s.Claim(ctx, "file:abc")
	if err := s.Release(ctx, "file:abc"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err := s.Claim(ctx, "file:abc")
	if err != nil || !ok {
		t.Fatalf("expected reclaim after release, got %v, %v", ok, err)
	}
}

func TestClaim_ExpiresAfterTTL(t *testing.T) {
	s := New(10 * time.Millisecond)
	ctx := context.Background()
	s.Claim(ctx, "file:abc")
	time.Sleep(20 * time.Millisecond)
	ok, err := s.Claim(ctx, "file:abc")
	if err != nil || !ok {
		t.Fatalf("expected claim to succeed after TTL expiry, got %v, %v", ok, err)
	}
}
