// Package idempotency guarantees at-most-once processing of a given
// identity key across redeliveries.
package idempotency

import "context"

// Store claims an identity key for the duration of processing.
// Claim returns (true, nil) if the caller won the claim and should
// proceed; (false, nil) if the key was already claimed and the caller
// must short-circuit with Processing.AlreadyProcessed.
type Store interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
