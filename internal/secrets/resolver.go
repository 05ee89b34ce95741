// Package secrets resolves a CredentialSecretRef from configuration
// into a usable value without ever letting that value reach a log
// line or an error message.
package secrets

import (
	"context"
	"log/slog"
)

// Resolver resolves a named secret reference to its value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (Value, error)
}

// Value wraps a resolved secret so that accidental %v/%s formatting or
// structured logging can't leak it.
type Value struct {
	plain string
}

func NewValue(plain string) Value { return Value{plain: plain} }

// Plain returns the underlying secret. Callers must not log or wrap
// the result in an error.
func (v Value) Plain() string { return v.plain }

func (v Value) String() string { return "***" }

// LogValue implements slog.LogValuer so a Value embedded in a
// structured log attribute never prints its contents.
func (v Value) LogValue() slog.Value { return slog.StringValue("***") }
