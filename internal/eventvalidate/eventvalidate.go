// Package eventvalidate rejects malformed FileEvents before they reach
// the idempotency store or router.
package eventvalidate

import (
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
)

// MaxFutureSkew bounds how far into the future lastModUtc may sit
// before an event is considered malformed.
const MaxFutureSkew = 5 * time.Minute

// Validator checks structural validity, not business rules.
type Validator struct {
	Now func() time.Time
}

func New() *Validator {
	return &Validator{Now: time.Now}
}

func (v *Validator) Validate(event domain.FileEvent) *domain.Error {
	if event.ID == "" {
		return domain.NewError(domain.CodeValidationEmptyID, "event id is empty", nil)
	}
	if event.Metadata.SourcePath == "" {
		return domain.NewError(domain.CodeValidationEmptyPath, "event source path is empty", nil)
	}
	if event.Metadata.Size < 0 {
		return domain.NewError(domain.CodeValidationBadSize, "event size is negative", nil)
	}
	switch event.Protocol {
	case domain.ProtocolLocal, domain.ProtocolFTP, domain.ProtocolSFTP:
	default:
		return domain.NewError(domain.CodeValidationUnknownProtocol, "unknown protocol: "+string(event.Protocol), nil)
	}

	now := v.Now
	if now == nil {
		now = time.Now
	}
	if event.Metadata.LastModUtc.After(now().Add(MaxFutureSkew)) {
		return domain.NewError(domain.CodeValidationFutureTimestamp, "lastModUtc is too far in the future", nil)
	}
	return nil
}
