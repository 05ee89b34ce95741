package eventvalidate

import (
	"testing"
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
)

func validEvent() domain.FileEvent {
	return domain.FileEvent{
		ID:       "abc",
		Protocol: domain.ProtocolLocal,
		Metadata: domain.EventMetadata{SourcePath: "/tmp/in/a.txt", Size: 5, LastModUtc: time.Now()},
	}
}

func TestValidate_OK(t *testing.T) {
	v := New()
	if err := v.Validate(validEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyID(t *testing.T) {
	v := New()
	e := validEvent()
	e.ID = ""
	err := v.Validate(e)
	if err == nil || err.Code != domain.CodeValidationEmptyID {
		t.Fatalf("got %v, want CodeValidationEmptyID", err)
	}
}

func TestValidate_UnknownProtocol(t *testing.T) {
	v := New()
	e := validEvent()
	e.Protocol = "gopher"
	err := v.Validate(e)
	if err == nil || err.Code != domain.CodeValidationUnknownProtocol {
		t.Fatalf("got %v, want CodeValidationUnknownProtocol", err)
	}
}

func TestValidate_FutureTimestamp(t *testing.T) {
	v := New()
	e := validEvent()
	e.Metadata.LastModUtc = time.Now().Add(time.Hour)
	err := v.Validate(e)
	if err == nil || err.Code != domain.CodeValidationFutureTimestamp {
		t.Fatalf("got %v, want CodeValidationFutureTimestamp", err)
	}
}

func TestValidate_NegativeSize(t *testing.T) {
	v := New()
	e := validEvent()
	e.Metadata.Size = -1
	err := v.Validate(e)
	if err == nil || err.Code != domain.CodeValidationBadSize {
		t.Fatalf("got %v, want CodeValidationBadSize", err)
	}
}
