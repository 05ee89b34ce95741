package domain

import "fmt"

// Code is a stable error code for dashboarding. Secrets
// must never be interpolated into the message that accompanies a Code.
type Code string

const (
	CodeFileNotFound               Code = "File.NotFound"
	CodeFileSizeUnstable           Code = "File.SizeUnstable"
	CodeFileLockUnavailable        Code = "File.LockUnavailable"
	CodeAlreadyProcessed           Code = "Processing.AlreadyProcessed"
	CodeChecksumMismatch           Code = "Processing.ChecksumMismatch"
	CodeQueueFull                  Code = "Queue.Full"
	CodeQueueEnqueueCancelled      Code = "Queue.EnqueueCancelled"
	CodeDirectoryCreateFailed      Code = "FileTransfer.DirectoryCreateFailed"
	CodeValidationEmptyID          Code = "Validation.EmptyID"
	CodeValidationEmptyPath        Code = "Validation.EmptyPath"
	CodeValidationBadSize          Code = "Validation.BadSize"
	CodeValidationUnknownProtocol  Code = "Validation.UnknownProtocol"
	CodeValidationFutureTimestamp  Code = "Validation.FutureTimestamp"
	CodeUnspecified                Code = "Unspecified"
)

// Error is a typed, errors.Is/As-friendly pipeline error carrying a
// stable Code alongside the human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error, optionally wrapping a cause.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Retryability classifies an error for the orchestrator's retry loop.
type Retryability int

const (
	Recovered Retryability = iota
	Retryable
	Permanent
	Fatal
)
