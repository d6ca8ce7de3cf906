package optimizer

import (
	"errors"
	"fmt"
)

// ErrorCode classifies optimizer failures for the caller
type ErrorCode string

const (
	CodeInvalidConfig      ErrorCode = "invalid_config"
	CodeAlreadyExists      ErrorCode = "already_exists"
	CodeUnknownJob         ErrorCode = "unknown_job"
	CodeInvalidArm         ErrorCode = "invalid_arm"
	CodeJobAlreadyTerminal ErrorCode = "job_already_terminal"
	CodeSequenceGap        ErrorCode = "sequence_gap"
	CodeDuplicateMismatch  ErrorCode = "duplicate_mismatch"
)

// Error is a structured optimizer failure. It carries the job id and
// the offending value so the caller can decide to retry, abandon, or
// alert without inspecting server logs.
type Error struct {
	Code    ErrorCode `json:"code"`
	JobID   string    `json:"job_id,omitempty"`
	Value   string    `json:"value,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("%s: job %s: %s", e.Code, e.JobID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a structured optimizer Error. The storage layer
// uses it too so identity failures surface with the same taxonomy
// regardless of which layer detected them.
func NewError(code ErrorCode, jobID, value, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		JobID:   jobID,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsCode reports whether err is an optimizer Error with the given code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// AsError extracts the structured optimizer Error from err, if any
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
