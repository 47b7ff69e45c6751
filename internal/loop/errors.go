package loop

import (
	"errors"
	"fmt"
)

// ErrorCode classifies loop failures.
type ErrorCode string

// ErrorCode constants for loop errors.
const (
	ErrPeripheralNotReady    ErrorCode = "PERIPHERAL_NOT_READY"
	ErrHeartbeatSendFailed   ErrorCode = "HEARTBEAT_SEND_FAILED"
	ErrIndicatorUpdateFailed ErrorCode = "INDICATOR_UPDATE_FAILED"
	ErrCloudStartFailed      ErrorCode = "CLOUD_START_FAILED"
)

// Error is a coded loop error.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

// NewError creates a loop error wrapping cause.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
