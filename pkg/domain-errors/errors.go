// Package domainerrors carries machine-checkable error codes across layer
// boundaries so transport can translate failures without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidInput      Code = "invalid_input"
	CodeUnauthorized      Code = "unauthorized"
	CodeBanned            Code = "banned"
	CodeEscalationFailed  Code = "escalation_failed"
	CodeSignerUnavailable Code = "signer_unavailable"
	CodeLedgerFailed      Code = "ledger_failed"
	CodeNotFound          Code = "not_found"
	CodeAlreadyDecided    Code = "already_decided"
	CodeInternal          Code = "internal"
)

// Error is the single error type crossing service boundaries. Err keeps the
// underlying cause (ledger failures are surfaced verbatim, never swallowed).
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

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil err returns
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost domain code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps domain codes onto the HTTP surface.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeEscalationFailed:
		return http.StatusUnauthorized
	case CodeBanned:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyDecided:
		return http.StatusConflict
	case CodeSignerUnavailable:
		return http.StatusServiceUnavailable
	case CodeLedgerFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
