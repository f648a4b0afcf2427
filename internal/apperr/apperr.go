// Package apperr defines the stable, wire-visible error codes this
// module returns to callers (spec.md §6/§7) and a typed error carrying
// one of them alongside the HTTP status it maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, documented error code returned in the HTTP envelope's
// error_code field. Callers may match on these; string values are part
// of the wire contract and must not change.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "RECORD_NOT_FOUND"
	CodeModelNotFound     Code = "MODEL_NOT_FOUND"
	CodeFieldNotFound     Code = "FIELD_NOT_FOUND"
	CodeSchemaNotFound    Code = "SCHEMA_NOT_FOUND"
	CodeColumnNotFound    Code = "COLUMN_NOT_FOUND"
	CodeTenantExists      Code = "TENANT_EXISTS"
	CodeSystemProtected   Code = "SYSTEM_MODEL_PROTECTED"
	CodeTrashedRecord     Code = "TRASHED_RECORD"
	CodeDeletedRecord     Code = "DELETED_RECORD"
	CodeAlreadyTrashed    Code = "ALREADY_TRASHED"
	CodeAlreadyDeleted    Code = "ALREADY_DELETED"
	CodeAccessDenied      Code = "ACCESS_DENIED"
	CodeConflict          Code = "CONFLICT"
	CodeModelNameInUse    Code = "MODEL_NAME_IN_USE"
	CodeInvalidBody       Code = "INVALID_BODY"
	CodeTenantNotFound    Code = "TENANT_NOT_FOUND"
	CodeTenantInactive    Code = "TENANT_INACTIVE"
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodeTimeout           Code = "TIMEOUT"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// statusForCode is the default HTTP status for a Code when one is not
// supplied explicitly via New.
var statusForCode = map[Code]int{
	CodeValidation:      http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodeModelNotFound:   http.StatusNotFound,
	CodeFieldNotFound:   http.StatusNotFound,
	CodeSchemaNotFound:  http.StatusNotFound,
	CodeColumnNotFound:  http.StatusNotFound,
	CodeTenantExists:    http.StatusConflict,
	CodeSystemProtected: http.StatusForbidden,
	CodeTrashedRecord:   http.StatusConflict,
	CodeDeletedRecord:   http.StatusConflict,
	CodeAlreadyTrashed:  http.StatusConflict,
	CodeAlreadyDeleted:  http.StatusConflict,
	CodeAccessDenied:    http.StatusForbidden,
	CodeConflict:        http.StatusConflict,
	CodeModelNameInUse:  http.StatusConflict,
	CodeInvalidBody:     http.StatusBadRequest,
	CodeTenantNotFound:  http.StatusNotFound,
	CodeTenantInactive:  http.StatusForbidden,
	CodeUnauthenticated: http.StatusUnauthorized,
	CodeTimeout:         http.StatusGatewayTimeout,
	CodeInternal:        http.StatusInternalServerError,
}

// Error is a stable application error: a wire-visible Code, a
// human-readable Message, and the HTTP Status it maps to.
type Error struct {
	Code    Code
	Message string
	Status  int
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error for code with message, using code's default
// HTTP status.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode[code]}
}

// Newf is New with fmt.Sprintf-style formatting of message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to an underlying err, preserving it for
// Unwrap/logging while keeping the wire-visible message stable.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode[code], cause: err}
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == code
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
