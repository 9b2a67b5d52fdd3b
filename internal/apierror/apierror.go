// Package apierror provides the error taxonomy shared by services and handlers
// and the response envelope every endpoint writes. Internal details (DB
// errors, stack traces) never reach the envelope; they stay in the logs.
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so the transport can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a business-rule failure carrying a client-safe message.
// Field names the offending input when the failure is about one field.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// ValidationField is a validation failure attributed to a single input field.
func ValidationField(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Field: field}
}

// ConflictField is a uniqueness failure attributed to a single field.
func ConflictField(field, msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg, Field: field}
}

// Internal wraps an unexpected failure. Its message is generic on purpose.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// KindOf reports the Kind of err, defaulting to KindInternal for anything
// that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// ── Envelope ─────────────────────────────────────────────────────────────────

// ErrorBody is the "error" member of a failed response.
type ErrorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Field   string            `json:"field,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Envelope is the canonical body of every response.
type Envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// New builds a failure envelope for the given status.
func New(status int, msg string) Envelope {
	return Envelope{
		Success: false,
		Message: msg,
		Error:   &ErrorBody{Code: status, Message: msg},
	}
}

// NewValidation builds a 400 envelope listing each failing field and tag.
func NewValidation(fields map[string]string) Envelope {
	env := New(http.StatusBadRequest, "Validation failed")
	env.Error.Fields = fields
	return env
}

// FromError builds the failure envelope for err. Internal errors are
// reduced to a generic message.
func FromError(err error) (int, Envelope) {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return http.StatusInternalServerError, New(http.StatusInternalServerError, "Internal server error")
	}
	status := e.Kind.Status()
	env := New(status, e.Message)
	env.Error.Field = e.Field
	return status, env
}

// OK builds a success envelope.
func OK(msg string, data any) Envelope {
	return Envelope{Success: true, Message: msg, Data: data}
}
