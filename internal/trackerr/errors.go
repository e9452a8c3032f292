// Package trackerr provides structured error types for tracker.
package trackerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for tracker.
const (
	// Record store errors
	CodeNotFound Code = "RECORD_NOT_FOUND"
	CodeSchema   Code = "SCHEMA_ERROR"
	CodeIO       Code = "IO_ERROR"
	CodeConflict Code = "UPDATE_CONFLICT"

	// Validation errors
	CodeValidation Code = "VALIDATION_ERROR"

	// Auth errors
	CodeAuth      Code = "AUTH_FAILED"
	CodeForbidden Code = "FORBIDDEN"
)

// Category groups error codes for HTTP status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryUnauthorized
	CategoryForbidden
	CategoryInternal
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeNotFound:   CategoryNotFound,
	CodeSchema:     CategoryInternal,
	CodeIO:         CategoryInternal,
	CodeConflict:   CategoryConflict,
	CodeValidation: CategoryBadRequest,
	CodeAuth:       CategoryUnauthorized,
	CodeForbidden:  CategoryForbidden,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryNotFound:
		return 404
	case CategoryBadRequest:
		return 400
	case CategoryConflict:
		return 409
	case CategoryUnauthorized:
		return 401
	case CategoryForbidden:
		return 403
	default:
		return 500
	}
}

// TrackError is the structured error type for tracker.
type TrackError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *TrackError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *TrackError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *TrackError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category for HTTP status mapping.
func (e *TrackError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *TrackError) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// MarshalJSON implements json.Marshaler.
func (e *TrackError) MarshalJSON() ([]byte, error) {
	type alias TrackError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a TrackError with the same code.
func (e *TrackError) Is(target error) bool {
	t, ok := target.(*TrackError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *TrackError) WithCause(err error) *TrackError {
	return &TrackError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// NotFound returns an error for an id that is absent from a table.
func NotFound(table, id string) *TrackError {
	return &TrackError{
		Code: CodeNotFound,
		What: fmt.Sprintf("%s %s not found", table, id),
		Why:  "No row with this id exists in the table",
	}
}

// SchemaError returns an error for a malformed table on load.
func SchemaError(table, why string) *TrackError {
	return &TrackError{
		Code: CodeSchema,
		What: fmt.Sprintf("table %s has a malformed row or column", table),
		Why:  why,
		Fix:  "Repair the data file by hand or re-run 'tracker seed' into a fresh data directory",
	}
}

// IOError returns an error for unavailable underlying storage.
func IOError(op, path string, cause error) *TrackError {
	return &TrackError{
		Code:  CodeIO,
		What:  fmt.Sprintf("%s %s failed", op, path),
		Why:   "The underlying storage is unavailable",
		Cause: cause,
	}
}

// Conflict returns an error for a stale-revision update.
func Conflict(table, id string) *TrackError {
	return &TrackError{
		Code: CodeConflict,
		What: fmt.Sprintf("%s %s was modified by another writer", table, id),
		Why:  "The revision the update was based on is no longer current",
		Fix:  "Reload the row and retry the update",
	}
}

// Validation returns an error for a value outside its closed set.
func Validation(what, why string) *TrackError {
	return &TrackError{
		Code: CodeValidation,
		What: what,
		Why:  why,
	}
}

// AuthFailed returns an error for a failed credential check.
// The message is deliberately identical for unknown users and wrong
// passwords.
func AuthFailed() *TrackError {
	return &TrackError{
		Code: CodeAuth,
		What: "invalid username or password",
	}
}

// Forbidden returns an error for a capability the session's role lacks.
func Forbidden(capability string) *TrackError {
	return &TrackError{
		Code: CodeForbidden,
		What: fmt.Sprintf("role is not allowed to %s", capability),
	}
}

// --- Inspection helpers ---

// IsCode reports whether err is a TrackError with the given code.
func IsCode(err error, code Code) bool {
	var te *TrackError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsCode(err, CodeNotFound) }

// IsConflict reports whether err is a stale-revision conflict.
func IsConflict(err error) bool { return IsCode(err, CodeConflict) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return IsCode(err, CodeValidation) }

// IsAuthFailed reports whether err is a failed credential check.
func IsAuthFailed(err error) bool { return IsCode(err, CodeAuth) }

// HTTPStatus returns the HTTP status for any error, defaulting to 500.
func HTTPStatus(err error) int {
	var te *TrackError
	if errors.As(err, &te) {
		return te.HTTPStatus()
	}
	return 500
}
