// Package apperror provides the router's structured error taxonomy and
// its JSON rendering, mirroring the error classes spec.md's error
// handling design names.
package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Code identifies a class of router error.
type Code string

// Error classes from the error handling design.
const (
	CodeValidation Code = "VALIDATION"
	CodeAssignment Code = "ASSIGNMENT"
	CodeLookup     Code = "LOOKUP"
	CodeUpstream   Code = "UPSTREAM_TRANSPORT"
	CodeUpstreamBody Code = "UPSTREAM_BODY"
	CodeCORS       Code = "CORS"
	CodeInternal   Code = "INTERNAL"
)

// statusByCode maps each error class to the HTTP status spec.md §7
// assigns it.
var statusByCode = map[Code]int{
	CodeValidation:   http.StatusBadRequest,
	CodeAssignment:   http.StatusInternalServerError,
	CodeLookup:       http.StatusInternalServerError,
	CodeUpstream:     http.StatusBadGateway,
	CodeUpstreamBody: http.StatusInternalServerError,
	CodeCORS:         http.StatusForbidden,
	CodeInternal:     http.StatusInternalServerError,
}

// Error is the router's application error type: a class, an
// HTTP-facing message, and an optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status code for this error's class.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates an *Error of the given class with a human-readable
// message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an *Error of the given class that carries an
// underlying cause as its Details.
func Wrap(code Code, message string, cause error) *Error {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &Error{Code: code, Message: message, Details: details, Cause: cause}
}

// Status extracts the HTTP status code to use for err, defaulting to
// 500 for errors that are not *Error.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

// envelope is the JSON body shape §7 specifies: an "error" message and
// an optional "details" string.
type envelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes err to w as the standard JSON error envelope, using
// the status code appropriate to its class.
func WriteJSON(w http.ResponseWriter, err error) {
	var appErr *Error
	status := http.StatusInternalServerError
	msg := "internal error"
	details := ""

	if errors.As(err, &appErr) {
		status = appErr.Status()
		msg = appErr.Message
		details = appErr.Details
	} else if err != nil {
		msg = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: msg, Details: details})
}
