// Package apperr implements a small error taxonomy: a fixed set of kinds the
// HTTP layer maps to status codes in one place, instead of each handler
// inventing its own status/message pairing.
package apperr

import "fmt"

type Kind string

const (
	Validation      Kind = "validation"
	NotFound        Kind = "not_found"
	Conflict        Kind = "conflict"
	UpstreamTimeout Kind = "upstream_timeout"
	UpstreamHTTP    Kind = "upstream_http"
	Internal        Kind = "internal"
)

// Error is a taxonomy-tagged error. UpstreamStatus and Body carry detail for
// UpstreamHTTP errors so callers can log the truncated body without leaking
// it past the short end-user message.
type Error struct {
	Kind           Kind
	Message        string
	UpstreamStatus int
	Body           string
	cause          error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NewValidation(message string) *Error { return New(Validation, message) }

func NewNotFound(entity string) *Error {
	return New(NotFound, entity+" not found")
}

func NewConflict(message string) *Error { return New(Conflict, message) }

func NewInternal(cause error) *Error {
	return Wrap(Internal, "internal error", cause)
}

// NewUpstreamHTTP records an unexpected status from the metadata service,
// truncating the body so a large error page doesn't get logged in full.
func NewUpstreamHTTP(status int, body string) *Error {
	if len(body) > 500 {
		body = body[:500]
	}
	return &Error{
		Kind:           UpstreamHTTP,
		Message:        fmt.Sprintf("upstream returned status %d", status),
		UpstreamStatus: status,
		Body:           body,
	}
}

func NewUpstreamTimeout(cause error) *Error {
	return &Error{Kind: UpstreamTimeout, Message: "upstream timed out", cause: cause}
}

// As extracts an *Error from err, or wraps it as Internal if it isn't one.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	return NewInternal(err)
}
