// Package failure classifies errors returned by external service adapters.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind is the coarse category of an adapter failure.
type Kind string

const (
	KindRateLimited  Kind = "rate_limited"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindUpstream     Kind = "upstream"
	KindUnknown      Kind = "unknown"
)

// Sentinels for errors.Is checks. They match any *Error of the same kind.
var (
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrUpstream     = &Error{Kind: KindUpstream}
	ErrUnknown      = &Error{Kind: KindUnknown}

	// ErrInvalidVoice refines invalid input for unknown speech voices.
	ErrInvalidVoice = errors.New("invalid voice")
)

// Error is returned by every adapter operation.
type Error struct {
	Kind    Kind
	Service string
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Service != "" {
		b.WriteString(e.Service)
		if e.Op != "" {
			b.WriteString(" ")
			b.WriteString(e.Op)
		}
		b.WriteString(": ")
	}
	b.WriteString(describe(e.Kind))
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind so callers can write errors.Is(err, failure.ErrRateLimited).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Service == "" && t.Op == "" && t.Status == 0 && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func describe(kind Kind) string {
	switch kind {
	case KindRateLimited:
		return "rate limit exceeded"
	case KindInvalidInput:
		return "invalid request"
	case KindUnauthorized:
		return "authentication failed"
	case KindUpstream:
		return "service unavailable"
	default:
		return "unexpected failure"
	}
}

// New builds an adapter error of the given kind.
func New(kind Kind, service, op, message string) *Error {
	return &Error{Kind: kind, Service: service, Op: op, Message: message}
}

// Wrap builds an adapter error of the given kind around a cause.
func Wrap(kind Kind, service, op string, err error) *Error {
	return &Error{Kind: kind, Service: service, Op: op, Err: err}
}

// FromStatus maps an HTTP status and response body to an adapter error.
func FromStatus(service, op string, status int, body string) *Error {
	e := &Error{Service: service, Op: op, Status: status, Message: truncate(strings.TrimSpace(body), 300)}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusConflict,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnsupportedMediaType,
		status == http.StatusUnprocessableEntity:
		e.Kind = KindInvalidInput
	case status >= http.StatusInternalServerError:
		e.Kind = KindUpstream
	default:
		e.Kind = KindUnknown
	}
	return e
}

// FromTransport classifies an error raised before any HTTP status was received.
func FromTransport(service, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	kind := KindUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindUpstream
	case errors.As(err, &netErr):
		kind = KindUpstream
	}
	return &Error{Kind: kind, Service: service, Op: op, Err: err}
}

// KindOf classifies any error; non-adapter errors are unknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage renders an error the way it is shown to the job owner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindRateLimited:
		if e.Message != "" {
			return "Rate limit exceeded: " + e.Message
		}
		return "Rate limit exceeded. Please try again later."
	case KindUnauthorized:
		if e.Message != "" {
			return "Invalid API key or authentication failed: " + e.Message
		}
		return "Invalid API key or authentication failed."
	case KindInvalidInput:
		if errors.Is(e, ErrInvalidVoice) {
			return "The requested voice is not available."
		}
		if e.Message != "" {
			return "Invalid request: " + e.Message
		}
		return "Invalid request."
	default:
		return e.Error()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

