// Package chaterr defines the structured error taxonomy for the chat
// API. An error carries a kind:scope code that maps deterministically
// to an HTTP status and a machine-readable response body.
package chaterr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies what went wrong.
type Kind string

const (
	KindBadRequest      Kind = "bad_request"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindRateLimit       Kind = "rate_limit"
	KindOffline         Kind = "offline"
	KindActivateGateway Kind = "activate_gateway"
)

// Scope names the surface the error belongs to.
type Scope string

const (
	ScopeAPI      Scope = "api"
	ScopeChat     Scope = "chat"
	ScopeVote     Scope = "vote"
	ScopeDocument Scope = "document"
	ScopeStream   Scope = "stream"
)

// Error is the structured error type surfaced by the chat API.
type Error struct {
	Kind    Kind
	Scope   Scope
	Message string
	Cause   error
}

// New creates an Error with the default message for its kind.
func New(kind Kind, scope Scope) *Error {
	return &Error{Kind: kind, Scope: scope, Message: defaultMessage(kind, scope)}
}

// Newf creates an Error with a custom message.
func Newf(kind Kind, scope Scope, format string, args ...any) *Error {
	return &Error{Kind: kind, Scope: scope, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause while keeping the kind:scope code.
func Wrap(kind Kind, scope Scope, cause error) *Error {
	e := New(kind, scope)
	e.Cause = cause
	return e
}

// Code returns the kind:scope code, e.g. "forbidden:chat".
func (e *Error) Code() string { return string(e.Kind) + ":" + string(e.Scope) }

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Code() + ": " + e.Cause.Error()
	}
	return e.Code() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest, KindActivateGateway:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As extracts a *Error from an error chain.
func As(err error) (*Error, bool) {
	var ce *Error
	ok := errors.As(err, &ce)
	return ce, ok
}

// gatewayActivationNeedle matches the one upstream-provider failure that
// gets remapped to a specific activation-required error instead of the
// generic offline code.
const gatewayActivationNeedle = "valid credit card on file"

// Classify maps an arbitrary error from the turn pipeline onto the
// taxonomy. Structured errors pass through; the provider's billing
// precondition is recognized by message; everything else becomes
// offline:chat.
func Classify(err error) *Error {
	if ce, ok := As(err); ok {
		return ce
	}
	if strings.Contains(err.Error(), gatewayActivationNeedle) {
		return New(KindActivateGateway, ScopeAPI)
	}
	return Wrap(KindOffline, ScopeChat, err)
}

func defaultMessage(kind Kind, scope Scope) string {
	switch kind {
	case KindBadRequest:
		if scope == ScopeAPI {
			return "The request couldn't be processed. Please check your input and try again."
		}
		return "Invalid request."
	case KindUnauthorized:
		return fmt.Sprintf("You need to sign in before continuing with this %s.", scope)
	case KindForbidden:
		return fmt.Sprintf("This %s belongs to another account.", scope)
	case KindNotFound:
		return fmt.Sprintf("The requested %s was not found.", scope)
	case KindRateLimit:
		return "You have exceeded your maximum number of messages for the day. Please try again later."
	case KindActivateGateway:
		return "The model gateway requires activation before it can serve requests."
	default:
		return "An error occurred while processing your request. Please try again later."
	}
}
