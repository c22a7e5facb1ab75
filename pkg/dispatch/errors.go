package dispatch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/papercomputeco/pmassist/pkg/gemini"
)

// Kind classifies an exchange failure.
type Kind string

const (
	Cancelled          Kind = "cancelled"
	InvalidRequest     Kind = "invalid_request"
	Unauthorized       Kind = "unauthorized"
	Forbidden          Kind = "forbidden"
	RateLimited        Kind = "rate_limited"
	ServiceUnavailable Kind = "service_unavailable"
	UnknownAPIError    Kind = "unknown_api_error"
	EmptyResponse      Kind = "empty_response"
	SafetyBlocked      Kind = "safety_blocked"
	RecitationBlocked  Kind = "recitation_blocked"
	NetworkError       Kind = "network_error"
	UnknownError       Kind = "unknown_error"
)

// User-facing messages per kind.
const (
	MsgCancelled          = "Request aborted"
	MsgInvalidRequest     = "Invalid request. Please check your message and try again."
	MsgUnauthorized       = "API key is invalid. Please check your configuration."
	MsgForbidden          = "API access forbidden. Please check your API key permissions."
	MsgRateLimited        = "Rate limit exceeded. Please wait a moment and try again."
	MsgServiceUnavailable = "AI service is temporarily unavailable. Please try again in a moment."
	MsgEmptyResponse      = "No response from AI service. Please try again."
	MsgSafetyBlocked      = "Response was blocked due to safety concerns. Please rephrase your question."
	MsgRecitationBlocked  = "Response was blocked due to recitation concerns. Please try a different approach."
	MsgNetworkError       = "Network error. Please check your internet connection and try again."
	MsgUnknownError       = "Failed to get response from AI assistant. Please check your connection and try again."
)

// Error is the failure of one exchange. Error returns the user-facing message; the
// underlying cause, if any, is available through Unwrap.
type Error struct {
	Kind Kind

	// Status is the remote HTTP status for API errors, zero otherwise.
	Status int

	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a dispatch error, or UnknownError for any other error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return UnknownError
}

// IsCancelled reports whether err is a cancelled exchange.
func IsCancelled(err error) bool {
	return KindOf(err) == Cancelled
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func cancelledError(cause error) *Error {
	return newError(Cancelled, MsgCancelled, cause)
}

// remoteError maps a failed remote call onto the taxonomy.
func remoteError(err error) *Error {
	var statusErr *gemini.StatusError
	if errors.As(err, &statusErr) {
		e := statusError(statusErr.Code, statusErr.Status)
		e.Err = err
		return e
	}

	var transportErr *gemini.TransportError
	if errors.As(err, &transportErr) {
		return newError(NetworkError, MsgNetworkError, err)
	}

	return newError(UnknownError, MsgUnknownError, err)
}

func statusError(code int, status string) *Error {
	e := &Error{Status: code}
	switch {
	case code == http.StatusBadRequest:
		e.Kind, e.Message = InvalidRequest, MsgInvalidRequest
	case code == http.StatusUnauthorized:
		e.Kind, e.Message = Unauthorized, MsgUnauthorized
	case code == http.StatusForbidden:
		e.Kind, e.Message = Forbidden, MsgForbidden
	case code == http.StatusTooManyRequests:
		e.Kind, e.Message = RateLimited, MsgRateLimited
	case code >= 500:
		e.Kind, e.Message = ServiceUnavailable, MsgServiceUnavailable
	default:
		e.Kind, e.Message = UnknownAPIError, fmt.Sprintf("API error: %d %s", code, status)
	}
	return e
}
