// Package errs defines the error kinds shared by the aggregation core.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies where a failure came from.
type Kind int

const (
	// Unknown is the catch-all for opaque failures inside provider SDKs.
	Unknown Kind = iota
	// AccountService is a failure talking to the account service.
	AccountService
	// RemoteHTTP is a transport-level failure calling a provider API.
	RemoteHTTP
	// RemoteAPI is a non-success status code returned by a provider API.
	RemoteAPI
	// Decode is a malformed or unexpected payload from a provider.
	Decode
	// DateRange is an invalid calendar date component.
	DateRange
)

func (k Kind) String() string {
	switch k {
	case AccountService:
		return "account service error"
	case RemoteHTTP:
		return "remote HTTP error"
	case RemoteAPI:
		return "remote API error"
	case Decode:
		return "payload decode error"
	case DateRange:
		return "date range error"
	default:
		return "unknown error"
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int    // RemoteAPI only
	Body       string // RemoteAPI only: the response body as returned
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Kind == RemoteAPI {
		msg += fmt.Sprintf(" (status %d): %s", e.StatusCode, e.Body)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind. It returns nil when err is nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Remote returns a RemoteAPI error carrying the surfaced response body.
func Remote(op string, statusCode int, body string) error {
	return &Error{Kind: RemoteAPI, Op: op, StatusCode: statusCode, Body: body}
}

// KindOf reports the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
