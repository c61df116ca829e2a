package lastfm

import (
	"errors"
	"fmt"
)

// Kind enumerates the exhaustive error taxonomy. Every public
// operation either returns its success value or a single *Error
// carrying one of these kinds.
type Kind int

const (
	// KindHTTP is a transport-level failure or an unexpected
	// non-2xx, non-429, non-login-redirect response.
	KindHTTP Kind = iota
	// KindAuth is a login refusal, a mid-session expiry, or missing
	// or invalid credentials.
	KindAuth
	// KindCSRFNotFound is the expected CSRF input absent from a form
	// page.
	KindCSRFNotFound
	// KindParse is HTML that did not match the expected shape.
	KindParse
	// KindRateLimit is the server asking us to back off.
	KindRateLimit
	// KindEditFailed is a well-formed request whose response
	// indicated the edit was not applied.
	KindEditFailed
	// KindIO is a failure in an out-of-scope I/O collaborator (a
	// session file or store), bubbled up unchanged.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindAuth:
		return "auth"
	case KindCSRFNotFound:
		return "csrf_not_found"
	case KindParse:
		return "parse"
	case KindRateLimit:
		return "rate_limit"
	case KindEditFailed:
		return "edit_failed"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the single error currency for this package. It carries a
// Kind, a human-readable detail, an optional RetryAfterSeconds (only
// meaningful for KindRateLimit), and an optional wrapped cause.
type Error struct {
	Kind              Kind
	Detail            string
	RetryAfterSeconds int
	Cause             error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrCSRFNotFound) and similar sentinel checks
// work by comparing Kind rather than identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewHTTPError wraps a transport-level failure or unexpected status.
func NewHTTPError(detail string, cause error) *Error {
	return &Error{Kind: KindHTTP, Detail: detail, Cause: cause}
}

// NewAuthError reports a login refusal or session expiry.
func NewAuthError(detail string) *Error {
	return &Error{Kind: KindAuth, Detail: detail}
}

// ErrCSRFNotFound is returned verbatim (with a fixed detail) whenever
// a form page lacks the expected CSRF input.
var ErrCSRFNotFound = &Error{Kind: KindCSRFNotFound, Detail: "csrf token not found in form"}

// NewParseError reports HTML that did not match the expected shape.
func NewParseError(detail string, cause error) *Error {
	return &Error{Kind: KindParse, Detail: detail, Cause: cause}
}

// NewRateLimitError reports that the server asked the client to back
// off for retryAfterSeconds before retrying.
func NewRateLimitError(retryAfterSeconds int) *Error {
	return &Error{
		Kind:              KindRateLimit,
		Detail:            fmt.Sprintf("rate limited, retry after %ds", retryAfterSeconds),
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// NewEditFailedError reports a well-formed edit request the server
// declined to apply.
func NewEditFailedError(detail string) *Error {
	return &Error{Kind: KindEditFailed, Detail: detail}
}

// NewIOError bubbles up a failure from an out-of-scope I/O
// collaborator (e.g. the session store) unchanged.
func NewIOError(detail string, cause error) *Error {
	return &Error{Kind: KindIO, Detail: detail, Cause: cause}
}

// IsRateLimit reports whether err is (or wraps) a KindRateLimit Error
// and, if so, returns it.
func IsRateLimit(err error) (*Error, bool) {
	var lfErr *Error
	if errors.As(err, &lfErr) && lfErr.Kind == KindRateLimit {
		return lfErr, true
	}
	return nil, false
}
