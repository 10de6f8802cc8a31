package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/jonwraymond/leagueops/resilience"
)

// Kind classifies an upstream failure.
type Kind int

const (
	// KindGeneral is any failure not covered by another kind.
	KindGeneral Kind = iota
	// KindAuth is a rejected or unobtainable credential.
	KindAuth
	// KindRateLimit is an upstream quota rejection (HTTP 429).
	KindRateLimit
	// KindTimeout is an attempt or caller deadline running out.
	KindTimeout
	// KindUnavailable is a 5xx, a transport failure or an open breaker.
	KindUnavailable
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	default:
		return "general"
	}
}

// Sentinel errors, one per kind. An *Error matches the sentinel of its kind
// with errors.Is.
var (
	ErrAuth        = errors.New("upstream: authentication failed")
	ErrRateLimited = errors.New("upstream: rate limit exceeded")
	ErrTimeout     = errors.New("upstream: request timed out")
	ErrUnavailable = errors.New("upstream: service unavailable")

	// ErrInvalidConfig is returned by NewClient and NewTokenSource.
	ErrInvalidConfig = errors.New("upstream: invalid configuration")
)

// Error is a classified upstream failure.
type Error struct {
	Kind       Kind
	Path       string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("upstream: GET ")
	b.WriteString(e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimited:
		return e.Kind == KindRateLimit
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

// Transient reports whether a retry may succeed.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindUnavailable:
		return true
	}
	return false
}

// kindForStatus maps a non-2xx status to a kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindUnavailable
	default:
		return KindGeneral
	}
}

// Classify returns the kind of err. Errors that are not an *Error are
// classified by type, then by message.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneral
	}

	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.Kind
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return KindAuth
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, resilience.ErrTimeout):
		return KindTimeout
	case errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrBulkheadFull):
		return KindUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "unauthorized"):
		return KindAuth
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return KindRateLimit
	case strings.Contains(msg, "timeout"):
		return KindTimeout
	}
	return KindGeneral
}

// IsTransient reports whether err is worth retrying. A caller's own
// cancellation or deadline never is; an attempt timeout arrives as
// resilience.ErrTimeout.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, resilience.ErrTimeout) {
		return false
	}
	switch Classify(err) {
	case KindRateLimit, KindTimeout, KindUnavailable:
		return true
	}
	return false
}

// wrap converts err into an *Error for path, keeping an existing *Error.
func wrap(path string, err error) error {
	if err == nil {
		return nil
	}
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr
	}
	return &Error{Kind: Classify(err), Path: path, Err: err}
}
