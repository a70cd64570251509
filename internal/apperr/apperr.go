// Package apperr defines the estimator's typed error taxonomy (spec §7): a
// code, message, query summary, retryable flag, HTTP status mapping, and an
// Unwrap-compatible cause chain.
package apperr

import "fmt"

// Code is a closed enumeration of error kinds the engine can surface.
type Code string

const (
	// MemberNotFound: member has no active coverage. Non-retryable.
	MemberNotFound Code = "MEMBER_NOT_FOUND"
	// BenefitsNotFound: 4xx/5xx from the Benefits service other than member-not-found.
	BenefitsNotFound Code = "BENEFITS_NOT_FOUND"
	// AccumulatorUnavailable: failure from the Accumulators service.
	AccumulatorUnavailable Code = "ACCUMULATOR_UNAVAILABLE"
	// RateNotFound: rate lookup returned found=false or kind != AMOUNT.
	RateNotFound Code = "RATE_NOT_FOUND"
	// Unauthorized: surfaces only if the 401-refresh path itself fails.
	Unauthorized Code = "UNAUTHORIZED"
	// UpstreamTimeout: the request deadline expired mid-fetch.
	UpstreamTimeout Code = "UPSTREAM_TIMEOUT"
	// UpstreamUnavailable: transport error or circuit-breaker-open.
	UpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	// ConfigError: fatal at start-up.
	ConfigError Code = "CONFIG_ERROR"
)

// httpStatus is the request-level HTTP status mapping from spec §7.
var httpStatus = map[Code]int{
	MemberNotFound:         404,
	BenefitsNotFound:       502,
	AccumulatorUnavailable: 502,
	RateNotFound:           404,
	Unauthorized:           401,
	UpstreamTimeout:        504,
	UpstreamUnavailable:    503,
	ConfigError:            500,
}

// Error is the engine's single structured error type.
type Error struct {
	Code         Code
	Message      string
	QuerySummary string
	Retryable    bool
	Cause        error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause attaches an underlying cause and returns e for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithQuerySummary attaches the query_summary field from spec §7.
func (e *Error) WithQuerySummary(summary string) *Error {
	e.QuerySummary = summary
	return e
}

// WithRetryable marks whether a fresh attempt of the same call might succeed.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// HTTPStatus returns the request-level status mapping for this error's code.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return 500
}

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if as(err, &e) {
		return e.Retryable
	}
	return false
}

// CodeOf extracts the Code from err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if as(err, &e) {
		return e.Code
	}
	return ""
}

// as is a tiny indirection over errors.As kept local to avoid importing
// errors in every call site that just wants code/retryable extraction.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
