// Package errs defines the typed error kinds the engine reports across its
// public boundaries. Every kind wraps an underlying cause and carries only a
// human-readable message: no secret material is ever embedded in an error.
package errs

import "fmt"

// Kind identifies one of the error categories from the error handling design.
type Kind string

const (
	// KindConfig is a missing or invalid configuration value. Fatal at startup only.
	KindConfig Kind = "ConfigError"
	// KindTransport is an HTTP or notification-socket failure. Retriable at the next loop tick.
	KindTransport Kind = "TransportError"
	// KindQuote is a failure to quote a swap, typically insufficient liquidity.
	KindQuote Kind = "QuoteError"
	// KindNoRoute means no pool or path connects the requested tokens.
	KindNoRoute Kind = "NoRouteError"
	// KindSubmission means the bundler rejected a swap submission.
	KindSubmission Kind = "SubmissionError"
	// KindExecutionTimeout means a submitted transaction's notification never arrived in time.
	KindExecutionTimeout Kind = "ExecutionTimeout"
	// KindCancelled means the engine was stopped mid-operation.
	KindCancelled Kind = "CancelledError"
)

// Error is a typed error carrying a Kind and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, errs.Config(...)) style comparisons to match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Config builds a ConfigError.
func Config(cause error, format string, args ...any) *Error {
	return newf(KindConfig, cause, format, args...)
}

// Transport builds a TransportError.
func Transport(cause error, format string, args ...any) *Error {
	return newf(KindTransport, cause, format, args...)
}

// Quote builds a QuoteError.
func Quote(cause error, format string, args ...any) *Error {
	return newf(KindQuote, cause, format, args...)
}

// NoRoute builds a NoRouteError.
func NoRoute(cause error, format string, args ...any) *Error {
	return newf(KindNoRoute, cause, format, args...)
}

// Submission builds a SubmissionError.
func Submission(cause error, format string, args ...any) *Error {
	return newf(KindSubmission, cause, format, args...)
}

// ExecutionTimeout builds an ExecutionTimeout error.
func ExecutionTimeout(cause error, format string, args ...any) *Error {
	return newf(KindExecutionTimeout, cause, format, args...)
}

// Cancelled builds a CancelledError.
func Cancelled(format string, args ...any) *Error {
	return newf(KindCancelled, nil, format, args...)
}

// KindOf returns the Kind of err if it (or something it wraps) is an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
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
