package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeHTTP       ErrorType = "http"
	ErrorTypeListing    ErrorType = "listing"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeCheckpoint ErrorType = "checkpoint"
	ErrorTypeExport     ErrorType = "export"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeClassifier ErrorType = "classifier"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a typed scraper error. Op names the failing operation and URL is
// set when the failure concerns a specific page.
type Error struct {
	Type ErrorType
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Type) + " error"
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" (%s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error wrapping err
func New(t ErrorType, op string, err error) *Error {
	return &Error{Type: t, Op: op, Err: err}
}

// NewWithURL creates a typed error for a page URL
func NewWithURL(t ErrorType, op, url string, err error) *Error {
	return &Error{Type: t, Op: op, URL: url, Err: err}
}

// TypeOf returns the type of the first *Error in err's chain, or
// ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err's chain contains an *Error of the given type
func Is(err error, t ErrorType) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNavigation, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableError checks the type of err's chain
func IsRetryableError(err error) bool {
	return IsRetryable(TypeOf(err))
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 408, 429:
		return true
	case 401, 403, 404, 410:
		return false
	default:
		return statusCode >= 500
	}
}
