package feed

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for feed calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
	ErrorCancelled      ErrorCategory = "cancelled"
)

// Error wraps a failed page fetch. Any *Error stops its source.
type Error struct {
	Category   ErrorCategory
	SourceID   string
	Page       int
	StatusCode int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("feed %s page %d [%s]: %s", e.SourceID, e.Page, e.Category, e.Message)
	if e.Underlying != nil {
		return msg + ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, sourceID string, page int, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		SourceID:   sourceID,
		Page:       page,
		Message:    message,
		Underlying: underlying,
		Retryable: category == ErrorTimeout ||
			category == ErrorProviderOutage ||
			category == ErrorRateLimited,
	}
}

// categoryForStatus maps a non-2xx response to a category.
func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 404:
		return ErrorNotFound
	case status == 429:
		return ErrorRateLimited
	case status == 408 || status == 504:
		return ErrorTimeout
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorInternal
	}
}

// IsRetryable reports whether err is a feed error worth retrying.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// GetCategory extracts the category from err, defaulting to ErrorInternal.
func GetCategory(err error) ErrorCategory {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ErrorInternal
}
