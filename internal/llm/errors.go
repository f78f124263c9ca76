package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrorClass categorizes external capability failures. Only rate-limit and
// timeout failures are retried.
type ErrorClass string

// Error classes for external capability failures
const (
	ClassRateLimited ErrorClass = "rate-limited"
	ClassTimeout     ErrorClass = "timeout"
	ClassMalformed   ErrorClass = "malformed-response"
	ClassUnavailable ErrorClass = "capability-unavailable"
	ClassPermanent   ErrorClass = "permanent"
)

// TransientError wraps a retryable external failure (timeout, rate limit).
type TransientError struct {
	Class ErrorClass
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient capability error (%s): %v", e.Class, e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// PermanentError wraps a non-retryable external failure: the capability
// rejected the request or is unavailable.
type PermanentError struct {
	Class ErrorClass
	Cause error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent capability error (%s): %v", e.Class, e.Cause)
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// MalformedResponseError indicates the capability answered but the payload
// was unusable (no candidates, no image part, unparseable text).
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed capability response: %s", e.Detail)
}

// Classify maps a raw client error onto the boundary taxonomy. It is
// idempotent: already-classified errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var transient *TransientError
	var permanent *PermanentError
	var malformed *MalformedResponseError
	if errors.As(err, &transient) || errors.As(err, &permanent) || errors.As(err, &malformed) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Class: ClassTimeout, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &TransientError{Class: ClassRateLimited, Cause: err}
		case apiErr.Code == http.StatusServiceUnavailable:
			return &PermanentError{Class: ClassUnavailable, Cause: err}
		case apiErr.Code >= 500:
			return &PermanentError{Class: ClassUnavailable, Cause: err}
		default:
			return &PermanentError{Class: ClassPermanent, Cause: err}
		}
	}

	return &PermanentError{Class: ClassPermanent, Cause: err}
}

// IsTransient reports whether err is in a retryable failure class.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
