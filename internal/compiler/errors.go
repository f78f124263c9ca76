package compiler

import (
	"fmt"

	"github.com/jonathan/creative-composer/internal/types"
)

// CapabilityError represents a failure of the layout capability call after
// the retry policy was exhausted. Attempts records how many calls were
// actually made before giving up.
type CapabilityError struct {
	Message  string
	Cause    error
	Attempts int
}

func (e *CapabilityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("layout capability failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("layout capability failed: %s", e.Message)
}

func (e *CapabilityError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response that passed the schema gate but could
// not be decoded into typed form.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("draft parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("draft parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// InvalidDraftError means the model produced a structurally valid draft
// that still violates composition rules, and the single corrective retry
// did not fix it.
type InvalidDraftError struct {
	Violations types.Violations
}

func (e *InvalidDraftError) Error() string {
	return fmt.Sprintf("draft composition is invalid: %s", e.Violations.Summary())
}
