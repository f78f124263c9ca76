package render

import "fmt"

// CapabilityError represents a failure of the image generation capability
// after the retry policy was exhausted. Attempts records how many calls
// were actually made before giving up.
type CapabilityError struct {
	Message  string
	Cause    error
	Attempts int
}

func (e *CapabilityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render capability failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render capability failed: %s", e.Message)
}

func (e *CapabilityError) Unwrap() error {
	return e.Cause
}

// NotApprovedError means generation was requested with a specification that
// never passed the review gate.
type NotApprovedError struct{}

func (e *NotApprovedError) Error() string {
	return "generation requires an approved composition specification"
}
