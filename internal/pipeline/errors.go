package pipeline

import "fmt"

// InputError represents rejected run inputs.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid run input: %s", e.Message)
}
