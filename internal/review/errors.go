package review

import "fmt"

// StateError represents a gate operation invoked in the wrong status.
type StateError struct {
	Status Status
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a draft in status %q", e.Action, e.Status)
}
