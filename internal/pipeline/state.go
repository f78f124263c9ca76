package pipeline

import (
	"fmt"

	"github.com/jonathan/creative-composer/internal/types"
)

// transitions is the run state machine. Terminal states have no outgoing
// edges; failed and cancelled are reachable from any non-terminal state and
// are handled separately in CanTransition.
var transitions = map[types.RunState][]types.RunState{
	types.RunStateCreated:        {types.RunStateCompiling},
	types.RunStateCompiling:      {types.RunStateAwaitingReview},
	types.RunStateAwaitingReview: {types.RunStateApproved},
	types.RunStateApproved:       {types.RunStateGenerating},
	types.RunStateGenerating:     {types.RunStateCompleted},
}

// CanTransition reports whether a run may move from one state to another.
// Generation never skips the review gate: the only path from compiling to
// generating runs through awaiting_review and approved.
func CanTransition(from, to types.RunState) bool {
	if from.Terminal() {
		return false
	}
	if to == types.RunStateFailed || to == types.RunStateCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateError represents an operation attempted in a state that does not
// allow it.
type StateError struct {
	From types.RunState
	To   types.RunState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal run transition from %q to %q", e.From, e.To)
}

// AuthorizationError means the caller does not own the run.
type AuthorizationError struct {
	RunOwner string
	Caller   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("caller %q is not authorized for this run", e.Caller)
}
