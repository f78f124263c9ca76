package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/creative-composer/internal/types"
)

func TestCanTransitionHappyPath(t *testing.T) {
	assert.True(t, CanTransition(types.RunStateCreated, types.RunStateCompiling))
	assert.True(t, CanTransition(types.RunStateCompiling, types.RunStateAwaitingReview))
	assert.True(t, CanTransition(types.RunStateAwaitingReview, types.RunStateApproved))
	assert.True(t, CanTransition(types.RunStateApproved, types.RunStateGenerating))
	assert.True(t, CanTransition(types.RunStateGenerating, types.RunStateCompleted))
}

func TestCanTransitionNeverSkipsReviewGate(t *testing.T) {
	assert.False(t, CanTransition(types.RunStateCompiling, types.RunStateGenerating))
	assert.False(t, CanTransition(types.RunStateCompiling, types.RunStateApproved))
	assert.False(t, CanTransition(types.RunStateAwaitingReview, types.RunStateGenerating))
	assert.False(t, CanTransition(types.RunStateCreated, types.RunStateCompleted))
}

func TestCanTransitionToFailureStates(t *testing.T) {
	for _, from := range []types.RunState{
		types.RunStateCreated, types.RunStateCompiling, types.RunStateAwaitingReview,
		types.RunStateApproved, types.RunStateGenerating,
	} {
		assert.True(t, CanTransition(from, types.RunStateFailed), "from %s", from)
		assert.True(t, CanTransition(from, types.RunStateCancelled), "from %s", from)
	}
}

func TestCanTransitionOutOfTerminalStates(t *testing.T) {
	for _, from := range []types.RunState{
		types.RunStateCompleted, types.RunStateFailed, types.RunStateCancelled,
	} {
		assert.False(t, CanTransition(from, types.RunStateCompiling), "from %s", from)
		assert.False(t, CanTransition(from, types.RunStateCancelled), "from %s", from)
	}
}
