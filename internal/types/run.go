//nolint:revive // types is a standard Go package name pattern
package types

// RunState is the lifecycle position of a pipeline run.
type RunState string

// Run lifecycle states
const (
	RunStateCreated        RunState = "created"
	RunStateCompiling      RunState = "compiling"
	RunStateAwaitingReview RunState = "awaiting_review"
	RunStateApproved       RunState = "approved"
	RunStateGenerating     RunState = "generating"
	RunStateCompleted      RunState = "completed"
	RunStateFailed         RunState = "failed"
	RunStateCancelled      RunState = "cancelled"
)

// Terminal reports whether the run can no longer change state.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed || s == RunStateCancelled
}

// ErrorCode classifies a run failure for clients.
type ErrorCode string

// Run failure codes
const (
	ErrCodeValidation        ErrorCode = "validation"
	ErrCodeTransientExternal ErrorCode = "transient_external"
	ErrCodePermanentExternal ErrorCode = "permanent_external"
	ErrCodePlacementConflict ErrorCode = "placement_conflict"
	ErrCodeAuthorization     ErrorCode = "authorization"
	ErrCodeState             ErrorCode = "state"
)

// RunError records why a run failed, in a form stable enough to store and
// return to clients.
type RunError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *RunError) Error() string {
	return string(e.Code) + ": " + e.Message
}
