// Package review implements the human review gate between the two pipeline
// stages. Every draft passes through the gate; generation only ever sees a
// specification a reviewer explicitly approved. The gate validates against
// the run's attributes, so an edit cannot add a pricing badge to a run
// whose price toggle is off or a logo to a run without one.
package review

import (
	"time"

	"github.com/jonathan/creative-composer/internal/types"
	"github.com/jonathan/creative-composer/internal/validation"
)

// Status is the gate position of a draft.
type Status string

// Gate statuses
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Revision records one full draft replacement made during review. Edits
// always replace the whole specification; the gate never patches fields.
type Revision struct {
	Spec     *types.CompositionSpec `json:"spec"`
	EditedBy string                 `json:"edited_by"`
	EditedAt time.Time              `json:"edited_at"`
}

// Gate holds one draft through its review cycle. It is not safe for
// concurrent use; callers serialize access per run.
type Gate struct {
	attrs     types.RunAttributes
	status    Status
	current   *types.CompositionSpec
	approved  *types.CompositionSpec
	revisions []Revision
}

// NewGate opens a review gate over a compiled draft. The attributes are
// the run's: pricing and branding presence are checked against them on
// every edit and on approval. The gate works on its own copy so later
// mutations of the input cannot leak into review.
func NewGate(draft *types.CompositionSpec, attrs types.RunAttributes) *Gate {
	return &Gate{
		attrs:   attrs,
		status:  StatusPending,
		current: draft.Clone(),
	}
}

// Status returns the gate position.
func (g *Gate) Status() Status {
	return g.status
}

// Current returns a copy of the draft under review.
func (g *Gate) Current() *types.CompositionSpec {
	return g.current.Clone()
}

// Revisions returns the edit history, oldest first.
func (g *Gate) Revisions() []Revision {
	out := make([]Revision, len(g.revisions))
	copy(out, g.revisions)
	return out
}

// Edit replaces the pending draft with an edited specification. The edit
// must be a complete specification that is valid for the run's attributes
// and leaves the canvas untouched. The replaced draft is kept in the
// revision history. Editing a rejected draft re-opens the gate; only
// approval is final.
func (g *Gate) Edit(edited *types.CompositionSpec, reviewer string) error {
	if g.status == StatusApproved {
		return &StateError{Status: g.status, Action: "edit"}
	}

	violations := validation.ValidateForRun(edited, g.attrs)
	canvasViolations := validation.CheckCanvasUnchanged(g.current, edited)
	for _, v := range canvasViolations.Violations {
		violations.Add(v.Field, v.Rule, v.Details)
	}
	if !violations.Empty() {
		return &validation.Error{Violations: violations}
	}

	g.revisions = append(g.revisions, Revision{
		Spec:     g.current,
		EditedBy: reviewer,
		EditedAt: time.Now().UTC(),
	})
	g.current = edited.Clone()
	g.status = StatusPending
	return nil
}

// Approve freezes the pending draft and returns the approved copy. The
// draft is re-validated against the run's attributes first; a draft that
// fails moves the gate to rejected, and the next successful Edit re-opens
// it. After approval the gate is closed for good.
func (g *Gate) Approve() (*types.CompositionSpec, error) {
	if g.status != StatusPending {
		return nil, &StateError{Status: g.status, Action: "approve"}
	}

	if violations := validation.ValidateForRun(g.current, g.attrs); !violations.Empty() {
		g.status = StatusRejected
		return nil, &validation.Error{Violations: violations}
	}

	g.status = StatusApproved
	g.approved = g.current.Clone()
	return g.approved.Clone(), nil
}

// Approved returns a copy of the frozen specification, or nil before
// approval.
func (g *Gate) Approved() *types.CompositionSpec {
	if g.approved == nil {
		return nil
	}
	return g.approved.Clone()
}

// Reject closes the gate without an approved specification. A later Edit
// may re-open it.
func (g *Gate) Reject() error {
	if g.status != StatusPending {
		return &StateError{Status: g.status, Action: "reject"}
	}
	g.status = StatusRejected
	return nil
}
