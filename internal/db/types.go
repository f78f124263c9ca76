package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/creative-composer/internal/types"
)

// RunRecord is the stored form of a pipeline run. Version implements the
// optimistic lock: every successful update increments it, and writers must
// present the version they read.
type RunRecord struct {
	ID              uuid.UUID               `json:"id"`
	OwnerID         string                  `json:"owner_id"`
	State           types.RunState          `json:"state"`
	Attributes      types.RunAttributes     `json:"attributes"`
	ImageRef        string                  `json:"image_ref"`
	DraftSpec       *types.CompositionSpec  `json:"draft_spec,omitempty"`
	ApprovedSpec    *types.CompositionSpec  `json:"approved_spec,omitempty"`
	CreativeRef     *string                 `json:"creative_ref,omitempty"`
	CompileAttempts int                     `json:"compile_attempts"`
	RenderAttempts  int                     `json:"render_attempts"`
	RunError        *types.RunError         `json:"run_error,omitempty"`
	Version         int64                   `json:"version"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// SpecRevision is one superseded draft, kept when a reviewer edit replaces
// the pending specification.
type SpecRevision struct {
	ID        uuid.UUID              `json:"id"`
	RunID     uuid.UUID              `json:"run_id"`
	Revision  int                    `json:"revision"`
	Spec      *types.CompositionSpec `json:"spec"`
	EditedBy  string                 `json:"edited_by"`
	CreatedAt time.Time              `json:"created_at"`
}
