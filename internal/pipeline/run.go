// Package pipeline provides the high-level orchestration for creative
// generation: the run state machine, the two capability stages, and the
// review gate between them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/creative-composer/internal/compiler"
	"github.com/jonathan/creative-composer/internal/db"
	"github.com/jonathan/creative-composer/internal/layout"
	"github.com/jonathan/creative-composer/internal/llm"
	"github.com/jonathan/creative-composer/internal/render"
	"github.com/jonathan/creative-composer/internal/review"
	"github.com/jonathan/creative-composer/internal/types"
	"github.com/jonathan/creative-composer/internal/validation"
)

// RunStore is the persistence surface the orchestrator needs. *db.DB
// satisfies it; tests substitute an in-memory implementation.
type RunStore interface {
	CreateRun(ctx context.Context, ownerID, imageRef string, attrs types.RunAttributes) (*db.RunRecord, error)
	GetRun(ctx context.Context, id uuid.UUID) (*db.RunRecord, error)
	ListRuns(ctx context.Context, ownerID string) ([]db.RunRecord, error)
	UpdateRun(ctx context.Context, record *db.RunRecord) error
	AddSpecRevision(ctx context.Context, runID uuid.UUID, spec *types.CompositionSpec, editedBy string) (*db.SpecRevision, error)
	ListSpecRevisions(ctx context.Context, runID uuid.UUID) ([]db.SpecRevision, error)
}

// BlobStore stores image bytes behind opaque handles.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, handle string) ([]byte, error)
}

// SpecCompiler produces draft specifications (Stage 1).
type SpecCompiler interface {
	Compile(ctx context.Context, image *llm.ImageInput, attrs types.RunAttributes) (*compiler.Result, error)
}

// CreativeGenerator renders approved specifications (Stage 2).
type CreativeGenerator interface {
	Generate(ctx context.Context, image *llm.ImageInput, spec *types.CompositionSpec) (*render.Artifact, error)
}

// Orchestrator drives runs through the state machine. All state writes go
// through the store's optimistic lock, so a run cancelled mid-stage wins
// the race and the stage results are discarded.
type Orchestrator struct {
	store     RunStore
	blobs     BlobStore
	compiler  SpecCompiler
	generator CreativeGenerator
}

// NewOrchestrator wires the orchestrator from its parts.
func NewOrchestrator(store RunStore, blobs BlobStore, specCompiler SpecCompiler, generator CreativeGenerator) *Orchestrator {
	return &Orchestrator{
		store:     store,
		blobs:     blobs,
		compiler:  specCompiler,
		generator: generator,
	}
}

// CreateRun stores the product image and opens a new run in the created
// state.
func (o *Orchestrator) CreateRun(ctx context.Context, ownerID string, imageData []byte, imageFormat string, attrs types.RunAttributes) (*db.RunRecord, error) {
	if err := validateAttrs(attrs); err != nil {
		return nil, err
	}
	if len(imageData) == 0 {
		return nil, &InputError{Message: "product image is required"}
	}
	if imageFormat == "" {
		imageFormat = "png"
	}

	key := fmt.Sprintf("inputs/%s.%s", uuid.New(), imageFormat)
	handle, err := o.blobs.Put(ctx, key, "image/"+imageFormat, imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}

	return o.store.CreateRun(ctx, ownerID, handle, attrs)
}

// Compile runs Stage 1 for a created run and parks the draft at the review
// gate. The run ends in awaiting_review on success and failed on a
// non-retryable error; a concurrent cancel wins and the draft is dropped.
func (o *Orchestrator) Compile(ctx context.Context, id uuid.UUID) (*db.RunRecord, error) {
	record, err := o.transition(ctx, id, types.RunStateCompiling)
	if err != nil {
		return nil, err
	}

	image, err := o.loadImage(ctx, record.ImageRef)
	if err != nil {
		return o.fail(ctx, record, types.ErrCodePermanentExternal, err.Error())
	}

	result, err := o.compiler.Compile(ctx, image, record.Attributes)
	if err != nil {
		record.CompileAttempts = failureAttempts(err)
		return o.fail(ctx, record, classifyFailure(err), err.Error())
	}

	record.DraftSpec = result.Spec
	record.CompileAttempts = result.Attempts
	record.State = types.RunStateAwaitingReview
	return o.persistStage(ctx, record)
}

// Start creates a run and compiles it in one call.
func (o *Orchestrator) Start(ctx context.Context, ownerID string, imageData []byte, imageFormat string, attrs types.RunAttributes) (*db.RunRecord, error) {
	record, err := o.CreateRun(ctx, ownerID, imageData, imageFormat, attrs)
	if err != nil {
		return nil, err
	}
	return o.Compile(ctx, record.ID)
}

// Edit replaces the pending draft with a reviewer-edited specification.
// The run stays in awaiting_review; the superseded draft is kept as a
// revision.
func (o *Orchestrator) Edit(ctx context.Context, id uuid.UUID, reviewerID string, edited *types.CompositionSpec) (*db.RunRecord, error) {
	record, err := o.authorized(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}
	if record.State != types.RunStateAwaitingReview {
		return nil, &StateError{From: record.State, To: types.RunStateAwaitingReview}
	}

	gate := review.NewGate(record.DraftSpec, record.Attributes)
	if err := gate.Edit(edited, reviewerID); err != nil {
		return nil, err
	}

	superseded := record.DraftSpec
	record.DraftSpec = gate.Current()
	if err := o.store.UpdateRun(ctx, record); err != nil {
		return nil, err
	}

	// The superseded draft goes into history only after the update wins
	// the version check, so an edit that loses to a concurrent writer
	// leaves no revision row behind.
	if _, err := o.store.AddSpecRevision(ctx, record.ID, superseded, reviewerID); err != nil {
		return nil, fmt.Errorf("failed to record revision: %w", err)
	}
	return record, nil
}

// Approve freezes the pending draft, resolves placements, and moves the
// run to approved. A placement conflict leaves the run at the gate so the
// reviewer can edit and try again.
func (o *Orchestrator) Approve(ctx context.Context, id uuid.UUID, reviewerID string) (*db.RunRecord, error) {
	record, err := o.authorized(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}
	if record.State != types.RunStateAwaitingReview {
		return nil, &StateError{From: record.State, To: types.RunStateApproved}
	}

	gate := review.NewGate(record.DraftSpec, record.Attributes)
	approved, err := gate.Approve()
	if err != nil {
		return nil, err
	}

	resolved, err := layout.Resolve(approved)
	if err != nil {
		return nil, err
	}

	record.ApprovedSpec = resolved
	record.State = types.RunStateApproved
	if err := o.store.UpdateRun(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Generate runs Stage 2 for an approved run and stores the finished
// creative. The approved specification is read only from here on.
func (o *Orchestrator) Generate(ctx context.Context, id uuid.UUID) (*db.RunRecord, error) {
	record, err := o.transition(ctx, id, types.RunStateGenerating)
	if err != nil {
		return nil, err
	}

	image, err := o.loadImage(ctx, record.ImageRef)
	if err != nil {
		return o.fail(ctx, record, types.ErrCodePermanentExternal, err.Error())
	}

	artifact, err := o.generator.Generate(ctx, image, record.ApprovedSpec)
	if err != nil {
		record.RenderAttempts = failureAttempts(err)
		return o.fail(ctx, record, classifyFailure(err), err.Error())
	}

	ext := "png"
	if artifact.MIMEType == "image/jpeg" {
		ext = "jpg"
	}
	key := fmt.Sprintf("creatives/%s.%s", record.ID, ext)
	handle, err := o.blobs.Put(ctx, key, artifact.MIMEType, artifact.Data)
	if err != nil {
		return o.fail(ctx, record, types.ErrCodePermanentExternal, err.Error())
	}

	record.CreativeRef = &handle
	record.RenderAttempts = artifact.Attempts
	record.State = types.RunStateCompleted
	return o.persistStage(ctx, record)
}

// ApproveAndGenerate approves the draft and renders it in one call, for
// synchronous callers like the CLI.
func (o *Orchestrator) ApproveAndGenerate(ctx context.Context, id uuid.UUID, reviewerID string) (*db.RunRecord, error) {
	record, err := o.Approve(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}
	return o.Generate(ctx, record.ID)
}

// Cancel moves a non-terminal run to cancelled. Stage work already in
// flight loses the optimistic lock race and its results are discarded.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID, reviewerID string) (*db.RunRecord, error) {
	record, err := o.authorized(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}
	if record.State.Terminal() {
		return nil, &StateError{From: record.State, To: types.RunStateCancelled}
	}

	record.State = types.RunStateCancelled
	if err := o.store.UpdateRun(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Regenerate opens a fresh run in the created state reusing a finished
// run's image and attributes. The old run and its creative are untouched;
// the caller compiles the fresh run when ready.
func (o *Orchestrator) Regenerate(ctx context.Context, id uuid.UUID, reviewerID string) (*db.RunRecord, error) {
	record, err := o.authorized(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}
	if !record.State.Terminal() {
		return nil, &StateError{From: record.State, To: types.RunStateCreated}
	}

	return o.store.CreateRun(ctx, record.OwnerID, record.ImageRef, record.Attributes)
}

// GetRun retrieves a run the caller owns.
func (o *Orchestrator) GetRun(ctx context.Context, id uuid.UUID, reviewerID string) (*db.RunRecord, error) {
	return o.authorized(ctx, id, reviewerID)
}

// ListRuns retrieves the caller's runs, newest first.
func (o *Orchestrator) ListRuns(ctx context.Context, reviewerID string) ([]db.RunRecord, error) {
	return o.store.ListRuns(ctx, reviewerID)
}

// ListRevisions retrieves the edit history of a run the caller owns.
func (o *Orchestrator) ListRevisions(ctx context.Context, id uuid.UUID, reviewerID string) ([]db.SpecRevision, error) {
	if _, err := o.authorized(ctx, id, reviewerID); err != nil {
		return nil, err
	}
	return o.store.ListSpecRevisions(ctx, id)
}

// Creative returns the finished image bytes for a completed run.
func (o *Orchestrator) Creative(ctx context.Context, id uuid.UUID, reviewerID string) ([]byte, error) {
	record, err := o.authorized(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}
	if record.State != types.RunStateCompleted || record.CreativeRef == nil {
		return nil, &StateError{From: record.State, To: types.RunStateCompleted}
	}
	return o.blobs.Get(ctx, *record.CreativeRef)
}

func (o *Orchestrator) authorized(ctx context.Context, id uuid.UUID, reviewerID string) (*db.RunRecord, error) {
	record, err := o.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if reviewerID != "" && record.OwnerID != reviewerID {
		return nil, &AuthorizationError{RunOwner: record.OwnerID, Caller: reviewerID}
	}
	return record, nil
}

// transition performs the entry CAS for a stage: it moves the run into the
// working state before any capability call, so a concurrent writer is
// detected up front.
func (o *Orchestrator) transition(ctx context.Context, id uuid.UUID, to types.RunState) (*db.RunRecord, error) {
	record, err := o.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(record.State, to) {
		return nil, &StateError{From: record.State, To: to}
	}

	record.State = to
	if err := o.store.UpdateRun(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// persistStage writes stage results back. Losing the optimistic lock to a
// cancel is not an error: the stored record stands and the stage results
// are dropped.
func (o *Orchestrator) persistStage(ctx context.Context, record *db.RunRecord) (*db.RunRecord, error) {
	err := o.store.UpdateRun(ctx, record)
	if err == nil {
		return record, nil
	}
	if errors.Is(err, db.ErrStaleRun) {
		stored, getErr := o.store.GetRun(ctx, record.ID)
		if getErr != nil {
			return nil, getErr
		}
		if stored.State.Terminal() {
			return stored, nil
		}
	}
	return nil, err
}

func (o *Orchestrator) fail(ctx context.Context, record *db.RunRecord, code types.ErrorCode, message string) (*db.RunRecord, error) {
	record.State = types.RunStateFailed
	record.RunError = &types.RunError{Code: code, Message: message}
	stored, err := o.persistStage(ctx, record)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (o *Orchestrator) loadImage(ctx context.Context, handle string) (*llm.ImageInput, error) {
	data, err := o.blobs.Get(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to load product image: %w", err)
	}
	return &llm.ImageInput{Format: imageFormat(handle), Data: data}, nil
}

// imageFormat derives the inline image format from a handle's extension.
func imageFormat(handle string) string {
	ext := strings.TrimPrefix(path.Ext(handle), ".")
	switch ext {
	case "jpg":
		return "jpeg"
	case "":
		return "png"
	default:
		return ext
	}
}

// classifyFailure maps stage errors onto run error codes.
func classifyFailure(err error) types.ErrorCode {
	var invalid *compiler.InvalidDraftError
	if errors.As(err, &invalid) {
		return types.ErrCodeValidation
	}
	var conflict *layout.ConflictError
	if errors.As(err, &conflict) {
		return types.ErrCodePlacementConflict
	}
	if llm.IsTransient(err) {
		return types.ErrCodeTransientExternal
	}
	var ve *validation.Error
	if errors.As(err, &ve) {
		return types.ErrCodeValidation
	}
	return types.ErrCodePermanentExternal
}

// failureAttempts recovers the attempt count a failed stage actually spent.
// Capability errors carry it from the retry loop; anything else failed
// before the first attempt finished.
func failureAttempts(err error) int {
	var compileErr *compiler.CapabilityError
	if errors.As(err, &compileErr) && compileErr.Attempts > 0 {
		return compileErr.Attempts
	}
	var renderErr *render.CapabilityError
	if errors.As(err, &renderErr) && renderErr.Attempts > 0 {
		return renderErr.Attempts
	}
	return 1
}

func validateAttrs(attrs types.RunAttributes) error {
	if strings.TrimSpace(attrs.ProductDescription) == "" {
		return &InputError{Message: "product description is required"}
	}
	if attrs.IncludePrice && strings.TrimSpace(attrs.Price) == "" {
		return &InputError{Message: "price is required when the price toggle is on"}
	}
	if attrs.LogoEnabled && strings.TrimSpace(attrs.LogoRef) == "" {
		return &InputError{Message: "logo reference is required when the logo is enabled"}
	}
	return nil
}
