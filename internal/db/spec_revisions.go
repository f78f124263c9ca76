package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/creative-composer/internal/types"
)

// AddSpecRevision stores a superseded draft. Revision numbers start at 1
// and are assigned from the current count for the run.
func (db *DB) AddSpecRevision(ctx context.Context, runID uuid.UUID, spec *types.CompositionSpec, editedBy string) (*SpecRevision, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec: %w", err)
	}

	var revision SpecRevision
	var stored []byte
	err = db.pool.QueryRow(ctx,
		`INSERT INTO spec_revisions (id, run_id, revision, spec, edited_by)
		 VALUES ($1, $2,
		         (SELECT COALESCE(MAX(revision), 0) + 1 FROM spec_revisions WHERE run_id = $2),
		         $3, $4)
		 RETURNING id, run_id, revision, spec, edited_by, created_at`,
		uuid.New(), runID, specJSON, editedBy,
	).Scan(&revision.ID, &revision.RunID, &revision.Revision, &stored,
		&revision.EditedBy, &revision.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add spec revision: %w", err)
	}

	revision.Spec = &types.CompositionSpec{}
	if err := json.Unmarshal(stored, revision.Spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spec: %w", err)
	}
	return &revision, nil
}

// ListSpecRevisions retrieves the edit history for a run, oldest first.
func (db *DB) ListSpecRevisions(ctx context.Context, runID uuid.UUID) ([]SpecRevision, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, revision, spec, edited_by, created_at
		 FROM spec_revisions
		 WHERE run_id = $1
		 ORDER BY revision`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spec revisions: %w", err)
	}
	defer rows.Close()

	var revisions []SpecRevision
	for rows.Next() {
		var revision SpecRevision
		var stored []byte
		if err := rows.Scan(&revision.ID, &revision.RunID, &revision.Revision,
			&stored, &revision.EditedBy, &revision.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan spec revision: %w", err)
		}
		revision.Spec = &types.CompositionSpec{}
		if err := json.Unmarshal(stored, revision.Spec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal spec: %w", err)
		}
		revisions = append(revisions, revision)
	}
	return revisions, rows.Err()
}
