package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/creative-composer/internal/types"
)

const runColumns = `id, owner_id, state, attributes, image_ref, draft_spec, approved_spec,
	        creative_ref, compile_attempts, render_attempts, run_error, version, created_at, updated_at`

// CreateRun inserts a new run in the created state and returns the stored
// record.
func (db *DB) CreateRun(ctx context.Context, ownerID, imageRef string, attrs types.RunAttributes) (*RunRecord, error) {
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO runs (id, owner_id, state, attributes, image_ref)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+runColumns,
		uuid.New(), ownerID, types.RunStateCreated, attrsJSON, imageRef,
	)
	record, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return record, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	record, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return record, nil
}

// ListRuns retrieves all runs for an owner, newest first.
func (db *DB) ListRuns(ctx context.Context, ownerID string) ([]RunRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` FROM runs WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// UpdateRun writes the record back under the optimistic lock. The update
// only applies when the stored version still equals record.Version; on a
// version mismatch the write is discarded and ErrStaleRun returned. On
// success the record's Version reflects the new stored version.
func (db *DB) UpdateRun(ctx context.Context, record *RunRecord) error {
	attrsJSON, err := json.Marshal(record.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	draftJSON, err := marshalSpec(record.DraftSpec)
	if err != nil {
		return err
	}
	approvedJSON, err := marshalSpec(record.ApprovedSpec)
	if err != nil {
		return err
	}
	var errJSON []byte
	if record.RunError != nil {
		if errJSON, err = json.Marshal(record.RunError); err != nil {
			return fmt.Errorf("failed to marshal run error: %w", err)
		}
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE runs
		 SET state = $1, attributes = $2, draft_spec = $3, approved_spec = $4,
		     creative_ref = $5, compile_attempts = $6, render_attempts = $7,
		     run_error = $8, version = version + 1, updated_at = NOW()
		 WHERE id = $9 AND version = $10`,
		record.State, attrsJSON, draftJSON, approvedJSON,
		record.CreativeRef, record.CompileAttempts, record.RenderAttempts,
		errJSON, record.ID, record.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := db.GetRun(ctx, record.ID); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStaleRun
	}

	record.Version++
	return nil
}

func marshalSpec(spec *types.CompositionSpec) ([]byte, error) {
	if spec == nil {
		return nil, nil
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec: %w", err)
	}
	return data, nil
}

func scanRun(row pgx.Row) (*RunRecord, error) {
	var record RunRecord
	var attrsJSON, draftJSON, approvedJSON, errJSON []byte

	err := row.Scan(&record.ID, &record.OwnerID, &record.State, &attrsJSON,
		&record.ImageRef, &draftJSON, &approvedJSON, &record.CreativeRef,
		&record.CompileAttempts, &record.RenderAttempts, &errJSON,
		&record.Version, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(attrsJSON, &record.Attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	if draftJSON != nil {
		record.DraftSpec = &types.CompositionSpec{}
		if err := json.Unmarshal(draftJSON, record.DraftSpec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft spec: %w", err)
		}
	}
	if approvedJSON != nil {
		record.ApprovedSpec = &types.CompositionSpec{}
		if err := json.Unmarshal(approvedJSON, record.ApprovedSpec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approved spec: %w", err)
		}
	}
	if errJSON != nil {
		record.RunError = &types.RunError{}
		if err := json.Unmarshal(errJSON, record.RunError); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run error: %w", err)
		}
	}

	return &record, nil
}
