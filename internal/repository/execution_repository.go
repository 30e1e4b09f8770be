package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/database"
)

// ExecutionRepository is the execution ledger: one row per
// (definition, document, purpose) key holding the document's current level
// and status label. All mutations run on a caller-supplied transaction so
// the read-resolve-write sequence for one key stays atomic.
type ExecutionRepository struct {
	db *database.DB
}

// NewExecutionRepository creates a new ExecutionRepository.
func NewExecutionRepository(db *database.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

const executionColumns = `
	id, workflow_id, document_id, purpose,
	current_level, current_status, created_at, updated_at`

// FindForUpdate loads the execution row for a key and locks it for the
// duration of the transaction, serializing concurrent transitions on the
// same key. Returns nil when no row exists yet.
func (r *ExecutionRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, workflowID, documentID string, purpose Purpose) (*ExecutionRecord, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE workflow_id = $1 AND document_id = $2 AND purpose = $3
		FOR UPDATE
	`

	rec, err := r.scanRecord(tx.QueryRow(ctx, query, workflowID, documentID, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get workflow execution")
	}
	return rec, nil
}

// Upsert creates the ledger row for a key or updates its current level and
// status in place.
func (r *ExecutionRepository) Upsert(ctx context.Context, tx pgx.Tx, workflowID, documentID string, purpose Purpose, status *string, level int) (*ExecutionRecord, error) {
	query := `
		INSERT INTO workflow_executions
		    (workflow_id, document_id, purpose, current_level, current_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workflow_id, document_id, purpose)
		DO UPDATE SET
		    current_level  = EXCLUDED.current_level,
		    current_status = EXCLUDED.current_status,
		    updated_at     = NOW()
		RETURNING ` + executionColumns + `
	`

	rec, err := r.scanRecord(tx.QueryRow(ctx, query, workflowID, documentID, purpose, level, status))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to upsert workflow execution")
	}
	return rec, nil
}

// Delete removes a ledger row. Used when a revert sends the document back to
// origination so a later submit starts from a clean slate.
func (r *ExecutionRepository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM workflow_executions WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to delete workflow execution")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("workflow_execution", id)
	}
	return nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type executionScanner interface {
	Scan(dest ...any) error
}

func (r *ExecutionRepository) scanRecord(row executionScanner) (*ExecutionRecord, error) {
	rec := &ExecutionRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.WorkflowID,
		&rec.DocumentID,
		&rec.Purpose,
		&rec.CurrentLevel,
		&rec.CurrentStatus,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
