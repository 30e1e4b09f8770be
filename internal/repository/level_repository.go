package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/database"
)

// LevelRepository reads approval levels. Level creation and replacement is
// handled by WorkflowRepository so a definition and its levels always change
// together.
type LevelRepository struct {
	db *database.DB
}

// NewLevelRepository creates a new LevelRepository.
func NewLevelRepository(db *database.DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// ListByWorkflowID returns the full hierarchy for a definition in ascending
// level order. The resolver depends on this ordering.
func (r *LevelRepository) ListByWorkflowID(ctx context.Context, workflowID string) ([]*ApprovalLevel, error) {
	query := `
		SELECT id, workflow_id, level, operation,
		       approved_group_id, reverted_group_id, supervisory_group_id, init_group_id,
		       email, scanning, created_at, updated_at
		FROM workflow_levels
		WHERE workflow_id = $1
		ORDER BY level ASC
	`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get workflow levels")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *LevelRepository) scanRows(rows pgx.Rows) ([]*ApprovalLevel, error) {
	var levels []*ApprovalLevel
	for rows.Next() {
		lvl := &ApprovalLevel{}
		err := rows.Scan(
			&lvl.ID,
			&lvl.WorkflowID,
			&lvl.Level,
			&lvl.Operation,
			&lvl.ApprovedGroupID,
			&lvl.RevertedGroupID,
			&lvl.SupervisoryGroupID,
			&lvl.InitGroupID,
			&lvl.Email,
			&lvl.Scanning,
			&lvl.CreatedAt,
			&lvl.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan workflow level")
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}
