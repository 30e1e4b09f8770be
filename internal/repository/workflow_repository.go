package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/database"
)

// uniqueViolation is the Postgres error code raised by the
// (entity_type, flow_type, risk_rating, channel_id, purpose) constraint.
const uniqueViolation = "23505"

// WorkflowRepository manages workflow definitions and their levels.
// A definition and its levels are always written together in one
// transaction; updating a definition deletes and re-inserts the full
// level set rather than merging.
type WorkflowRepository struct {
	db *database.DB
}

// NewWorkflowRepository creates a new WorkflowRepository.
func NewWorkflowRepository(db *database.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const definitionColumns = `
	id, code, description, entity_type, flow_type, risk_rating,
	channel_id, purpose, terminal_level,
	created_by, updated_by, created_at, updated_at`

// Create inserts a definition and its levels in one transaction.
// Returns a conflict error when a definition already exists for the tuple.
func (r *WorkflowRepository) Create(ctx context.Context, def *WorkflowDefinition, levels []*ApprovalLevel) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO workflow_definitions
			    (code, description, entity_type, flow_type, risk_rating,
			     channel_id, purpose, terminal_level, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5,
			        $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			def.Code,
			def.Description,
			def.EntityType,
			def.FlowType,
			def.RiskRating,
			def.ChannelID,
			def.Purpose,
			def.TerminalLevel,
			def.CreatedBy,
			def.UpdatedBy,
		).Scan(&def.ID, &def.CreatedAt, &def.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return apperrors.New(apperrors.CodeConflict,
					"workflow definition already exists for this entity/flow/risk/channel/purpose")
			}
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create workflow definition")
		}

		return r.insertLevels(ctx, tx, def.ID, levels)
	})
}

// GetByID retrieves a definition by its primary key (without levels).
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*WorkflowDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM workflow_definitions WHERE id = $1`

	def, err := r.scanDefinition(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("workflow_definition", id)
	}
	return def, err
}

// FindDefinition returns the definition matching the lookup tuple, or nil
// when none is configured.
func (r *WorkflowRepository) FindDefinition(
	ctx context.Context,
	entity EntityType,
	flowType, riskRating string,
	purpose Purpose,
	channelID string,
) (*WorkflowDefinition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM workflow_definitions
		WHERE entity_type = $1
		  AND flow_type   = $2
		  AND risk_rating = $3
		  AND purpose     = $4
		  AND channel_id  = $5
	`

	def, err := r.scanDefinition(r.db.QueryRow(ctx, query, entity, flowType, riskRating, purpose, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return def, err
}

// List returns definitions with paging, newest first, plus the total count.
func (r *WorkflowRepository) List(ctx context.Context, offset, limit int) ([]*WorkflowDefinition, int64, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM workflow_definitions
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list workflow definitions")
	}
	defer rows.Close()

	defs, err := r.scanRows(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM workflow_definitions`).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to count workflow definitions")
	}
	return defs, total, nil
}

// Search filters definitions by exact code and/or description match.
func (r *WorkflowRepository) Search(ctx context.Context, code, description *string, offset, limit int) ([]*WorkflowDefinition, int64, error) {
	query := `SELECT ` + definitionColumns + ` FROM workflow_definitions WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM workflow_definitions WHERE 1=1`
	args := []any{}

	if code != nil {
		args = append(args, *code)
		clause := fmt.Sprintf(" AND code = $%d", len(args))
		query += clause
		countQuery += clause
	}
	if description != nil {
		args = append(args, *description)
		clause := fmt.Sprintf(" AND description = $%d", len(args))
		query += clause
		countQuery += clause
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to count search results")
	}

	args = append(args, offset, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to search workflow definitions")
	}
	defer rows.Close()

	defs, err := r.scanRows(rows)
	return defs, total, err
}

// Update rewrites a definition and replaces its whole level set in one
// transaction. Levels are never merged in place.
func (r *WorkflowRepository) Update(ctx context.Context, def *WorkflowDefinition, levels []*ApprovalLevel) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE workflow_definitions
			SET code           = $2,
			    description    = $3,
			    entity_type    = $4,
			    flow_type      = $5,
			    risk_rating    = $6,
			    channel_id     = $7,
			    purpose        = $8,
			    terminal_level = $9,
			    updated_by     = $10,
			    updated_at     = NOW()
			WHERE id = $1
			RETURNING updated_at
		`

		err := tx.QueryRow(ctx, query,
			def.ID,
			def.Code,
			def.Description,
			def.EntityType,
			def.FlowType,
			def.RiskRating,
			def.ChannelID,
			def.Purpose,
			def.TerminalLevel,
			def.UpdatedBy,
		).Scan(&def.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("workflow_definition", def.ID)
		}
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return apperrors.New(apperrors.CodeConflict,
					"another definition already exists for this entity/flow/risk/channel/purpose")
			}
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to update workflow definition")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM workflow_levels WHERE workflow_id = $1`, def.ID); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to clear workflow levels")
		}
		return r.insertLevels(ctx, tx, def.ID, levels)
	})
}

// Delete removes a definition and its levels.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM workflow_levels WHERE workflow_id = $1`, id); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to delete workflow levels")
		}
		tag, err := tx.Exec(ctx, `DELETE FROM workflow_definitions WHERE id = $1`, id)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to delete workflow definition")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("workflow_definition", id)
		}
		return nil
	})
}

func (r *WorkflowRepository) insertLevels(ctx context.Context, tx pgx.Tx, workflowID string, levels []*ApprovalLevel) error {
	query := `
		INSERT INTO workflow_levels
		    (workflow_id, level, operation,
		     approved_group_id, reverted_group_id, supervisory_group_id, init_group_id,
		     email, scanning)
		VALUES ($1, $2, $3,
		        $4, $5, $6, $7,
		        $8, $9)
		RETURNING id, created_at, updated_at
	`

	for _, lvl := range levels {
		lvl.WorkflowID = workflowID
		err := tx.QueryRow(ctx, query,
			lvl.WorkflowID,
			lvl.Level,
			lvl.Operation,
			lvl.ApprovedGroupID,
			lvl.RevertedGroupID,
			lvl.SupervisoryGroupID,
			lvl.InitGroupID,
			lvl.Email,
			lvl.Scanning,
		).Scan(&lvl.ID, &lvl.CreatedAt, &lvl.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create workflow level")
		}
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type definitionScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) scanDefinition(row definitionScanner) (*WorkflowDefinition, error) {
	def := &WorkflowDefinition{}
	err := row.Scan(
		&def.ID,
		&def.Code,
		&def.Description,
		&def.EntityType,
		&def.FlowType,
		&def.RiskRating,
		&def.ChannelID,
		&def.Purpose,
		&def.TerminalLevel,
		&def.CreatedBy,
		&def.UpdatedBy,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return def, nil
}

func (r *WorkflowRepository) scanRows(rows pgx.Rows) ([]*WorkflowDefinition, error) {
	var defs []*WorkflowDefinition
	for rows.Next() {
		def, err := r.scanDefinition(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan workflow definition")
		}
		defs = append(defs, def)
	}
	return defs, nil
}
