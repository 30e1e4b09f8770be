package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/database"
)

// TransitionAuditEntry is one immutable row in the transition audit log,
// written in the same transaction as the ledger change it describes.
type TransitionAuditEntry struct {
	ID           string
	WorkflowID   string
	DocumentID   string
	EntityType   EntityType
	Purpose      Purpose
	Action       string
	Result       string
	StatusBefore *string
	StatusAfter  *string
	LevelAfter   int
	PerformedBy  string
	PerformedAt  time.Time
	Metadata     map[string]any
}

// AuditRepository appends and reads transition audit log entries.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry on the caller's transaction. The table is
// append-only; no update or delete is exposed.
func (r *AuditRepository) Append(ctx context.Context, tx pgx.Tx, entry *TransitionAuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO workflow_transition_audit
		    (workflow_id, document_id, entity_type, purpose,
		     action, result,
		     status_before, status_after, level_after,
		     performed_by, metadata)
		VALUES ($1, $2, $3, $4,
		        $5, $6,
		        $7, $8, $9,
		        $10, $11)
		RETURNING id, performed_at
	`

	err := tx.QueryRow(ctx, query,
		entry.WorkflowID,
		entry.DocumentID,
		entry.EntityType,
		entry.Purpose,
		entry.Action,
		entry.Result,
		entry.StatusBefore,
		entry.StatusAfter,
		entry.LevelAfter,
		entry.PerformedBy,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByDocument returns the full trail for a document ordered oldest-first.
func (r *AuditRepository) ListByDocument(ctx context.Context, documentID string) ([]*TransitionAuditEntry, error) {
	query := `
		SELECT id, workflow_id, document_id, entity_type, purpose,
		       action, result,
		       status_before, status_after, level_after,
		       performed_by, performed_at, metadata
		FROM workflow_transition_audit
		WHERE document_id = $1
		ORDER BY performed_at ASC
	`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get audit trail")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *AuditRepository) scanRows(rows pgx.Rows) ([]*TransitionAuditEntry, error) {
	var entries []*TransitionAuditEntry
	for rows.Next() {
		entry := &TransitionAuditEntry{}
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.WorkflowID,
			&entry.DocumentID,
			&entry.EntityType,
			&entry.Purpose,
			&entry.Action,
			&entry.Result,
			&entry.StatusBefore,
			&entry.StatusAfter,
			&entry.LevelAfter,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&metadataJSON,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan audit entry")
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to decode audit metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
