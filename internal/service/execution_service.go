package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/client"
	"github.com/sparkfin/be-wf-engine/internal/logger"
	"github.com/sparkfin/be-wf-engine/internal/metrics"
	"github.com/sparkfin/be-wf-engine/internal/repository"
)

// workflowCompleteMarker is written onto the document when the chain is fully
// traversed and the completion push has been accepted.
const workflowCompleteMarker = "workflow executed"

// RunRequest carries the transition attributes posted by the channel
// application alongside a document's workflow action.
type RunRequest struct {
	FlowType    string   `json:"flowType"`
	RiskRating  string   `json:"riskRating"`
	ChannelID   string   `json:"channelId"`
	Status      string   `json:"status"`
	Comments    []string `json:"comments"`
	Discrepancy []string `json:"discrepancy"`
	UpdatedBy   string   `json:"updatedBy"`
}

// Consumer-side slices of the repositories, so the orchestrator can be
// exercised against fakes.

type definitionFinder interface {
	FindDefinition(ctx context.Context, entity repository.EntityType, flowType, riskRating string, purpose repository.Purpose, channelID string) (*repository.WorkflowDefinition, error)
}

type levelLister interface {
	ListByWorkflowID(ctx context.Context, workflowID string) ([]*repository.ApprovalLevel, error)
}

type executionLedger interface {
	FindForUpdate(ctx context.Context, tx pgx.Tx, workflowID, documentID string, purpose repository.Purpose) (*repository.ExecutionRecord, error)
	Upsert(ctx context.Context, tx pgx.Tx, workflowID, documentID string, purpose repository.Purpose, status *string, level int) (*repository.ExecutionRecord, error)
	Delete(ctx context.Context, tx pgx.Tx, id string) error
}

type auditLog interface {
	Append(ctx context.Context, tx pgx.Tx, entry *repository.TransitionAuditEntry) error
	ListByDocument(ctx context.Context, documentID string) ([]*repository.TransitionAuditEntry, error)
}

type transactor interface {
	InTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ExecutionService runs workflow transitions. One Run call moves one document
// one step through its configured approval chain: it resolves the applicable
// rule, advances the ledger, writes the new status back to the system of
// record and, on the terminal step, fires the one-time completion push.
type ExecutionService struct {
	db            transactor
	workflows     definitionFinder
	levels        levelLister
	executions    executionLedger
	audit         auditLog
	resolver      *TransitionResolver
	collaborators *Collaborators
	log           *logger.Logger
}

// NewExecutionService creates a new ExecutionService.
func NewExecutionService(
	db transactor,
	workflows definitionFinder,
	levels levelLister,
	executions executionLedger,
	audit auditLog,
	resolver *TransitionResolver,
	collaborators *Collaborators,
	log *logger.Logger,
) *ExecutionService {
	return &ExecutionService{
		db:            db,
		workflows:     workflows,
		levels:        levels,
		executions:    executions,
		audit:         audit,
		resolver:      resolver,
		collaborators: collaborators,
		log:           log,
	}
}

// RunResult reports what a transition did, for the HTTP response.
type RunResult struct {
	Document *Document          `json:"document"`
	Purpose  repository.Purpose `json:"purpose"`
	Level    int                `json:"level"`
	Status   *string            `json:"status"`
	Terminal bool               `json:"workflowComplete"`
	Applied  bool               `json:"applied"`
}

// Run executes one workflow transition for a document.
//
// The ledger row for the (definition, document, purpose) key is locked for
// the whole resolve-and-write sequence, so concurrent transitions on the same
// document serialize. The system of record is updated inside that window and
// the ledger commits only after it accepts the new status.
func (s *ExecutionService) Run(ctx context.Context, entity repository.EntityType, documentID string, req *RunRequest) (*RunResult, error) {
	start := time.Now()
	result, err := s.run(ctx, entity, documentID, req)
	metrics.TransitionDuration.WithLabelValues(string(entity)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(entity), req.Status, "error").Inc()
		return nil, err
	}
	metrics.TransitionsTotal.WithLabelValues(string(entity), req.Status, result.resultLabel).Inc()
	return &result.RunResult, nil
}

func (s *ExecutionService) run(ctx context.Context, entity repository.EntityType, documentID string, req *RunRequest) (*runResultInternal, error) {
	if documentID == "" {
		return nil, apperrors.InvalidInput("id", "is required")
	}
	if req.FlowType == "" {
		return nil, apperrors.InvalidInput("flowType", "is required")
	}
	if req.RiskRating == "" {
		return nil, apperrors.InvalidInput("riskRating", "is required")
	}
	if req.ChannelID == "" {
		return nil, apperrors.InvalidInput("channelId", "is required")
	}
	action, err := ParseAction(req.Status)
	if err != nil {
		return nil, err
	}

	desc, err := DescriptorFor(entity)
	if err != nil {
		return nil, err
	}
	source := desc.Source(s.collaborators)

	raw, err := source.Fetch(ctx, desc.FetchPath(documentID))
	if err != nil {
		return nil, err
	}
	doc, err := desc.Extract(raw)
	if err != nil {
		return nil, err
	}

	purpose := doc.Purpose(desc.Permanence)

	def, err := s.workflows.FindDefinition(ctx, entity, req.FlowType, req.RiskRating, purpose, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, apperrors.New(apperrors.CodeNotFound,
			"no workflow is configured for this entity/flow/risk/channel/purpose")
	}

	levels, err := s.levels.ListByWorkflowID(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, apperrors.New(apperrors.CodeInternal, "workflow definition has no levels")
	}

	var outcome *Outcome
	var terminal bool
	err = s.db.InTransaction(ctx, func(tx pgx.Tx) error {
		prior, err := s.executions.FindForUpdate(ctx, tx, def.ID, documentID, purpose)
		if err != nil {
			return err
		}

		// A row at origination level, or one without a matching status on
		// the document, is stale. Configured levels start at 1 and a revert
		// to origin deletes its row, so neither state can arise from a live
		// traversal. Drop it so the submit rule can fire again.
		if prior != nil && (prior.CurrentLevel == 0 || !doc.HasStatus(purpose)) {
			if err := s.executions.Delete(ctx, tx, prior.ID); err != nil {
				return err
			}
			prior = nil
		}

		var statusBefore *string
		if prior != nil {
			statusBefore = prior.CurrentStatus
		}

		outcome, err = s.resolver.Resolve(ctx, levels, doc.HasStatus(purpose), action, prior)
		if err != nil {
			return err
		}
		if !outcome.Matched() {
			return nil
		}

		if outcome.Rule == RuleRevert && outcome.Status == nil && outcome.Level == 0 {
			// Back to origination: the key is released so the next submit
			// starts a fresh traversal.
			if prior != nil {
				if err := s.executions.Delete(ctx, tx, prior.ID); err != nil {
					return err
				}
			}
		} else {
			if _, err := s.executions.Upsert(ctx, tx, def.ID, documentID, purpose, outcome.Status, outcome.Level); err != nil {
				return err
			}
		}

		terminal = outcome.Rule == RuleApprove && outcome.Status != nil && *outcome.Status == StatusActivated

		auditEntry := &repository.TransitionAuditEntry{
			WorkflowID:   def.ID,
			DocumentID:   documentID,
			EntityType:   entity,
			Purpose:      purpose,
			Action:       string(action),
			Result:       resultLabel(outcome, terminal),
			StatusBefore: statusBefore,
			StatusAfter:  outcome.Status,
			LevelAfter:   outcome.Level,
			PerformedBy:  req.UpdatedBy,
			Metadata: map[string]any{
				"flowType":   req.FlowType,
				"riskRating": req.RiskRating,
				"channelId":  req.ChannelID,
			},
		}
		if err := s.audit.Append(ctx, tx, auditEntry); err != nil {
			return err
		}

		doc.SetStatus(purpose, outcome.Status)
		if terminal {
			if err := desc.TerminalPush(ctx, s.collaborators, doc); err != nil {
				return err
			}
			metrics.TerminalPushesTotal.WithLabelValues(string(entity)).Inc()
			doc.SetPermanent(desc.Permanence, true)
			marker := workflowCompleteMarker
			doc.WorkflowComplete = &marker
			doc.PickedBy = nil
		}

		// The ledger commits only once the system of record has accepted
		// the new snapshot.
		return source.UpdateStatus(ctx, desc.UpdatePath(documentID), doc)
	})
	if err != nil {
		return nil, err
	}

	if terminal {
		if path := desc.ClearPickedPath(documentID); path != "" {
			if err := s.collaborators.Accounts.ClearPickedBy(ctx, path); err != nil {
				s.log.Warn().Err(err).
					Str("document_id", documentID).
					Msg("failed to release picked-by after activation")
			}
		}
	}

	s.afterCommit(ctx, entity, desc, documentID, purpose, doc, outcome, terminal, req)

	return &runResultInternal{
		RunResult: RunResult{
			Document: doc,
			Purpose:  purpose,
			Level:    outcome.Level,
			Status:   outcome.Status,
			Terminal: terminal,
			Applied:  outcome.Matched(),
		},
		resultLabel: resultLabel(outcome, terminal),
	}, nil
}

type runResultInternal struct {
	RunResult
	resultLabel string
}

func resultLabel(outcome *Outcome, terminal bool) string {
	switch {
	case terminal:
		return "activated"
	case outcome.Rule == RuleSubmit:
		return "submitted"
	case outcome.Rule == RuleApprove:
		return "approved"
	case outcome.Rule == RuleRevert:
		return "reverted"
	default:
		return "noop"
	}
}

// Trail returns the transition audit trail for a document, oldest first.
func (s *ExecutionService) Trail(ctx context.Context, documentID string) ([]*repository.TransitionAuditEntry, error) {
	if documentID == "" {
		return nil, apperrors.InvalidInput("id", "is required")
	}
	return s.audit.ListByDocument(ctx, documentID)
}

// afterCommit runs the best-effort side channels. None of them can fail the
// transition; the ledger and the system of record are already consistent.
func (s *ExecutionService) afterCommit(
	ctx context.Context,
	entity repository.EntityType,
	desc *EntityDescriptor,
	documentID string,
	purpose repository.Purpose,
	doc *Document,
	outcome *Outcome,
	terminal bool,
	req *RunRequest,
) {
	if !outcome.Matched() {
		return
	}

	if len(req.Comments) > 0 || len(req.Discrepancy) > 0 {
		commentReq := &client.CommentRequest{
			WorkflowType: string(entity),
			FlowType:     req.FlowType,
			RiskRating:   req.RiskRating,
			ChannelID:    req.ChannelID,
			Status:       req.Status,
			Purpose:      string(purpose),
			Comments:     req.Comments,
			Discrepancy:  req.Discrepancy,
			UpdatedBy:    req.UpdatedBy,
		}
		if err := s.collaborators.Comments.Append(ctx, documentID, commentReq); err != nil {
			s.log.Warn().Err(err).
				Str("document_id", documentID).
				Msg("failed to forward workflow comments")
		}
	}

	event := &client.HistoryEvent{
		EntityObj: doc,
		Type:      desc.HistoryType,
		Operation: client.HistoryOpModified,
		UserID:    req.UpdatedBy,
	}
	if err := s.collaborators.History.Record(ctx, event); err != nil {
		s.log.Warn().Err(err).
			Str("document_id", documentID).
			Msg("failed to record history event")
	}

	eventType := map[MatchedRule]string{
		RuleSubmit:  "workflow_submitted",
		RuleApprove: "workflow_approved",
		RuleRevert:  "workflow_reverted",
	}[outcome.Rule]
	if terminal {
		eventType = "workflow_activated"
	}
	s.collaborators.Notifier.PublishTransition(eventType, &client.WorkflowEvent{
		EntityType: string(entity),
		DocumentID: documentID,
		Purpose:    string(purpose),
		Status:     outcome.Status,
		Level:      outcome.Level,
		ActorID:    req.UpdatedBy,
	})
}
