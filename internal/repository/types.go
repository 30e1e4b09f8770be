package repository

import "time"

// ── Domain types for the approval workflow engine ────────────────────────────

// EntityType identifies which kind of business document a workflow
// definition governs and which system-of-record entry point serves it.
type EntityType string

const (
	EntityAccount             EntityType = "ACCOUNT"
	EntityCIF                 EntityType = "CIF"
	EntityDepositAccount      EntityType = "DEPOSIT_ACCOUNT"
	EntityRecurringDeposit    EntityType = "RECURRING_DEPOSIT"
	EntityCIFAndAccount       EntityType = "CIF_AND_ACCOUNT"
	EntityCIFMaintAccountOpen EntityType = "CIF_MAINT_AND_ACCOUNT_OPEN"
	EntityRemoteAccount       EntityType = "REMOTE_ACCOUNT"
	EntityRemoteCIF           EntityType = "REMOTE_CIF"
	EntityRemoteCIFAndAccount EntityType = "REMOTE_CIF_AND_ACCOUNT"
)

// Purpose distinguishes the first traversal of a document (onboarding) from
// changes to an already-active document (maintenance). Each purpose governs
// its own status field on the document snapshot.
type Purpose string

const (
	PurposeOnboarding  Purpose = "ONBOARDING"
	PurposeMaintenance Purpose = "MAINTENANCE"
)

// OperationSubmit marks the single level in a hierarchy that handles the
// document's first submission.
const OperationSubmit = "Submit"

// WorkflowDefinition is one configured approval chain. At most one definition
// exists per (entity type, flow type, risk rating, channel, purpose) tuple.
type WorkflowDefinition struct {
	ID            string
	Code          *string
	Description   *string
	EntityType    EntityType
	FlowType      string
	RiskRating    string
	ChannelID     string
	Purpose       Purpose
	TerminalLevel int
	CreatedBy     *string
	UpdatedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Levels is attached by callers that load the hierarchy; it is not
	// populated by the definition queries themselves.
	Levels []*ApprovalLevel
}

// ApprovalLevel is a single step in a definition's chain. Group references
// are identifiers in the external approver directory, not local rows.
type ApprovalLevel struct {
	ID                 string
	WorkflowID         string
	Level              int     // positive; level 0 is the document's draft state
	Operation          *string // "Submit" on the chain's first level only
	ApprovedGroupID    *string // nil means terminal: hand off to the system of record
	RevertedGroupID    *string
	SupervisoryGroupID *string
	InitGroupID        *string
	Email              bool
	Scanning           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsSubmit reports whether this level carries the Submit marker.
func (l *ApprovalLevel) IsSubmit() bool {
	return l.Operation != nil && *l.Operation == OperationSubmit
}

// ExecutionRecord is the ledger row tracking one document's position within
// one definition. At most one record exists per (definition, document,
// purpose) key.
type ExecutionRecord struct {
	ID            string
	WorkflowID    string
	DocumentID    string
	Purpose       Purpose
	CurrentLevel  int
	CurrentStatus *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
