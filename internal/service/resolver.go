package service

import (
	"context"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/client"
	"github.com/sparkfin/be-wf-engine/internal/logger"
	"github.com/sparkfin/be-wf-engine/internal/repository"
)

// Action is the requested workflow action, parsed from the request status.
type Action string

const (
	ActionSubmit  Action = "SUBMITTED"
	ActionApprove Action = "APPROVED"
	ActionRevert  Action = "REVERTED"
)

// ParseAction maps a request status value to an Action. An empty status is a
// submission: first-traversal requests carry no decision yet.
func ParseAction(status string) (Action, error) {
	switch status {
	case "", string(ActionSubmit):
		return ActionSubmit, nil
	case string(ActionApprove):
		return ActionApprove, nil
	case string(ActionRevert):
		return ActionRevert, nil
	default:
		return "", apperrors.InvalidInput("status", "must be SUBMITTED, APPROVED or REVERTED")
	}
}

// Status labels produced by the resolver.
const (
	statusPrefix    = "REQUEST_IS_AT_"
	StatusActivated = "ACTIVATED"
)

// MatchedRule identifies which rule, if any, decided a transition.
type MatchedRule int

const (
	RuleNone MatchedRule = iota
	RuleSubmit
	RuleApprove
	RuleRevert
)

// Outcome is the resolver's decision: the document's next status label and
// level, and which rule produced it. RuleNone means no rule matched and the
// prior state was returned unchanged.
type Outcome struct {
	Status *string
	Level  int
	Rule   MatchedRule
}

// Matched reports whether any rule fired.
func (o *Outcome) Matched() bool {
	return o.Rule != RuleNone
}

// DirectoryAPI resolves approver groups by id.
type DirectoryAPI interface {
	GetGroup(ctx context.Context, groupID string) (*client.Group, error)
}

// TransitionResolver computes the next status and level for a document given
// the definition's hierarchy, the requested action and the prior execution
// state. The hierarchy is scanned in ascending level order and the first
// satisfied rule wins.
type TransitionResolver struct {
	directory DirectoryAPI
	log       *logger.Logger
}

// NewTransitionResolver creates a new TransitionResolver.
func NewTransitionResolver(directory DirectoryAPI, log *logger.Logger) *TransitionResolver {
	return &TransitionResolver{directory: directory, log: log}
}

// Resolve walks the hierarchy and applies the first matching rule:
//
//   - Submit: the level carrying the Submit marker, only while the document
//     has no status for this purpose yet. Control moves to the supervisory
//     group.
//   - Approve: the level directly above the prior level. A nil approved
//     target means the chain ends here and the document is ACTIVATED.
//   - Revert: the level directly above the prior level, when it names a
//     revert target. Control moves to wherever that group sits in the
//     hierarchy; reverting to the initiating group resets the document to
//     origination (level 0, no status).
//
// When no rule matches the prior state is returned unchanged. Group lookup
// failures abort the transition.
func (r *TransitionResolver) Resolve(
	ctx context.Context,
	levels []*repository.ApprovalLevel,
	hasStatus bool,
	action Action,
	prior *repository.ExecutionRecord,
) (*Outcome, error) {
	// The level an approve or revert would act on. Unresolvable until the
	// document has both a status and a ledger row.
	candidate := -1
	if hasStatus && prior != nil {
		candidate = prior.CurrentLevel + 1
	}

	for _, lvl := range levels {
		if lvl.IsSubmit() && !hasStatus {
			if lvl.SupervisoryGroupID == nil {
				return nil, apperrors.New(apperrors.CodeInternal, "submit level has no supervisory group")
			}
			group, err := r.directory.GetGroup(ctx, *lvl.SupervisoryGroupID)
			if err != nil {
				return nil, err
			}
			status := statusPrefix + group.Name
			return &Outcome{Status: &status, Level: lvl.Level, Rule: RuleSubmit}, nil
		}

		if lvl.Operation == nil && action == ActionApprove && candidate == lvl.Level {
			if lvl.ApprovedGroupID == nil {
				// Terminal hop: no next group, hand off to the system of record.
				status := StatusActivated
				return &Outcome{Status: &status, Level: lvl.Level, Rule: RuleApprove}, nil
			}
			group, err := r.directory.GetGroup(ctx, *lvl.ApprovedGroupID)
			if err != nil {
				return nil, err
			}
			status := statusPrefix + group.Name
			return &Outcome{Status: &status, Level: lvl.Level, Rule: RuleApprove}, nil
		}

		if lvl.RevertedGroupID != nil && action == ActionRevert && candidate == lvl.Level {
			return r.resolveRevert(ctx, levels, lvl, prior)
		}
	}

	return r.noOp(prior), nil
}

// resolveRevert resolves the revert target group and locates it in the
// hierarchy to decide where control lands.
func (r *TransitionResolver) resolveRevert(
	ctx context.Context,
	levels []*repository.ApprovalLevel,
	lvl *repository.ApprovalLevel,
	prior *repository.ExecutionRecord,
) (*Outcome, error) {
	group, err := r.directory.GetGroup(ctx, *lvl.RevertedGroupID)
	if err != nil {
		return nil, err
	}

	match := findLevelForGroup(levels, group.ID)
	if match == nil {
		r.log.Warn().
			Str("group_id", group.ID).
			Msg("revert target group is not part of the hierarchy; keeping prior state")
		return r.noOp(prior), nil
	}

	if match.InitGroupID != nil && *match.InitGroupID == group.ID {
		// Back to origination: the document returns to draft.
		return &Outcome{Status: nil, Level: 0, Rule: RuleRevert}, nil
	}

	status := statusPrefix + group.Name
	return &Outcome{Status: &status, Level: match.Level, Rule: RuleRevert}, nil
}

func (r *TransitionResolver) noOp(prior *repository.ExecutionRecord) *Outcome {
	if prior == nil {
		return &Outcome{Status: nil, Level: 0, Rule: RuleNone}
	}
	return &Outcome{Status: prior.CurrentStatus, Level: prior.CurrentLevel, Rule: RuleNone}
}

// findLevelForGroup returns the first level (ascending order) whose
// initiating, approved or supervisory reference matches the group.
func findLevelForGroup(levels []*repository.ApprovalLevel, groupID string) *repository.ApprovalLevel {
	for _, lvl := range levels {
		if lvl.InitGroupID != nil && *lvl.InitGroupID == groupID {
			return lvl
		}
		if lvl.ApprovedGroupID != nil && *lvl.ApprovedGroupID == groupID {
			return lvl
		}
		if lvl.SupervisoryGroupID != nil && *lvl.SupervisoryGroupID == groupID {
			return lvl
		}
	}
	return nil
}
