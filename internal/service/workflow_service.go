package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/logger"
	"github.com/sparkfin/be-wf-engine/internal/repository"
)

// WorkflowService manages the workflow definition catalog. Every write
// validates the full level hierarchy before it touches the database.
type WorkflowService struct {
	workflows *repository.WorkflowRepository
	levels    *repository.LevelRepository
	log       *logger.Logger
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(workflows *repository.WorkflowRepository, levels *repository.LevelRepository, log *logger.Logger) *WorkflowService {
	return &WorkflowService{workflows: workflows, levels: levels, log: log}
}

// Create validates and stores a new definition with its levels. The terminal
// level is derived from the hierarchy, never taken from the caller.
func (s *WorkflowService) Create(ctx context.Context, def *repository.WorkflowDefinition) (*repository.WorkflowDefinition, error) {
	if err := validateDefinition(def); err != nil {
		return nil, err
	}
	def.TerminalLevel = highestLevel(def.Levels)

	if err := s.workflows.Create(ctx, def, def.Levels); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("workflow_id", def.ID).
		Str("entity_type", string(def.EntityType)).
		Str("purpose", string(def.Purpose)).
		Msg("workflow definition created")
	return def, nil
}

// Get loads a definition with its levels attached, ordered by level.
func (s *WorkflowService) Get(ctx context.Context, id string) (*repository.WorkflowDefinition, error) {
	def, err := s.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	def.Levels, err = s.levels.ListByWorkflowID(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	return def, nil
}

// List returns a page of definitions (without levels) and the total count.
func (s *WorkflowService) List(ctx context.Context, offset, limit int) ([]*repository.WorkflowDefinition, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.workflows.List(ctx, offset, limit)
}

// Search filters definitions by exact code and/or description.
func (s *WorkflowService) Search(ctx context.Context, code, description *string, offset, limit int) ([]*repository.WorkflowDefinition, int64, error) {
	if code == nil && description == nil {
		return nil, 0, apperrors.InvalidInput("search", "at least one of code or description is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.workflows.Search(ctx, code, description, offset, limit)
}

// Update validates and rewrites a definition, replacing its whole level set.
func (s *WorkflowService) Update(ctx context.Context, def *repository.WorkflowDefinition) (*repository.WorkflowDefinition, error) {
	if def.ID == "" {
		return nil, apperrors.InvalidInput("id", "is required")
	}
	if err := validateDefinition(def); err != nil {
		return nil, err
	}
	def.TerminalLevel = highestLevel(def.Levels)

	if err := s.workflows.Update(ctx, def, def.Levels); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("workflow_id", def.ID).
		Msg("workflow definition updated")
	return def, nil
}

// Delete removes a definition and its levels.
func (s *WorkflowService) Delete(ctx context.Context, id string) error {
	if err := s.workflows.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("workflow_id", id).Msg("workflow definition deleted")
	return nil
}

// validateDefinition enforces the shape a hierarchy must have before the
// resolver can traverse it.
func validateDefinition(def *repository.WorkflowDefinition) error {
	if def.Code == nil || *def.Code == "" {
		return apperrors.InvalidInput("code", "is required")
	}
	if def.Description == nil || *def.Description == "" {
		return apperrors.InvalidInput("description", "is required")
	}
	if _, err := DescriptorFor(def.EntityType); err != nil {
		return err
	}
	if def.FlowType == "" {
		return apperrors.InvalidInput("flowType", "is required")
	}
	if def.RiskRating == "" {
		return apperrors.InvalidInput("riskRating", "is required")
	}
	if def.ChannelID == "" {
		return apperrors.InvalidInput("channelId", "is required")
	}
	if def.Purpose != repository.PurposeOnboarding && def.Purpose != repository.PurposeMaintenance {
		return apperrors.InvalidInput("purpose", "must be ONBOARDING or MAINTENANCE")
	}
	return validateLevels(def.Levels)
}

func validateLevels(levels []*repository.ApprovalLevel) error {
	if len(levels) == 0 {
		return apperrors.InvalidInput("levels", "at least one level is required")
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	// Level 0 is origination; configured levels start at 1.
	if levels[0].Level < 1 {
		return apperrors.InvalidInput("levels", "level numbers must be positive")
	}

	submits := 0
	for i, lvl := range levels {
		if i > 0 && lvl.Level != levels[i-1].Level+1 {
			return apperrors.InvalidInput("levels",
				fmt.Sprintf("level numbers must be contiguous, gap between %d and %d", levels[i-1].Level, lvl.Level))
		}
		if lvl.IsSubmit() {
			submits++
			if i != 0 {
				return apperrors.InvalidInput("levels", "the Submit level must be the lowest level")
			}
			if lvl.SupervisoryGroupID == nil {
				return apperrors.InvalidInput("levels", "the Submit level requires a supervisory group")
			}
		} else if lvl.Operation != nil {
			return apperrors.InvalidInput("levels",
				fmt.Sprintf("unknown operation %q on level %d", *lvl.Operation, lvl.Level))
		}
	}
	if submits != 1 {
		return apperrors.InvalidInput("levels", "exactly one Submit level is required")
	}

	// Only the topmost level may leave the approved target empty; an empty
	// target anywhere else would strand the chain before its end.
	for _, lvl := range levels[:len(levels)-1] {
		if !lvl.IsSubmit() && lvl.ApprovedGroupID == nil {
			return apperrors.InvalidInput("levels",
				fmt.Sprintf("level %d has no approved group but is not the last level", lvl.Level))
		}
	}
	return nil
}

func highestLevel(levels []*repository.ApprovalLevel) int {
	max := 0
	for _, lvl := range levels {
		if lvl.Level > max {
			max = lvl.Level
		}
	}
	return max
}
