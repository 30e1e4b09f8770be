package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/logger"
	"github.com/sparkfin/be-wf-engine/internal/repository"
	"github.com/sparkfin/be-wf-engine/internal/service"
)

// CatalogService is the workflow definition surface the handler needs.
type CatalogService interface {
	Create(ctx context.Context, def *repository.WorkflowDefinition) (*repository.WorkflowDefinition, error)
	Get(ctx context.Context, id string) (*repository.WorkflowDefinition, error)
	List(ctx context.Context, offset, limit int) ([]*repository.WorkflowDefinition, int64, error)
	Search(ctx context.Context, code, description *string, offset, limit int) ([]*repository.WorkflowDefinition, int64, error)
	Update(ctx context.Context, def *repository.WorkflowDefinition) (*repository.WorkflowDefinition, error)
	Delete(ctx context.Context, id string) error
}

// RunService executes workflow transitions and serves their audit trail.
type RunService interface {
	Run(ctx context.Context, entity repository.EntityType, documentID string, req *service.RunRequest) (*service.RunResult, error)
	Trail(ctx context.Context, documentID string) ([]*repository.TransitionAuditEntry, error)
}

// HTTPHandler wires the workflow engine's REST surface.
type HTTPHandler struct {
	catalog CatalogService
	runner  RunService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(catalog CatalogService, runner RunService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{catalog: catalog, runner: runner, log: log}
}

// runEntities maps the run route segment to its entity type.
var runEntities = map[string]repository.EntityType{
	"account":                repository.EntityAccount,
	"cif":                    repository.EntityCIF,
	"deposit-account":        repository.EntityDepositAccount,
	"recurring-deposit":      repository.EntityRecurringDeposit,
	"cif-account":            repository.EntityCIFAndAccount,
	"cif-maint-account-open": repository.EntityCIFMaintAccountOpen,
	"remote-account":         repository.EntityRemoteAccount,
	"remote-cif":             repository.EntityRemoteCIF,
	"remote-cif-account":     repository.EntityRemoteCIFAndAccount,
}

// Routes mounts every endpoint on a chi router.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", h.CreateWorkflow)
			r.Get("/", h.ListWorkflows)
			r.Get("/search", h.SearchWorkflows)
			r.Get("/{id}", h.GetWorkflow)
			r.Put("/{id}", h.UpdateWorkflow)
			r.Delete("/{id}", h.DeleteWorkflow)
		})

		r.Route("/run", func(r chi.Router) {
			for segment, entity := range runEntities {
				entity := entity
				r.Put("/"+segment+"/{id}", func(w http.ResponseWriter, req *http.Request) {
					h.runTransition(w, req, entity)
				})
			}
		})

		r.Get("/audit/{id}", h.AuditTrail)
	})
}

// Health reports liveness.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── workflow catalog ──────────────────────────────────────────────────────────

type levelPayload struct {
	Level              int     `json:"level"`
	Operation          *string `json:"operation,omitempty"`
	ApprovedGroupID    *string `json:"approvedGroupId,omitempty"`
	RevertedGroupID    *string `json:"revertedGroupId,omitempty"`
	SupervisoryGroupID *string `json:"supervisoryGroupId,omitempty"`
	InitGroupID        *string `json:"initGroupId,omitempty"`
	Email              bool    `json:"email"`
	Scanning           bool    `json:"scanning"`
}

type workflowPayload struct {
	ID            string         `json:"id,omitempty"`
	Code          *string        `json:"code"`
	Description   *string        `json:"description"`
	EntityType    string         `json:"entityType"`
	FlowType      string         `json:"flowType"`
	RiskRating    string         `json:"riskRating"`
	ChannelID     string         `json:"channelId"`
	Purpose       string         `json:"purpose"`
	TerminalLevel int            `json:"terminalLevel"`
	CreatedBy     *string        `json:"createdBy,omitempty"`
	UpdatedBy     *string        `json:"updatedBy,omitempty"`
	CreatedAt     *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
	Levels        []levelPayload `json:"levels,omitempty"`
}

type listResponse struct {
	Data  []*workflowPayload `json:"data"`
	Total int64              `json:"total"`
}

func toDefinition(p *workflowPayload) *repository.WorkflowDefinition {
	def := &repository.WorkflowDefinition{
		ID:          p.ID,
		Code:        p.Code,
		Description: p.Description,
		EntityType:  repository.EntityType(p.EntityType),
		FlowType:    p.FlowType,
		RiskRating:  p.RiskRating,
		ChannelID:   p.ChannelID,
		Purpose:     repository.Purpose(p.Purpose),
		CreatedBy:   p.CreatedBy,
		UpdatedBy:   p.UpdatedBy,
	}
	for _, lp := range p.Levels {
		def.Levels = append(def.Levels, &repository.ApprovalLevel{
			Level:              lp.Level,
			Operation:          lp.Operation,
			ApprovedGroupID:    lp.ApprovedGroupID,
			RevertedGroupID:    lp.RevertedGroupID,
			SupervisoryGroupID: lp.SupervisoryGroupID,
			InitGroupID:        lp.InitGroupID,
			Email:              lp.Email,
			Scanning:           lp.Scanning,
		})
	}
	return def
}

func fromDefinition(def *repository.WorkflowDefinition) *workflowPayload {
	createdAt, updatedAt := def.CreatedAt, def.UpdatedAt
	p := &workflowPayload{
		ID:            def.ID,
		Code:          def.Code,
		Description:   def.Description,
		EntityType:    string(def.EntityType),
		FlowType:      def.FlowType,
		RiskRating:    def.RiskRating,
		ChannelID:     def.ChannelID,
		Purpose:       string(def.Purpose),
		TerminalLevel: def.TerminalLevel,
		CreatedBy:     def.CreatedBy,
		UpdatedBy:     def.UpdatedBy,
		CreatedAt:     &createdAt,
		UpdatedAt:     &updatedAt,
	}
	for _, lvl := range def.Levels {
		p.Levels = append(p.Levels, levelPayload{
			Level:              lvl.Level,
			Operation:          lvl.Operation,
			ApprovedGroupID:    lvl.ApprovedGroupID,
			RevertedGroupID:    lvl.RevertedGroupID,
			SupervisoryGroupID: lvl.SupervisoryGroupID,
			InitGroupID:        lvl.InitGroupID,
			Email:              lvl.Email,
			Scanning:           lvl.Scanning,
		})
	}
	return p
}

// CreateWorkflow stores a new workflow definition.
func (h *HTTPHandler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var payload workflowPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	def, err := h.catalog.Create(r.Context(), toDefinition(&payload))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, fromDefinition(def))
}

// GetWorkflow returns one definition with its levels.
func (h *HTTPHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	def, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fromDefinition(def))
}

// ListWorkflows returns a page of definitions.
func (h *HTTPHandler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	offset, limit := paging(r)
	defs, total, err := h.catalog.List(r.Context(), offset, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toListResponse(defs, total))
}

// SearchWorkflows filters definitions by code and/or description.
func (h *HTTPHandler) SearchWorkflows(w http.ResponseWriter, r *http.Request) {
	offset, limit := paging(r)

	var code, description *string
	if v := r.URL.Query().Get("code"); v != "" {
		code = &v
	}
	if v := r.URL.Query().Get("description"); v != "" {
		description = &v
	}

	defs, total, err := h.catalog.Search(r.Context(), code, description, offset, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toListResponse(defs, total))
}

// UpdateWorkflow rewrites a definition and its level set.
func (h *HTTPHandler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	var payload workflowPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}
	payload.ID = chi.URLParam(r, "id")

	def, err := h.catalog.Update(r.Context(), toDefinition(&payload))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fromDefinition(def))
}

// DeleteWorkflow removes a definition.
func (h *HTTPHandler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── transitions ───────────────────────────────────────────────────────────────

func (h *HTTPHandler) runTransition(w http.ResponseWriter, r *http.Request, entity repository.EntityType) {
	var req service.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	result, err := h.runner.Run(r.Context(), entity, chi.URLParam(r, "id"), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type auditEntryPayload struct {
	ID           string         `json:"id"`
	WorkflowID   string         `json:"workflowId"`
	DocumentID   string         `json:"documentId"`
	EntityType   string         `json:"entityType"`
	Purpose      string         `json:"purpose"`
	Action       string         `json:"action"`
	Result       string         `json:"result"`
	StatusBefore *string        `json:"statusBefore"`
	StatusAfter  *string        `json:"statusAfter"`
	LevelAfter   int            `json:"levelAfter"`
	PerformedBy  string         `json:"performedBy,omitempty"`
	PerformedAt  time.Time      `json:"performedAt"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// AuditTrail returns every recorded transition for a document, oldest first.
func (h *HTTPHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.runner.Trail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload := []auditEntryPayload{}
	for _, e := range entries {
		payload = append(payload, auditEntryPayload{
			ID:           e.ID,
			WorkflowID:   e.WorkflowID,
			DocumentID:   e.DocumentID,
			EntityType:   string(e.EntityType),
			Purpose:      string(e.Purpose),
			Action:       e.Action,
			Result:       e.Result,
			StatusBefore: e.StatusBefore,
			StatusAfter:  e.StatusAfter,
			LevelAfter:   e.LevelAfter,
			PerformedBy:  e.PerformedBy,
			PerformedAt:  e.PerformedAt,
			Metadata:     e.Metadata,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": payload})
}

// ── helpers ───────────────────────────────────────────────────────────────────

func toListResponse(defs []*repository.WorkflowDefinition, total int64) *listResponse {
	resp := &listResponse{Data: []*workflowPayload{}, Total: total}
	for _, def := range defs {
		resp.Data = append(resp.Data, fromDefinition(def))
	}
	return resp
}

func paging(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return offset, limit
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	} else {
		h.log.Warn().Err(err).Msg("request rejected")
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
