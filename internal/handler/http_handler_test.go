package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/logger"
	"github.com/sparkfin/be-wf-engine/internal/repository"
	"github.com/sparkfin/be-wf-engine/internal/service"
)

type fakeCatalog struct {
	created *repository.WorkflowDefinition
	getErr  error
}

func (f *fakeCatalog) Create(_ context.Context, def *repository.WorkflowDefinition) (*repository.WorkflowDefinition, error) {
	def.ID = "wf-1"
	f.created = def
	return def, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (*repository.WorkflowDefinition, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	code, desc := "WF-ACC-STD", "Standard account opening"
	return &repository.WorkflowDefinition{
		ID:          id,
		Code:        &code,
		Description: &desc,
		EntityType:  repository.EntityAccount,
		FlowType:    "STANDARD",
		RiskRating:  "LOW",
		ChannelID:   "BRANCH",
		Purpose:     repository.PurposeOnboarding,
	}, nil
}

func (f *fakeCatalog) List(context.Context, int, int) ([]*repository.WorkflowDefinition, int64, error) {
	return nil, 0, nil
}

func (f *fakeCatalog) Search(_ context.Context, code, description *string, _, _ int) ([]*repository.WorkflowDefinition, int64, error) {
	if code == nil && description == nil {
		return nil, 0, apperrors.InvalidInput("search", "at least one of code or description is required")
	}
	return nil, 0, nil
}

func (f *fakeCatalog) Update(_ context.Context, def *repository.WorkflowDefinition) (*repository.WorkflowDefinition, error) {
	return def, nil
}

func (f *fakeCatalog) Delete(context.Context, string) error { return nil }

type fakeRunner struct {
	entity repository.EntityType
	docID  string
	req    *service.RunRequest
	err    error
}

func (f *fakeRunner) Run(_ context.Context, entity repository.EntityType, documentID string, req *service.RunRequest) (*service.RunResult, error) {
	f.entity = entity
	f.docID = documentID
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	status := "REQUEST_IS_AT_CHECKERS"
	return &service.RunResult{Status: &status, Level: 1, Applied: true}, nil
}

func (f *fakeRunner) Trail(context.Context, string) ([]*repository.TransitionAuditEntry, error) {
	return []*repository.TransitionAuditEntry{{ID: "audit-1", DocumentID: "doc-1", Result: "submitted"}}, nil
}

func newTestRouter(catalog *fakeCatalog, runner *fakeRunner) chi.Router {
	log := logger.New(logger.Config{Level: "disabled"})
	h := NewHTTPHandler(catalog, runner, log)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestCreateWorkflowEndpoint(t *testing.T) {
	catalog := &fakeCatalog{}
	router := newTestRouter(catalog, &fakeRunner{})

	body := `{
		"code": "WF-ACC-STD",
		"description": "Standard account opening",
		"entityType": "ACCOUNT",
		"flowType": "STANDARD",
		"riskRating": "LOW",
		"channelId": "BRANCH",
		"purpose": "ONBOARDING",
		"levels": [
			{"level": 1, "operation": "Submit", "supervisoryGroupId": "g-checkers", "initGroupId": "g-makers"},
			{"level": 2, "approvedGroupId": "g-managers", "revertedGroupId": "g-makers"},
			{"level": 3, "revertedGroupId": "g-checkers"}
		]
	}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/workflows/", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, catalog.created)
	assert.Equal(t, repository.EntityAccount, catalog.created.EntityType)
	assert.Len(t, catalog.created.Levels, 3)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "wf-1", resp["id"])
}

func TestCreateWorkflowRejectsBadJSON(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/workflows/", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWorkflowEndpoint(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workflows/wf-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "wf-1", resp["id"])
	assert.Equal(t, "ACCOUNT", resp["entityType"])
}

func TestGetWorkflowNotFound(t *testing.T) {
	catalog := &fakeCatalog{getErr: apperrors.NotFound("workflow_definition", "missing")}
	router := newTestRouter(catalog, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workflows/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchWorkflowsRequiresFilter(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workflows/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workflows/search?code=WF-ACC-STD", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunEndpointsRouteToEntityType(t *testing.T) {
	tests := []struct {
		path   string
		entity repository.EntityType
	}{
		{"/api/v1/run/account/doc-1", repository.EntityAccount},
		{"/api/v1/run/cif/doc-1", repository.EntityCIF},
		{"/api/v1/run/deposit-account/doc-1", repository.EntityDepositAccount},
		{"/api/v1/run/recurring-deposit/doc-1", repository.EntityRecurringDeposit},
		{"/api/v1/run/cif-account/doc-1", repository.EntityCIFAndAccount},
		{"/api/v1/run/cif-maint-account-open/doc-1", repository.EntityCIFMaintAccountOpen},
		{"/api/v1/run/remote-account/doc-1", repository.EntityRemoteAccount},
		{"/api/v1/run/remote-cif/doc-1", repository.EntityRemoteCIF},
		{"/api/v1/run/remote-cif-account/doc-1", repository.EntityRemoteCIFAndAccount},
	}

	for _, tt := range tests {
		runner := &fakeRunner{}
		router := newTestRouter(&fakeCatalog{}, runner)

		body := `{"flowType": "STANDARD", "riskRating": "LOW", "channelId": "BRANCH", "status": "APPROVED"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.entity, runner.entity, tt.path)
		assert.Equal(t, "doc-1", runner.docID, tt.path)
		require.NotNil(t, runner.req, tt.path)
		assert.Equal(t, "APPROVED", runner.req.Status, tt.path)
	}
}

func TestRunEndpointMapsErrors(t *testing.T) {
	runner := &fakeRunner{err: apperrors.Unavailable("fetch document", assert.AnError)}
	router := newTestRouter(&fakeCatalog{}, runner)

	body := `{"flowType": "STANDARD", "riskRating": "LOW", "channelId": "BRANCH"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/run/account/doc-1", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAuditTrailEndpoint(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit/doc-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "submitted", resp.Data[0]["result"])
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
