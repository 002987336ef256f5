package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfgfab/jobflow/pkg/approval"
	"github.com/sfgfab/jobflow/pkg/directory"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/navigation"
	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/sfgfab/jobflow/pkg/persistence/file"
	"github.com/sfgfab/jobflow/pkg/rules"
	"github.com/sfgfab/jobflow/pkg/testutil"
	"github.com/sfgfab/jobflow/pkg/web"
	"github.com/sfgfab/jobflow/pkg/workflow"
)

func setupTestApp(t *testing.T) (*fiber.App, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	catalog := models.DefaultCatalog()
	riskModel := rules.DefaultQuoteRiskModel()
	workflows := rules.DefaultWorkflowSet()
	gate := approval.NewGate(riskModel)

	dir, err := directory.NewStaticDirectory([]models.Approver{
		testutil.CreateTestApprover("operator", testutil.WithApprovalCeiling(20000)),
		testutil.CreateTestApprover("manager", testutil.WithApprovalCeiling(200000)),
		testutil.CreateTestApprover("director", testutil.WithOverrideAuthority(), testutil.WithApprovalCeiling(500000)),
	})
	require.NoError(t, err)

	logger := slog.Default()
	committer := workflow.NewCommitter(p.Jobs(), catalog, nil, nil, logger)
	orchestrator := workflow.NewOrchestrator(
		p,
		navigation.NewValidator(catalog, navigation.Policy{}),
		gate,
		workflows,
		dir,
		committer,
		nil,
		logger,
	)
	approvalService := approval.NewService(p.Approvals(), dir, gate, workflows, nil, logger)

	handlers := web.NewAPIHandlers(
		orchestrator,
		approvalService,
		riskModel,
		catalog,
		p,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)

	jobs := app.Group("/jobs")
	jobs.Post("/", handlers.CreateJob)
	jobs.Get("/:id", handlers.GetJob)
	jobs.Post("/:id/navigate", handlers.NavigateJob)
	jobs.Get("/:id/navigations", handlers.GetNavigationHistory)

	approvals := app.Group("/approvals")
	approvals.Post("/", handlers.CreateApproval)
	approvals.Get("/", handlers.ListApprovals)
	approvals.Get("/:id", handlers.GetApproval)
	approvals.Post("/:id/approve", handlers.ApproveApproval)
	approvals.Post("/:id/reject", handlers.RejectApproval)

	quotes := app.Group("/quote-types")
	quotes.Get("/", handlers.GetQuoteTypes)
	quotes.Post("/calculate-markup", handlers.CalculateMarkup)

	return app, p
}

func postJSON(t *testing.T, app *fiber.App, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func createTestJob(t *testing.T, app *fiber.App, contractValue float64) models.Job {
	t.Helper()

	resp := postJSON(t, app, "/jobs/", web.CreateJobRequest{
		JobNumber:     "J-2001",
		CustomerName:  "Harbour Joinery",
		QuoteType:     models.QuoteTypeSupplyOnly,
		ContractValue: contractValue,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var job models.Job
	decodeBody(t, resp, &job)

	return job
}

func TestAPIHandlers_CreateJob(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	job := createTestJob(t, app, 4200)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "J-2001", job.JobNumber)
	assert.Equal(t, models.JobStatusApproved, job.Status)
	assert.Equal(t, models.StageCustomerCommunication, job.CurrentStage)
	assert.Len(t, job.Steps, 10)
	assert.Equal(t, models.StepStatusInProgress, job.Steps[0].Status)
}

func TestAPIHandlers_CreateJob_Validation(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/jobs/", web.CreateJobRequest{
		JobNumber: "J-2002",
		QuoteType: models.QuoteTypeSupplyOnly,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = postJSON(t, app, "/jobs/", web.CreateJobRequest{
		JobNumber:    "J-2003",
		CustomerName: "Harbour Joinery",
		QuoteType:    models.QuoteType("ad_hoc"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func TestAPIHandlers_GetJob_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func TestAPIHandlers_NavigateJob_PreviewThenCommit(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	job := createTestJob(t, app, 4200)

	navigate := web.NavigateRequest{
		FromStage:   models.StageCustomerCommunication,
		ToStage:     models.StageDrawingApproval,
		Action:      models.ActionAdvance,
		PerformedBy: "operator",
	}

	resp := postJSON(t, app, "/jobs/"+job.ID+"/navigate", navigate)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var preview workflow.TransitionResult
	decodeBody(t, resp, &preview)
	assert.Equal(t, workflow.StatusPreviewRequired, preview.Status)
	assert.Nil(t, preview.Record)

	navigate.Confirm = true
	resp = postJSON(t, app, "/jobs/"+job.ID+"/navigate", navigate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var committed workflow.TransitionResult
	decodeBody(t, resp, &committed)
	assert.Equal(t, workflow.StatusCommitted, committed.Status)
	require.NotNil(t, committed.Record)
	assert.Equal(t, models.StageDrawingApproval, committed.Record.ToStage)
}

func TestAPIHandlers_NavigateJob_DeniedUnknownStage(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	job := createTestJob(t, app, 4200)

	resp := postJSON(t, app, "/jobs/"+job.ID+"/navigate", web.NavigateRequest{
		FromStage:   models.StageCustomerCommunication,
		ToStage:     models.Stage("paint_shop"),
		Action:      models.ActionAdvance,
		PerformedBy: "operator",
		Confirm:     true,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var result workflow.TransitionResult
	decodeBody(t, resp, &result)
	assert.Equal(t, workflow.StatusDenied, result.Status)
}

func TestAPIHandlers_NavigateJob_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/jobs/missing/navigate", web.NavigateRequest{
		FromStage:   models.StageCustomerCommunication,
		ToStage:     models.StageDrawingApproval,
		Action:      models.ActionAdvance,
		PerformedBy: "operator",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func TestAPIHandlers_GetNavigationHistory(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	job := createTestJob(t, app, 4200)

	resp := postJSON(t, app, "/jobs/"+job.ID+"/navigate", web.NavigateRequest{
		FromStage:   models.StageCustomerCommunication,
		ToStage:     models.StageDrawingApproval,
		Action:      models.ActionAdvance,
		PerformedBy: "operator",
		Confirm:     true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID+"/navigations?limit=10", nil)
	historyResp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, historyResp.StatusCode)

	var history struct {
		JobID   string                     `json:"job_id"`
		Records []*models.NavigationRecord `json:"records"`
		Count   int                        `json:"count"`
	}
	decodeBody(t, historyResp, &history)
	assert.Equal(t, job.ID, history.JobID)
	assert.Equal(t, 1, history.Count)
	require.Len(t, history.Records, 1)
	assert.Equal(t, models.StageDrawingApproval, history.Records[0].ToStage)
}

func TestAPIHandlers_ApprovalLifecycle(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/approvals/", web.CreateApprovalRequest{
		EntityType:   models.EntityTypeQuote,
		EntityID:     "Q-3001",
		ApprovalType: models.ApprovalTypeQuote,
		QuoteType:    models.QuoteTypeSupplyOnly,
		Value:        30000,
		RequestedBy:  "operator",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var opened models.Approval
	decodeBody(t, resp, &opened)
	assert.Equal(t, models.ApprovalStatusPending, opened.Status)

	// A second open request for the same entity conflicts.
	resp = postJSON(t, app, "/approvals/", web.CreateApprovalRequest{
		EntityType:   models.EntityTypeQuote,
		EntityID:     "Q-3001",
		ApprovalType: models.ApprovalTypeQuote,
		QuoteType:    models.QuoteTypeSupplyOnly,
		Value:        30000,
		RequestedBy:  "operator",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = postJSON(t, app, "/approvals/"+opened.ID+"/approve", web.DecideApprovalRequest{
		ApproverID: "manager",
		Notes:      "pricing reviewed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first models.Approval
	decodeBody(t, resp, &first)
	assert.Equal(t, models.ApprovalStatusRequiresSecondApproval, first.Status)
	assert.Equal(t, "manager", first.ApprovedBy)

	resp = postJSON(t, app, "/approvals/"+opened.ID+"/approve", web.DecideApprovalRequest{
		ApproverID: "director",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decided models.Approval
	decodeBody(t, resp, &decided)
	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)
	assert.Equal(t, "director", decided.SecondApprovedBy)

	req := httptest.NewRequest(http.MethodGet, "/approvals/"+opened.ID, nil)
	getResp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	require.NoError(t, getResp.Body.Close())
}

func TestAPIHandlers_RejectApproval_RequiresReason(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/approvals/", web.CreateApprovalRequest{
		EntityType:   models.EntityTypeQuote,
		EntityID:     "Q-3002",
		ApprovalType: models.ApprovalTypeQuote,
		QuoteType:    models.QuoteTypeSupplyOnly,
		Value:        30000,
		RequestedBy:  "operator",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var opened models.Approval
	decodeBody(t, resp, &opened)

	resp = postJSON(t, app, "/approvals/"+opened.ID+"/reject", web.DecideApprovalRequest{
		ApproverID: "manager",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = postJSON(t, app, "/approvals/"+opened.ID+"/reject", web.DecideApprovalRequest{
		ApproverID: "manager",
		Reason:     "materials quote out of date",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rejected models.Approval
	decodeBody(t, resp, &rejected)
	assert.Equal(t, models.ApprovalStatusRejected, rejected.Status)
}

func TestAPIHandlers_ListApprovals_Filtering(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)

	now := time.Now().UTC()
	for _, id := range []string{"Q-1", "Q-2"} {
		err := p.Approvals().SaveApproval(t.Context(), &models.Approval{
			ID:           "apr-" + id,
			EntityType:   models.EntityTypeQuote,
			EntityID:     id,
			ApprovalType: models.ApprovalTypeQuote,
			Status:       models.ApprovalStatusPending,
			QuoteType:    models.QuoteTypeSupplyOnly,
			Value:        1000,
			RequestedBy:  "operator",
			RequestedAt:  now,
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/approvals/?entity_type=quote&entity_id=Q-2", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Approvals []*models.Approval `json:"approvals"`
		Count     int                `json:"count"`
	}
	decodeBody(t, resp, &listing)
	assert.Equal(t, 1, listing.Count)
	require.Len(t, listing.Approvals, 1)
	assert.Equal(t, "Q-2", listing.Approvals[0].EntityID)
}

func TestAPIHandlers_QuoteTypes(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/quote-types/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		QuoteTypes []models.QuoteTypeRule `json:"quote_types"`
	}
	decodeBody(t, resp, &listing)
	assert.Len(t, listing.QuoteTypes, 5)
}

func TestAPIHandlers_CalculateMarkup(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/quote-types/calculate-markup", web.CalculateMarkupRequest{
		QuoteType: models.QuoteTypeSupplyOnly,
		BaseValue: 1000,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var calc rules.MarkupCalculation
	decodeBody(t, resp, &calc)
	assert.InDelta(t, 1000.0, calc.BaseValue, 0.001)
	assert.Greater(t, calc.FinalValue, calc.BaseValue)

	resp = postJSON(t, app, "/quote-types/calculate-markup", web.CalculateMarkupRequest{
		QuoteType: models.QuoteType("ad_hoc"),
		BaseValue: 1000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
}
