// Package web provides HTTP handlers and REST API endpoints for job workflow
// navigation and approval management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/sfgfab/jobflow/pkg/approval"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/sfgfab/jobflow/pkg/rules"
	"github.com/sfgfab/jobflow/pkg/workflow"
)

type APIHandlers struct {
	orchestrator    *workflow.Orchestrator
	approvalService *approval.Service
	riskModel       *rules.QuoteRiskModel
	catalog         *models.Catalog
	persistence     persistence.Persistence
	validator       *validator.Validate
}

func NewAPIHandlers(
	orchestrator *workflow.Orchestrator,
	approvalService *approval.Service,
	riskModel *rules.QuoteRiskModel,
	catalog *models.Catalog,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator:    orchestrator,
		approvalService: approvalService,
		riskModel:       riskModel,
		catalog:         catalog,
		persistence:     persistence,
		validator:       validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryErr := h.persistence.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Jobflow API is unhealthy"
	httpStatus := http.StatusInternalServerError
	repositoryCheck := "ok"

	if repositoryErr == nil {
		status = "healthy"
		message = "Jobflow API is healthy"
		httpStatus = http.StatusOK
	} else {
		repositoryCheck = repositoryErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateJob(c fiber.Ctx) error {
	var req CreateJobRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, ok := h.riskModel.RuleFor(req.QuoteType); !ok {
		return badRequest(c, "Unknown quote type: "+string(req.QuoteType))
	}

	now := time.Now().UTC()
	first := h.catalog.Stages()[0]
	status, _ := h.catalog.ProjectStatus(first)

	job := &models.Job{
		ID:            uuid.New().String(),
		JobNumber:     req.JobNumber,
		CustomerName:  req.CustomerName,
		QuoteType:     req.QuoteType,
		ContractValue: req.ContractValue,
		Status:        status,
		CurrentStage:  first,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	job.MaterializeSteps(h.catalog, now)

	entry := job.StepForStage(first)
	entry.Status = models.StepStatusInProgress
	entry.StartedAt = &now

	if err := h.persistence.Jobs().SaveJob(c.Context(), job); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

func (h *APIHandlers) GetJob(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Job ID is required")
	}

	job, err := h.persistence.Jobs().JobByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(job)
}

// NavigateJob runs one transition attempt through the orchestrator. The
// response body is always the structured transition result; the HTTP status
// distinguishes committed, preview-required, and denied outcomes.
func (h *APIHandlers) NavigateJob(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Job ID is required")
	}

	var req NavigateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.orchestrator.RequestTransition(c.Context(), &workflow.TransitionRequest{
		JobID:                 id,
		FromStage:             req.FromStage,
		ToStage:               req.ToStage,
		Action:                req.Action,
		PerformedBy:           req.PerformedBy,
		Reason:                req.Reason,
		Notes:                 req.Notes,
		DataChanges:           req.DataChanges,
		Confirm:               req.Confirm,
		SecondApproval:        req.SecondApproval,
		InstallationValidated: req.InstallationValidated,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(transitionStatusCode(result)).JSON(result)
}

func transitionStatusCode(result *workflow.TransitionResult) int {
	switch result.Status {
	case workflow.StatusCommitted:
		return fiber.StatusOK
	case workflow.StatusPreviewRequired:
		return fiber.StatusAccepted
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func (h *APIHandlers) GetNavigationHistory(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Job ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	records, err := h.orchestrator.NavigationHistory(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"job_id":  id,
		"records": records,
		"count":   len(records),
	})
}

func (h *APIHandlers) CreateApproval(c fiber.Ctx) error {
	var req CreateApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.approvalService.Request(c.Context(), approval.RequestInput{
		EntityType:            req.EntityType,
		EntityID:              req.EntityID,
		ApprovalType:          req.ApprovalType,
		QuoteType:             req.QuoteType,
		Value:                 req.Value,
		RequestedBy:           req.RequestedBy,
		Notes:                 req.Notes,
		InstallationValidated: req.InstallationValidated,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Approval ID is required")
	}

	result, err := h.approvalService.Status(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ApproveApproval(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Approval ID is required")
	}

	var req DecideApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.approvalService.Approve(c.Context(), id, req.ApproverID, req.Notes)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) RejectApproval(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Approval ID is required")
	}

	var req DecideApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.Reason == "" {
		return badRequest(c, "Rejection reason is required")
	}

	result, err := h.approvalService.Reject(c.Context(), id, req.ApproverID, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ListApprovals(c fiber.Ctx) error {
	filter := persistence.ApprovalFilter{
		EntityType:   models.ApprovalEntityType(c.Query("entity_type")),
		EntityID:     c.Query("entity_id"),
		ApprovalType: models.ApprovalType(c.Query("approval_type")),
		Status:       models.ApprovalStatus(c.Query("status")),
	}

	approvals, err := h.persistence.Approvals().ListApprovals(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"approvals": approvals,
		"count":     len(approvals),
	})
}

func (h *APIHandlers) GetQuoteTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"quote_types": h.riskModel.Rules(),
	})
}

func (h *APIHandlers) CalculateMarkup(c fiber.Ctx) error {
	var req CalculateMarkupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.riskModel.CalculateMarkup(req.QuoteType, req.BaseValue)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(result)
}
