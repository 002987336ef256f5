// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/sfgfab/jobflow/pkg/models"
)

// CreateTestJob creates a test job with default values that can be
// overridden. Steps are materialized against the default catalog.
func CreateTestJob(overrides ...func(*models.Job)) *models.Job {
	now := time.Now().UTC()

	job := &models.Job{
		ID:            uuid.New().String(),
		JobNumber:     "J-1001",
		CustomerName:  "Test Customer",
		QuoteType:     models.QuoteTypeSupplyOnly,
		ContractValue: 5000,
		Status:        models.JobStatusApproved,
		CurrentStage:  models.StageCustomerCommunication,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	job.MaterializeSteps(models.DefaultCatalog(), now)

	for _, override := range overrides {
		override(job)
	}

	return job
}

// WithJobAtStage positions the job at the given stage, completing every
// earlier step and starting the step for the stage itself.
func WithJobAtStage(stage models.Stage) func(*models.Job) {
	return func(j *models.Job) {
		catalog := models.DefaultCatalog()

		target, ok := catalog.IndexOf(stage)
		if !ok {
			panic("unknown stage: " + string(stage))
		}

		now := time.Now().UTC()

		for i, s := range catalog.Stages() {
			step := j.StepForStage(s)

			switch {
			case i < target:
				step.Status = models.StepStatusCompleted
				step.StartedAt = &now
				step.CompletedAt = &now
			case i == target:
				step.Status = models.StepStatusInProgress
				step.StartedAt = &now
			}
		}

		j.CurrentStage = stage

		if status, ok := catalog.ProjectStatus(stage); ok {
			j.Status = status
		}
	}
}

// WithContractValue sets the job's contract value.
func WithContractValue(value float64) func(*models.Job) {
	return func(j *models.Job) {
		j.ContractValue = value
	}
}

// WithQuoteType sets the job's quote type.
func WithQuoteType(quoteType models.QuoteType) func(*models.Job) {
	return func(j *models.Job) {
		j.QuoteType = quoteType
	}
}

// CreateTestApprover creates a test approver with default values that can be
// overridden.
func CreateTestApprover(id string, overrides ...func(*models.Approver)) models.Approver {
	approver := models.Approver{
		ID:               id,
		Name:             "Test Approver",
		Email:            id + "@example.com",
		Role:             "manager",
		CanApproveQuotes: true,
		CanApproveJobs:   true,
		MaxApprovalValue: 100000,
	}

	for _, override := range overrides {
		override(&approver)
	}

	return approver
}

// WithApprovalCeiling sets the approver's maximum approval value.
func WithApprovalCeiling(value float64) func(*models.Approver) {
	return func(a *models.Approver) {
		a.MaxApprovalValue = value
	}
}

// WithOverrideAuthority grants the approver override authority.
func WithOverrideAuthority() func(*models.Approver) {
	return func(a *models.Approver) {
		a.CanOverrideApprovals = true
	}
}

// CreateTestApproval creates an open test approval with default values that
// can be overridden.
func CreateTestApproval(overrides ...func(*models.Approval)) *models.Approval {
	approval := &models.Approval{
		ID:           uuid.New().String(),
		EntityType:   models.EntityTypeQuote,
		EntityID:     "Q-1001",
		ApprovalType: models.ApprovalTypeQuote,
		Status:       models.ApprovalStatusPending,
		Priority:     models.PriorityMedium,
		QuoteType:    models.QuoteTypeSupplyOnly,
		Value:        5000,
		RequestedBy:  "requester",
		RequestedAt:  time.Now().UTC(),
	}

	for _, override := range overrides {
		override(approval)
	}

	return approval
}
