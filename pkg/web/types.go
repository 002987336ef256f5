// Package web provides HTTP request and response types for the job workflow API.
package web

import "github.com/sfgfab/jobflow/pkg/models"

// CreateJobRequest represents the request body for registering a new job.
type CreateJobRequest struct {
	JobNumber     string           `json:"job_number"     validate:"required,min=3"`
	CustomerName  string           `json:"customer_name"  validate:"required"`
	QuoteType     models.QuoteType `json:"quote_type"     validate:"required"`
	ContractValue float64          `json:"contract_value" validate:"min=0"`
}

// NavigateRequest represents the request body for a stage transition attempt.
// The job is addressed by the URL path; everything else mirrors the
// orchestrator's transition request.
type NavigateRequest struct {
	FromStage   models.Stage            `json:"from_stage"   validate:"required"`
	ToStage     models.Stage            `json:"to_stage"     validate:"required"`
	Action      models.NavigationAction `json:"action"       validate:"required,oneof=advance revert skip hold cancel"`
	PerformedBy string                  `json:"performed_by" validate:"required"`
	Reason      string                  `json:"reason,omitempty"`
	Notes       string                  `json:"notes,omitempty"`
	DataChanges map[string]any          `json:"data_changes,omitempty"`

	Confirm               bool   `json:"confirm"`
	SecondApproval        string `json:"second_approval,omitempty"`
	InstallationValidated bool   `json:"installation_validated"`
}

// CreateApprovalRequest represents the request body for opening an approval
// request against a quote or job.
type CreateApprovalRequest struct {
	EntityType            models.ApprovalEntityType `json:"entity_type"   validate:"required,oneof=quote job enquiry"`
	EntityID              string                    `json:"entity_id"     validate:"required"`
	ApprovalType          models.ApprovalType       `json:"approval_type" validate:"required"`
	QuoteType             models.QuoteType          `json:"quote_type"    validate:"required"`
	Value                 float64                   `json:"value"         validate:"min=0"`
	RequestedBy           string                    `json:"requested_by"  validate:"required"`
	Notes                 string                    `json:"notes,omitempty"`
	InstallationValidated bool                      `json:"installation_validated"`
}

// DecideApprovalRequest represents the request body for approving or
// rejecting an open approval request.
type DecideApprovalRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	Notes      string `json:"notes,omitempty"`
	// Reason is required when rejecting.
	Reason string `json:"reason,omitempty"`
}

// CalculateMarkupRequest represents the request body for a quote markup
// calculation.
type CalculateMarkupRequest struct {
	QuoteType models.QuoteType `json:"quote_type" validate:"required"`
	BaseValue float64          `json:"base_value" validate:"gt=0"`
}
