package rules

import (
	"time"

	"github.com/sfgfab/jobflow/pkg/models"
)

// ApprovalStage is one stage of an approval workflow definition.
type ApprovalStage struct {
	Stage                   string   `json:"stage"  validate:"required"`
	Name                    string   `json:"name"   validate:"required"`
	RequiresApproval        bool     `json:"requires_approval"`
	CanSelfApprove          bool     `json:"can_self_approve"`
	MandatorySecondApproval bool     `json:"mandatory_second_approval"`
	ValidationChecks        []string `json:"validation_checks,omitempty"`
}

// WorkflowRules are the workflow-level thresholds and validation requirements.
type WorkflowRules struct {
	MaxSelfApprovalValue        float64            `json:"max_self_approval_value"`
	MandatoryApprovalThreshold  float64            `json:"mandatory_approval_threshold"`
	InstallationValidationTypes []models.QuoteType `json:"installation_validation_types,omitempty"`
	EscalationAfter             time.Duration      `json:"escalation_after"`
}

// ApprovalWorkflowDefinition is a named, ordered approval pipeline plus its
// rules. Static reference data selected by monetary value.
type ApprovalWorkflowDefinition struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Stages      []ApprovalStage `json:"stages" validate:"required,min=1"`
	Rules       WorkflowRules   `json:"rules"`
}

// StageAt returns the approval stage at an index, clamped to the last stage.
func (d *ApprovalWorkflowDefinition) StageAt(index int) ApprovalStage {
	if index < 0 {
		index = 0
	}

	if index >= len(d.Stages) {
		index = len(d.Stages) - 1
	}

	return d.Stages[index]
}

// RequiresInstallationValidation reports whether a quote type needs an
// installation pricing validation before approval can be granted.
func (d *ApprovalWorkflowDefinition) RequiresInstallationValidation(quoteType models.QuoteType) bool {
	for _, t := range d.Rules.InstallationValidationTypes {
		if t == quoteType {
			return true
		}
	}

	return false
}

// StandardQuoteApproval is the default workflow for ordinary quotes.
func StandardQuoteApproval() *ApprovalWorkflowDefinition {
	return &ApprovalWorkflowDefinition{
		Name:        "standard_quote_approval",
		Description: "Standard approval workflow for new quotes",
		Stages: []ApprovalStage{
			{
				Stage:          "creation",
				Name:           "Quote Creation",
				CanSelfApprove: true,
			},
			{
				Stage:            "pricing_validation",
				Name:             "Pricing Validation",
				RequiresApproval: true,
				CanSelfApprove:   true,
				ValidationChecks: []string{"product_count", "price_validation"},
			},
			{
				Stage:                   "pre_send_approval",
				Name:                    "Pre-Send Approval",
				RequiresApproval:        true,
				MandatorySecondApproval: true,
				ValidationChecks:        []string{"product_count", "price_validation", "installation_pricing", "quote_type"},
			},
		},
		Rules: WorkflowRules{
			MaxSelfApprovalValue:       10000,
			MandatoryApprovalThreshold: 25000,
			InstallationValidationTypes: []models.QuoteType{
				models.QuoteTypeSupplyAndInstall,
				models.QuoteTypeLabourOnly,
				models.QuoteTypeEmergencyRepair,
			},
			EscalationAfter: 24 * time.Hour,
		},
	}
}

// HighValueQuoteApproval is the enhanced workflow for quotes above the
// high-value trigger. No stage allows self-approval.
func HighValueQuoteApproval() *ApprovalWorkflowDefinition {
	return &ApprovalWorkflowDefinition{
		Name:        "high_value_quote_approval",
		Description: "Enhanced approval workflow for high-value quotes",
		Stages: []ApprovalStage{
			{
				Stage:                   "creation",
				Name:                    "Quote Creation",
				RequiresApproval:        true,
				MandatorySecondApproval: true,
			},
			{
				Stage:                   "technical_review",
				Name:                    "Technical Review",
				RequiresApproval:        true,
				MandatorySecondApproval: true,
				ValidationChecks:        []string{"product_count", "price_validation", "installation_pricing"},
			},
			{
				Stage:                   "management_approval",
				Name:                    "Management Approval",
				RequiresApproval:        true,
				MandatorySecondApproval: true,
				ValidationChecks:        []string{"all"},
			},
		},
		Rules: WorkflowRules{
			MandatoryApprovalThreshold: 25000,
			InstallationValidationTypes: []models.QuoteType{
				models.QuoteTypeSupplyAndInstall,
				models.QuoteTypeLabourOnly,
				models.QuoteTypeEmergencyRepair,
			},
			EscalationAfter: 24 * time.Hour,
		},
	}
}

// WorkflowSet selects an approval workflow definition by monetary value.
type WorkflowSet struct {
	Standard         *ApprovalWorkflowDefinition
	HighValue        *ApprovalWorkflowDefinition
	HighValueTrigger float64
}

// DefaultWorkflowSet mirrors the standard/high-value split with the 50k trigger.
func DefaultWorkflowSet() *WorkflowSet {
	return &WorkflowSet{
		Standard:         StandardQuoteApproval(),
		HighValue:        HighValueQuoteApproval(),
		HighValueTrigger: 50000,
	}
}

// SelectForValue returns the workflow definition governing a monetary value.
func (s *WorkflowSet) SelectForValue(value float64) *ApprovalWorkflowDefinition {
	if value > s.HighValueTrigger {
		return s.HighValue
	}

	return s.Standard
}
