// Package approval implements the tiered, separation-of-duties approval
// scheme: the gate decides who may approve what, and the service manages the
// lifecycle of persisted approval requests.
package approval

import (
	"fmt"

	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/rules"
)

// Outcome is the gate's verdict on a candidate approver.
type Outcome string

const (
	// OutcomeSelfApproved: the candidate may approve unilaterally.
	OutcomeSelfApproved Outcome = "self_approved"
	// OutcomeSelfApprovedByOverride: approved unilaterally only through the
	// candidate's override capability. Reported separately so override use
	// stays auditable.
	OutcomeSelfApprovedByOverride Outcome = "self_approved_by_override"
	// OutcomeRequiresSecondApprover: a qualifying second approver must sign off.
	OutcomeRequiresSecondApprover Outcome = "requires_second_approver"
	// OutcomeBlocked: approval cannot be granted at all until the blocking
	// condition clears.
	OutcomeBlocked Outcome = "blocked"
)

// Machine-readable reason codes.
const (
	CodeMandatoryRuleFlag             = "quote_type_mandatory_approval"
	CodeMandatoryThresholdExceeded    = "mandatory_threshold_exceeded"
	CodeAboveSelfApprovalCeiling      = "above_self_approval_ceiling"
	CodeMissingCapability             = "missing_capability"
	CodeStageDisallowsSelfApproval    = "stage_disallows_self_approval"
	CodeMissingInstallationValidation = "missing_installation_validation"
	CodeWithinAuthority               = "within_authority"
	CodeOverrideUsed                  = "override_capability_used"
)

// ArtifactType selects which capability flag the gate checks.
type ArtifactType string

const (
	ArtifactQuote ArtifactType = "quote"
	ArtifactJob   ArtifactType = "job"
)

// SecondApproverRequirement is the qualification predicate a second approver
// must satisfy before the gated action may proceed.
type SecondApproverRequirement struct {
	Artifact ArtifactType `json:"artifact"`
	// MinApprovalValue is the authority floor: the second approver's own
	// ceiling must cover the monetary value.
	MinApprovalValue float64 `json:"min_approval_value"`
	// ExcludedApproverID enforces separation of duties.
	ExcludedApproverID string `json:"excluded_approver_id"`
}

// SatisfiedBy reports whether an approver qualifies as the second approver.
// Override capability waives both the authority floor and separation of
// duties.
func (r *SecondApproverRequirement) SatisfiedBy(approver *models.Approver) bool {
	if approver == nil {
		return false
	}

	if approver.CanOverrideApprovals {
		return true
	}

	if approver.ID == r.ExcludedApproverID {
		return false
	}

	if !hasCapability(approver, r.Artifact) {
		return false
	}

	return approver.MaxApprovalValue >= r.MinApprovalValue
}

// Request carries everything the gate needs to evaluate a candidate.
type Request struct {
	QuoteType models.QuoteType
	Value     float64
	Artifact  ArtifactType
	Candidate *models.Approver
	Workflow  *rules.ApprovalWorkflowDefinition
	// StageIndex selects the current approval workflow stage.
	StageIndex int
	// InstallationValidated is set once installation pricing validation has
	// been performed for quote types that require it.
	InstallationValidated bool
}

// Decision is the gate's full verdict. The gate is a pure decision function;
// it performs no writes.
type Decision struct {
	Outcome           Outcome                    `json:"outcome"`
	Code              string                     `json:"code"`
	Reason            string                     `json:"reason"`
	MandatoryApproval bool                       `json:"mandatory_approval"`
	MinimumMarkupPct  float64                    `json:"minimum_markup_pct"`
	RiskLevel         models.RiskLevel           `json:"risk_level"`
	SecondApprover    *SecondApproverRequirement `json:"second_approver,omitempty"`
}

// Gate evaluates approval authority against the quote risk model.
type Gate struct {
	riskModel *rules.QuoteRiskModel
}

// NewGate creates an approval gate over a quote risk model.
func NewGate(riskModel *rules.QuoteRiskModel) *Gate {
	return &Gate{riskModel: riskModel}
}

// Evaluate decides whether the candidate may unilaterally approve, and if
// not, what a qualifying second approver must satisfy.
func (g *Gate) Evaluate(req Request) (*Decision, error) {
	if req.Candidate == nil {
		return nil, fmt.Errorf("candidate approver is required")
	}

	if req.Workflow == nil {
		return nil, fmt.Errorf("approval workflow definition is required")
	}

	rule, ok := g.riskModel.RuleFor(req.QuoteType)
	if !ok {
		return nil, fmt.Errorf("no rule for quote type %s", req.QuoteType)
	}

	decision := &Decision{
		// Informational: enforced by the pricing collaborator, not here.
		MinimumMarkupPct: rule.MinimumMarkupPct,
		RiskLevel:        rule.RiskLevel,
	}

	// Installation validation blocks approval outright, regardless of who
	// is asking.
	if req.Workflow.RequiresInstallationValidation(req.QuoteType) && !req.InstallationValidated {
		decision.Outcome = OutcomeBlocked
		decision.Code = CodeMissingInstallationValidation
		decision.Reason = fmt.Sprintf("quote type %s requires installation pricing validation before approval", req.QuoteType)

		return decision, nil
	}

	mandatoryCode := ""

	switch {
	case rule.RequiresMandatoryApproval:
		mandatoryCode = CodeMandatoryRuleFlag
	case req.Value > req.Workflow.Rules.MandatoryApprovalThreshold:
		mandatoryCode = CodeMandatoryThresholdExceeded
	case req.Value > req.Candidate.MaxApprovalValue:
		mandatoryCode = CodeAboveSelfApprovalCeiling
	}

	decision.MandatoryApproval = mandatoryCode != ""
	stage := req.Workflow.StageAt(req.StageIndex)

	if !decision.MandatoryApproval && hasCapability(req.Candidate, req.Artifact) && stage.CanSelfApprove {
		decision.Outcome = OutcomeSelfApproved
		decision.Code = CodeWithinAuthority
		decision.Reason = "within self-approval authority"

		return decision, nil
	}

	// Override capability is an explicit, separately reported path around a
	// mandatory approval. Separation of duties still cannot be waived by the
	// rule-flag case: a second pair of eyes is the point of the flag.
	if decision.MandatoryApproval && mandatoryCode != CodeMandatoryRuleFlag && req.Candidate.CanOverrideApprovals {
		decision.Outcome = OutcomeSelfApprovedByOverride
		decision.Code = CodeOverrideUsed
		decision.Reason = "approved through override capability"

		return decision, nil
	}

	reasonCode := mandatoryCode

	switch {
	case reasonCode != "":
	case !hasCapability(req.Candidate, req.Artifact):
		reasonCode = CodeMissingCapability
	default:
		reasonCode = CodeStageDisallowsSelfApproval
	}

	decision.Outcome = OutcomeRequiresSecondApprover
	decision.Code = reasonCode
	decision.Reason = secondApproverReason(reasonCode)
	decision.SecondApprover = &SecondApproverRequirement{
		Artifact:           req.Artifact,
		MinApprovalValue:   req.Value,
		ExcludedApproverID: req.Candidate.ID,
	}

	return decision, nil
}

func hasCapability(approver *models.Approver, artifact ArtifactType) bool {
	switch artifact {
	case ArtifactJob:
		return approver.CanApproveJobs
	default:
		return approver.CanApproveQuotes
	}
}

func secondApproverReason(code string) string {
	switch code {
	case CodeMandatoryRuleFlag:
		return "quote type mandates independent approval"
	case CodeMandatoryThresholdExceeded:
		return "value exceeds the mandatory approval threshold"
	case CodeAboveSelfApprovalCeiling:
		return "value exceeds the candidate's approval ceiling"
	case CodeMissingCapability:
		return "candidate lacks the approval capability for this artifact"
	case CodeStageDisallowsSelfApproval:
		return "current approval stage does not allow self-approval"
	default:
		return "a qualifying second approver is required"
	}
}
