package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sfgfab/jobflow/pkg/directory"
	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/events"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/sfgfab/jobflow/pkg/rules"
)

var (
	// ErrApprovalClosed indicates the approval has already been decided.
	ErrApprovalClosed = errors.New("approval already decided")

	// ErrApprovalBlocked indicates a blocking condition (such as missing
	// installation validation) must clear before an approval can open.
	ErrApprovalBlocked = errors.New("approval blocked")

	// ErrSelfApprovalNotAllowed indicates the requester tried to decide
	// their own mandatory approval.
	ErrSelfApprovalNotAllowed = errors.New("self-approval not allowed")

	// ErrUnqualifiedApprover indicates the approver does not satisfy the
	// second-approver requirement.
	ErrUnqualifiedApprover = errors.New("approver does not qualify")
)

// RequestInput opens an approval request against a quote or job.
type RequestInput struct {
	EntityType   models.ApprovalEntityType `json:"entity_type"   validate:"required,oneof=quote job enquiry"`
	EntityID     string                    `json:"entity_id"     validate:"required"`
	ApprovalType models.ApprovalType       `json:"approval_type" validate:"required"`
	QuoteType    models.QuoteType          `json:"quote_type"    validate:"required"`
	Value        float64                   `json:"value"         validate:"min=0"`
	RequestedBy  string                    `json:"requested_by"  validate:"required"`
	Notes        string                    `json:"notes,omitempty"`
	// InstallationValidated is set once installation pricing has been
	// validated for quote types that require it.
	InstallationValidated bool `json:"installation_validated"`
}

// Service manages the lifecycle of persisted approval requests: request,
// approve, reject, and second-approval promotion.
type Service struct {
	approvals persistence.ApprovalRepository
	directory directory.Directory
	gate      *Gate
	workflows *rules.WorkflowSet
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

// NewService creates the approval lifecycle service. The publisher may be
// nil; lifecycle events are then skipped.
func NewService(
	approvals persistence.ApprovalRepository,
	dir directory.Directory,
	gate *Gate,
	workflows *rules.WorkflowSet,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		approvals: approvals,
		directory: dir,
		gate:      gate,
		workflows: workflows,
		publisher: publisher,
		logger:    logger.With("module", "approval_service"),
	}
}

// Request opens an approval request. The requester is evaluated against the
// gate immediately: a requester within their own authority produces an
// already-approved record, everything else opens a pending request. At most
// one open request may exist per entity and approval type.
func (s *Service) Request(ctx context.Context, input RequestInput) (*models.Approval, error) {
	existing, err := s.approvals.OpenApproval(ctx, input.EntityType, input.EntityID, input.ApprovalType)
	if err != nil && !persistence.IsApprovalNotFound(err) {
		return nil, fmt.Errorf("failed to check for open approval: %w", err)
	}

	if existing != nil {
		return nil, &persistence.ApprovalError{Op: "Request", ApprovalID: existing.ID, Err: persistence.ErrDuplicateApproval}
	}

	requester, err := s.directory.ApproverByID(ctx, input.RequestedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve requester: %w", err)
	}

	workflow := s.workflows.SelectForValue(input.Value)
	stageIndex := initialStageIndex(workflow, input.ApprovalType)

	decision, err := s.gate.Evaluate(Request{
		QuoteType:             input.QuoteType,
		Value:                 input.Value,
		Artifact:              artifactFor(input.EntityType),
		Candidate:             requester,
		Workflow:              workflow,
		StageIndex:            stageIndex,
		InstallationValidated: input.InstallationValidated,
	})
	if err != nil {
		return nil, err
	}

	if decision.Outcome == OutcomeBlocked {
		return nil, fmt.Errorf("%w: %s", ErrApprovalBlocked, decision.Reason)
	}

	now := time.Now().UTC()
	approval := &models.Approval{
		ID:                uuid.New().String(),
		EntityType:        input.EntityType,
		EntityID:          input.EntityID,
		ApprovalType:      input.ApprovalType,
		Stage:             workflow.StageAt(stageIndex).Stage,
		Priority:          priorityFor(decision.RiskLevel),
		QuoteType:         input.QuoteType,
		Value:             input.Value,
		MandatoryApproval: decision.MandatoryApproval,
		CanSelfApprove:    decision.Outcome == OutcomeSelfApproved,
		RequestedBy:       input.RequestedBy,
		RequestNotes:      input.Notes,
		RequestedAt:       now,
	}

	switch decision.Outcome {
	case OutcomeSelfApproved, OutcomeSelfApprovedByOverride:
		approval.Status = models.ApprovalStatusApproved
		approval.ApprovedBy = input.RequestedBy
		approval.ApprovedAt = &now

		if decision.Outcome == OutcomeSelfApprovedByOverride {
			approval.ApprovalNotes = "approved through override capability"
		}
	default:
		approval.Status = models.ApprovalStatusPending
		approval.RequiresSecondApproval = decision.SecondApprover != nil
	}

	err = s.approvals.SaveApproval(ctx, approval)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Approval requested",
		"approval_id", approval.ID,
		"entity_id", approval.EntityID,
		"status", approval.Status,
		"priority", approval.Priority,
	)

	s.publishRequested(ctx, approval)

	if approval.Status == models.ApprovalStatusApproved {
		s.publishDecided(ctx, approval, input.RequestedBy, approval.ApprovalNotes)
	}

	return approval, nil
}

// Approve records an approval decision. A pending mandatory approval decided
// by someone other than the requester is promoted to requires_second_approval
// when the workflow stage demands two signatures; otherwise it closes as
// approved. An approval sitting at requires_second_approval closes once a
// qualifying second approver signs.
func (s *Service) Approve(ctx context.Context, approvalID, approverID, notes string) (*models.Approval, error) {
	approval, err := s.approvals.ApprovalByID(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	if !approval.Open() {
		return nil, &persistence.ApprovalError{Op: "Approve", ApprovalID: approvalID, Err: ErrApprovalClosed}
	}

	approver, err := s.directory.ApproverByID(ctx, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve approver: %w", err)
	}

	now := time.Now().UTC()

	if approval.Status == models.ApprovalStatusRequiresSecondApproval {
		err = s.applySecondApproval(approval, approver, now)
	} else {
		err = s.applyFirstApproval(approval, approver, now)
	}

	if err != nil {
		return nil, &persistence.ApprovalError{Op: "Approve", ApprovalID: approvalID, Err: err}
	}

	approval.ApprovalNotes = joinNotes(approval.ApprovalNotes, notes)

	err = s.approvals.SaveApproval(ctx, approval)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Approval decision recorded",
		"approval_id", approval.ID,
		"status", approval.Status,
		"decided_by", approverID,
	)

	s.publishDecided(ctx, approval, approverID, notes)

	return approval, nil
}

func (s *Service) applyFirstApproval(approval *models.Approval, approver *models.Approver, now time.Time) error {
	if approval.MandatoryApproval && approver.ID == approval.RequestedBy && !approver.CanOverrideApprovals {
		return ErrSelfApprovalNotAllowed
	}

	requirement := &SecondApproverRequirement{
		Artifact:           artifactFor(approval.EntityType),
		MinApprovalValue:   approval.Value,
		ExcludedApproverID: approval.RequestedBy,
	}
	if !requirement.SatisfiedBy(approver) {
		return ErrUnqualifiedApprover
	}

	approval.ApprovedBy = approver.ID
	approval.ApprovedAt = &now

	workflow := s.workflows.SelectForValue(approval.Value)
	stage := workflow.StageAt(initialStageIndex(workflow, approval.ApprovalType))

	if stage.MandatorySecondApproval {
		approval.Status = models.ApprovalStatusRequiresSecondApproval
		approval.RequiresSecondApproval = true
	} else {
		approval.Status = models.ApprovalStatusApproved
	}

	return nil
}

func (s *Service) applySecondApproval(approval *models.Approval, approver *models.Approver, now time.Time) error {
	requirement := &SecondApproverRequirement{
		Artifact:           artifactFor(approval.EntityType),
		MinApprovalValue:   approval.Value,
		ExcludedApproverID: approval.ApprovedBy,
	}
	if !requirement.SatisfiedBy(approver) {
		return ErrUnqualifiedApprover
	}

	approval.SecondApprovedBy = approver.ID
	approval.SecondApprovedAt = &now
	approval.Status = models.ApprovalStatusApproved

	return nil
}

// Reject closes an open approval as rejected. Any approver known to the
// directory may reject.
func (s *Service) Reject(ctx context.Context, approvalID, approverID, reason string) (*models.Approval, error) {
	approval, err := s.approvals.ApprovalByID(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	if !approval.Open() {
		return nil, &persistence.ApprovalError{Op: "Reject", ApprovalID: approvalID, Err: ErrApprovalClosed}
	}

	if _, err := s.directory.ApproverByID(ctx, approverID); err != nil {
		return nil, fmt.Errorf("failed to resolve approver: %w", err)
	}

	now := time.Now().UTC()
	approval.Status = models.ApprovalStatusRejected
	approval.RejectedBy = approverID
	approval.RejectedAt = &now
	approval.RejectionReason = reason

	err = s.approvals.SaveApproval(ctx, approval)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Approval rejected",
		"approval_id", approval.ID,
		"rejected_by", approverID,
	)

	s.publishDecided(ctx, approval, approverID, reason)

	return approval, nil
}

// Status returns the current state of an approval request.
func (s *Service) Status(ctx context.Context, approvalID string) (*models.Approval, error) {
	return s.approvals.ApprovalByID(ctx, approvalID)
}

// OpenFor returns the open approval for an entity and approval type, or
// ErrApprovalNotFound.
func (s *Service) OpenFor(ctx context.Context, entityType models.ApprovalEntityType, entityID string, approvalType models.ApprovalType) (*models.Approval, error) {
	return s.approvals.OpenApproval(ctx, entityType, entityID, approvalType)
}

func (s *Service) publishRequested(ctx context.Context, approval *models.Approval) {
	if s.publisher == nil {
		return
	}

	event := events.ApprovalRequested{
		BaseEvent:    events.NewBaseEvent(events.ApprovalRequestedEvent, jobKey(approval)),
		ApprovalID:   approval.ID,
		EntityType:   approval.EntityType,
		EntityID:     approval.EntityID,
		ApprovalType: approval.ApprovalType,
		Priority:     approval.Priority,
		Value:        approval.Value,
		RequestedBy:  approval.RequestedBy,
	}

	err := s.publisher.Publish(ctx, approval.EntityID, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish approval requested event", "error", err)
	}
}

func (s *Service) publishDecided(ctx context.Context, approval *models.Approval, decidedBy, notes string) {
	if s.publisher == nil {
		return
	}

	event := events.ApprovalDecided{
		BaseEvent:  events.NewBaseEvent(events.ApprovalDecidedEvent, jobKey(approval)),
		ApprovalID: approval.ID,
		EntityType: approval.EntityType,
		EntityID:   approval.EntityID,
		Status:     approval.Status,
		DecidedBy:  decidedBy,
		Notes:      notes,
	}

	err := s.publisher.Publish(ctx, approval.EntityID, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish approval decided event", "error", err)
	}
}

// initialStageIndex maps an approval type onto its approval workflow stage.
// Quote approvals gate the send, so they sit at the final stage; everything
// else opens at the first.
func initialStageIndex(workflow *rules.ApprovalWorkflowDefinition, approvalType models.ApprovalType) int {
	if approvalType == models.ApprovalTypeQuote {
		return len(workflow.Stages) - 1
	}

	return 0
}

func artifactFor(entityType models.ApprovalEntityType) ArtifactType {
	if entityType == models.EntityTypeJob {
		return ArtifactJob
	}

	return ArtifactQuote
}

func priorityFor(risk models.RiskLevel) models.ApprovalPriority {
	switch risk {
	case models.RiskLevelHigh, models.RiskLevelCritical:
		return models.PriorityHigh
	case models.RiskLevelMedium:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func jobKey(approval *models.Approval) string {
	if approval.EntityType == models.EntityTypeJob {
		return approval.EntityID
	}

	return ""
}

func joinNotes(existing, added string) string {
	switch {
	case existing == "":
		return added
	case added == "":
		return existing
	default:
		return existing + "; " + added
	}
}
