package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sfgfab/jobflow/pkg/approval"
	"github.com/sfgfab/jobflow/pkg/directory"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/navigation"
	"github.com/sfgfab/jobflow/pkg/otelhelper"
	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/sfgfab/jobflow/pkg/rules"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Reason codes the orchestrator adds on top of the validator's.
const (
	CodeApprovalRequired = "approval_required"
)

// ResultStatus is the terminal state of one transition attempt.
type ResultStatus string

const (
	// StatusDenied: validation or approval gating rejected the request.
	StatusDenied ResultStatus = "denied"
	// StatusPreviewRequired: the transition is allowed but needs explicit
	// confirmation; nothing was written.
	StatusPreviewRequired ResultStatus = "preview_required"
	// StatusCommitted: the transition was applied atomically.
	StatusCommitted ResultStatus = "committed"
)

// TransitionRequest is one transition attempt against a job.
type TransitionRequest struct {
	JobID       string                  `json:"job_id"       validate:"required"`
	FromStage   models.Stage            `json:"from_stage"   validate:"required"`
	ToStage     models.Stage            `json:"to_stage"     validate:"required"`
	Action      models.NavigationAction `json:"action"       validate:"required"`
	PerformedBy string                  `json:"performed_by" validate:"required"`
	Reason      string                  `json:"reason,omitempty"`
	Notes       string                  `json:"notes,omitempty"`
	DataChanges map[string]any          `json:"data_changes,omitempty"`

	// Confirm resubmits a previewed request for commit.
	Confirm bool `json:"confirm"`
	// SecondApproval names the approver supplying the second signature when
	// the approval gate demands one.
	SecondApproval string `json:"second_approval,omitempty"`
	// InstallationValidated marks that installation pricing validation has
	// been performed for quote types that require it.
	InstallationValidated bool `json:"installation_validated"`
}

// TransitionResult is the outcome of a transition attempt. Denials are
// structured decisions, not errors; callers branch on Status and Code.
type TransitionResult struct {
	Status   ResultStatus             `json:"status"`
	Code     string                   `json:"code,omitempty"`
	Reason   string                   `json:"reason,omitempty"`
	Decision *navigation.Decision     `json:"decision,omitempty"`
	Record   *models.NavigationRecord `json:"record,omitempty"`
}

// Orchestrator is the single entry point for transition attempts. It
// composes the validator, the approval gate, and the committer into the
// preview/confirm protocol, serializing commits per job.
type Orchestrator struct {
	jobs        persistence.JobRepository
	navigations persistence.NavigationRepository
	validator   *navigation.Validator
	gate        *approval.Gate
	workflows   *rules.WorkflowSet
	directory   directory.Directory
	committer   *Committer
	locks       *jobLocks
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewOrchestrator wires the transition protocol. A nil tracer disables
// span creation.
func NewOrchestrator(
	p persistence.Persistence,
	validator *navigation.Validator,
	gate *approval.Gate,
	workflows *rules.WorkflowSet,
	dir directory.Directory,
	committer *Committer,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Orchestrator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("jobflow")
	}

	return &Orchestrator{
		jobs:        p.Jobs(),
		navigations: p.Navigations(),
		validator:   validator,
		gate:        gate,
		workflows:   workflows,
		directory:   dir,
		committer:   committer,
		locks:       newJobLocks(),
		tracer:      tracer,
		logger:      logger.With("module", "workflow_orchestrator"),
	}
}

// RequestTransition runs one attempt through the protocol:
// Requested -> Denied, Requested -> PreviewRequired, or Requested ->
// Committed. Previews write nothing and take no lock. Confirmed requests
// re-validate under the job's lock before committing; a stale preview is
// never trusted.
func (o *Orchestrator) RequestTransition(ctx context.Context, req *TransitionRequest) (*TransitionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "workflow.request_transition",
		attribute.String(otelhelper.JobIDKey, req.JobID),
		attribute.String(otelhelper.FromStageKey, string(req.FromStage)),
		attribute.String(otelhelper.ToStageKey, string(req.ToStage)),
		attribute.String(otelhelper.ActionKey, string(req.Action)),
	)
	defer span.End()

	job, err := o.jobs.JobByID(ctx, req.JobID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	decision := o.validator.Validate(job, req.FromStage, req.ToStage, req.Action)
	if !decision.IsAllowed {
		o.logger.InfoContext(ctx, "Transition denied",
			"job_id", req.JobID, "code", decision.Code, "reason", decision.Reason)

		return denied(decision, decision.Code, decision.Reason), nil
	}

	if decision.RequiresConfirmation && !req.Confirm {
		return &TransitionResult{
			Status:   StatusPreviewRequired,
			Decision: decision,
		}, nil
	}

	unlock := o.locks.acquire(req.JobID)
	defer unlock()

	// State may have changed between preview and confirmation; reload and
	// re-validate rather than trusting the stale preview.
	job, err = o.jobs.JobByID(ctx, req.JobID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	decision = o.validator.Validate(job, req.FromStage, req.ToStage, req.Action)
	if !decision.IsAllowed {
		return denied(decision, decision.Code, decision.Reason), nil
	}

	if decision.RequiresApproval {
		blocked, err := o.enforceApproval(ctx, job, decision, req)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		if blocked != nil {
			o.logger.InfoContext(ctx, "Transition blocked by approval gate",
				"job_id", req.JobID, "code", blocked.Code)

			return blocked, nil
		}
	}

	record, err := o.committer.Commit(ctx, job, decision, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.NavigationIDKey, record.ID))
	o.logger.InfoContext(ctx, "Transition committed",
		"job_id", req.JobID,
		"navigation_id", record.ID,
		"from", record.FromStage,
		"to", record.ToStage,
		"action", record.Action,
	)

	return &TransitionResult{
		Status:   StatusCommitted,
		Decision: decision,
		Record:   record,
	}, nil
}

// NavigationHistory returns a job's navigation records, most recent first.
// Pure read.
func (o *Orchestrator) NavigationHistory(ctx context.Context, jobID string, limit int) ([]*models.NavigationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	return o.navigations.ListByJob(ctx, jobID, limit)
}

// enforceApproval runs the approval gate for a transition that requires it.
// Returns a denial result when the gate blocks the commit, nil when the
// commit may proceed.
func (o *Orchestrator) enforceApproval(ctx context.Context, job *models.Job, decision *navigation.Decision, req *TransitionRequest) (*TransitionResult, error) {
	candidate, err := o.directory.ApproverByID(ctx, req.PerformedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve performer %s: %w", req.PerformedBy, err)
	}

	workflow := o.workflows.SelectForValue(job.ContractValue)

	gateDecision, err := o.gate.Evaluate(approval.Request{
		QuoteType:             job.QuoteType,
		Value:                 job.ContractValue,
		Artifact:              approval.ArtifactJob,
		Candidate:             candidate,
		Workflow:              workflow,
		InstallationValidated: req.InstallationValidated,
	})
	if err != nil {
		return nil, err
	}

	switch gateDecision.Outcome {
	case approval.OutcomeSelfApproved, approval.OutcomeSelfApprovedByOverride:
		return nil, nil
	case approval.OutcomeBlocked:
		return denied(decision, gateDecision.Code, gateDecision.Reason), nil
	default:
	}

	if req.SecondApproval == "" {
		return denied(decision, CodeApprovalRequired, "a qualifying second approver must sign off"), nil
	}

	second, err := o.directory.ApproverByID(ctx, req.SecondApproval)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve second approver %s: %w", req.SecondApproval, err)
	}

	if !gateDecision.SecondApprover.SatisfiedBy(second) {
		return denied(decision, CodeApprovalRequired, "second approver does not qualify"), nil
	}

	return nil, nil
}

func denied(decision *navigation.Decision, code, reason string) *TransitionResult {
	return &TransitionResult{
		Status:   StatusDenied,
		Code:     code,
		Reason:   reason,
		Decision: decision,
	}
}
