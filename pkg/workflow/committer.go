// Package workflow composes validation, approval gating, and atomic
// persistence into the two-phase transition protocol for jobs.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/events"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/navigation"
	"github.com/sfgfab/jobflow/pkg/notify"
	"github.com/sfgfab/jobflow/pkg/persistence"
)

// Committer is the only component that mutates a job's workflow state. It
// applies a validated, confirmed transition as one atomic persistence unit,
// then emits the audit event and notification request post-commit.
type Committer struct {
	jobs      persistence.JobRepository
	catalog   *models.Catalog
	publisher eventbus.EventPublisher
	sink      notify.Sink
	logger    *slog.Logger
}

// NewCommitter creates a transition committer. Publisher and sink may each
// be nil; the corresponding post-commit emission is then skipped.
func NewCommitter(
	jobs persistence.JobRepository,
	catalog *models.Catalog,
	publisher eventbus.EventPublisher,
	sink notify.Sink,
	logger *slog.Logger,
) *Committer {
	return &Committer{
		jobs:      jobs,
		catalog:   catalog,
		publisher: publisher,
		sink:      sink,
		logger:    logger.With("module", "transition_committer"),
	}
}

// Commit applies the transition to the job's steps and status, appends the
// navigation record, and persists everything atomically. Only the source and
// target steps are mutated; affected stages are flagged in the record, never
// touched. Post-commit emission failures are warnings, not errors.
func (c *Committer) Commit(ctx context.Context, job *models.Job, decision *navigation.Decision, req *TransitionRequest) (*models.NavigationRecord, error) {
	now := time.Now().UTC()
	job.MaterializeSteps(c.catalog, now)

	source := job.StepForStage(req.FromStage)
	target := job.StepForStage(req.ToStage)

	switch {
	case req.Action == models.ActionRevert:
		source.Status = models.StepStatusPending
		source.CompletedAt = nil
	case source == target:
		// Lateral hold/cancel acts in place; the step is not closed.
		source.Notes = annotate(source.Notes, fmt.Sprintf("%s by %s", req.Action, req.PerformedBy))
	default:
		source.Status = models.StepStatusCompleted
		source.CompletedAt = &now
		source.Notes = annotate(source.Notes, fmt.Sprintf("%s by %s", req.Action, req.PerformedBy))
	}

	source.UpdatedAt = now

	target.Status = models.StepStatusInProgress
	target.StartedAt = &now
	target.AssignedTo = req.PerformedBy
	target.UpdatedAt = now

	job.CurrentStage = req.ToStage
	job.Status = c.projectStatus(req.ToStage, req.Action)

	record := &models.NavigationRecord{
		ID:                   uuid.New().String(),
		JobID:                job.ID,
		FromStage:            req.FromStage,
		ToStage:              req.ToStage,
		Direction:            decision.Direction,
		Action:               req.Action,
		IsAllowed:            true,
		RequiresApproval:     decision.RequiresApproval,
		RequiresConfirmation: decision.RequiresConfirmation,
		RollbackRequired:     decision.Impact != nil,
		AffectedStages:       decision.AffectedStages,
		Impact:               decision.Impact,
		PerformedBy:          req.PerformedBy,
		Reason:               req.Reason,
		Notes:                req.Notes,
		DataChanges:          req.DataChanges,
		PerformedAt:          now,
	}

	err := c.jobs.CommitTransition(ctx, job, record)
	if err != nil {
		return nil, err
	}

	c.emitPostCommit(ctx, job, record)

	return record, nil
}

// projectStatus maps the target stage onto the coarse job status. Hold and
// Cancel act in place and override the stage projection.
func (c *Committer) projectStatus(to models.Stage, action models.NavigationAction) models.JobStatus {
	switch action {
	case models.ActionHold:
		return models.JobStatusOnHold
	case models.ActionCancel:
		return models.JobStatusCancelled
	default:
		status, ok := c.catalog.ProjectStatus(to)
		if !ok {
			// Unreachable once validation has passed; the catalog
			// constructor rejects incomplete projections.
			return models.JobStatusApproved
		}

		return status
	}
}

func (c *Committer) emitPostCommit(ctx context.Context, job *models.Job, record *models.NavigationRecord) {
	if c.publisher != nil {
		event := events.TransitionCommitted{
			BaseEvent:    events.NewBaseEvent(events.TransitionCommittedEvent, job.ID),
			NavigationID: record.ID,
			FromStage:    record.FromStage,
			ToStage:      record.ToStage,
			Direction:    record.Direction,
			Action:       record.Action,
			NewStatus:    job.Status,
			PerformedBy:  record.PerformedBy,
			RolledBack:   record.AffectedStages,
		}

		err := c.publisher.Publish(ctx, job.ID, event)
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to publish transition event",
				"job_id", job.ID, "navigation_id", record.ID, "error", err)
		}
	}

	if c.sink != nil {
		err := c.sink.Notify(ctx, notify.Request{
			JobID:    job.ID,
			Severity: notify.SeverityInfo,
			Summary:  fmt.Sprintf("job %s moved from %s to %s", job.JobNumber, record.FromStage, record.ToStage),
			Detail:   fmt.Sprintf("%s by %s", record.Action, record.PerformedBy),
		})
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to deliver transition notification",
				"job_id", job.ID, "navigation_id", record.ID, "error", err)
		}
	}
}

func annotate(notes, annotation string) string {
	if notes == "" {
		return annotation
	}

	return notes + "; " + annotation
}
