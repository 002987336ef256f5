package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/events"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/notify"
	"github.com/sfgfab/jobflow/pkg/persistence"
)

const defaultSweepSchedule = "*/15 * * * *"

// Escalator periodically sweeps open approvals and raises reminders for
// requests that have sat undecided past the escalation window.
type Escalator struct {
	approvals persistence.ApprovalRepository
	sink      notify.Sink
	publisher eventbus.EventPublisher
	window    time.Duration
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewEscalator creates an escalation sweep. The sink and publisher may each
// be nil; the corresponding output is then skipped.
func NewEscalator(
	approvals persistence.ApprovalRepository,
	sink notify.Sink,
	publisher eventbus.EventPublisher,
	window time.Duration,
	logger *slog.Logger,
) *Escalator {
	return &Escalator{
		approvals: approvals,
		sink:      sink,
		publisher: publisher,
		window:    window,
		logger:    logger.With("module", "approval_escalator"),
	}
}

// Start schedules the sweep. An empty schedule falls back to every fifteen
// minutes.
func (e *Escalator) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = defaultSweepSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid escalation schedule %q: %w", schedule, err)
	}

	e.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := e.cron.AddFunc(schedule, func() {
		err := e.Sweep(ctx)
		if err != nil {
			e.logger.ErrorContext(ctx, "Escalation sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule escalation sweep: %w", err)
	}

	e.cron.Start()
	e.logger.InfoContext(ctx, "Escalation sweep started", "schedule", schedule, "window", e.window)

	return nil
}

// Stop halts the sweep and waits for a running sweep to finish.
func (e *Escalator) Stop() {
	if e.cron != nil {
		<-e.cron.Stop().Done()
	}
}

// Sweep escalates every open approval older than the escalation window.
func (e *Escalator) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-e.window)

	overdue, err := e.approvals.ListOpenBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list overdue approvals: %w", err)
	}

	for _, approval := range overdue {
		e.escalate(ctx, approval)
	}

	if len(overdue) > 0 {
		e.logger.InfoContext(ctx, "Escalated overdue approvals", "count", len(overdue))
	}

	return nil
}

func (e *Escalator) escalate(ctx context.Context, approval *models.Approval) {
	openFor := time.Since(approval.RequestedAt)

	if e.publisher != nil {
		event := events.ApprovalEscalated{
			BaseEvent:   events.NewBaseEvent(events.ApprovalEscalatedEvent, jobKey(approval)),
			ApprovalID:  approval.ID,
			EntityType:  approval.EntityType,
			EntityID:    approval.EntityID,
			Priority:    approval.Priority,
			RequestedBy: approval.RequestedBy,
			RequestedAt: approval.RequestedAt,
			OpenFor:     openFor,
		}

		err := e.publisher.Publish(ctx, approval.EntityID, event)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to publish escalation event",
				"approval_id", approval.ID, "error", err)
		}
	}

	if e.sink != nil {
		req := notify.Request{
			JobID:    jobKey(approval),
			Severity: notify.SeverityWarning,
			Summary:  fmt.Sprintf("approval %s for %s %s pending for %s", approval.ApprovalType, approval.EntityType, approval.EntityID, openFor.Round(time.Minute)),
			Detail:   fmt.Sprintf("requested by %s at %s", approval.RequestedBy, approval.RequestedAt.Format(time.RFC3339)),
		}

		err := e.sink.Notify(ctx, req)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to deliver escalation notification",
				"approval_id", approval.ID, "error", err)
		}
	}
}
