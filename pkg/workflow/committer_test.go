package workflow

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/sfgfab/jobflow/pkg/channels/gochannel"
	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/events"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/navigation"
	"github.com/sfgfab/jobflow/pkg/notify"
	"github.com/sfgfab/jobflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	requests []notify.Request
}

func (c *captureSink) Notify(_ context.Context, req notify.Request) error {
	c.requests = append(c.requests, req)

	return nil
}

func (c *captureSink) Close() error { return nil }

type failingSink struct{}

func (failingSink) Notify(context.Context, notify.Request) error {
	return errors.New("sink unavailable")
}

func (failingSink) Close() error { return nil }

func seedCommitterJob(t *testing.T, p *file.Persistence) *models.Job {
	t.Helper()

	now := time.Now().UTC()
	job := &models.Job{
		ID:            "job-1",
		JobNumber:     "J-1001",
		QuoteType:     models.QuoteTypeSupplyOnly,
		ContractValue: 5000,
		Status:        models.JobStatusInProduction,
		CurrentStage:  models.StageMaterialsAnalysis,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	job.MaterializeSteps(models.DefaultCatalog(), now)
	job.StepForStage(models.StageMaterialsAnalysis).Status = models.StepStatusInProgress

	require.NoError(t, p.Jobs().SaveJob(t.Context(), job))

	return job
}

func advanceRequest() *TransitionRequest {
	return &TransitionRequest{
		JobID:       "job-1",
		FromStage:   models.StageMaterialsAnalysis,
		ToStage:     models.StageOrderCreation,
		Action:      models.ActionAdvance,
		PerformedBy: "operator",
		Reason:      "materials confirmed",
	}
}

func TestCommitter_EmitsEventAndNotification(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	job := seedCommitterJob(t, p)

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() { _ = bus.Close() }()

	received := make(chan *events.TransitionCommitted, 1)
	require.NoError(t, bus.Handle(events.TransitionCommittedEvent, func(_ context.Context, event interface{}) error {
		received <- event.(*events.TransitionCommitted)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	sink := &captureSink{}
	committer := NewCommitter(p.Jobs(), models.DefaultCatalog(), bus, sink, slog.Default())

	decision := &navigation.Decision{
		IsAllowed:            true,
		Direction:            models.DirectionForward,
		RequiresConfirmation: true,
	}

	record, err := committer.Commit(t.Context(), job, decision, advanceRequest())
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "materials confirmed", record.Reason)

	select {
	case event := <-received:
		assert.Equal(t, record.ID, event.NavigationID)
		assert.Equal(t, models.JobStatusFabrication, event.NewStatus)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transition event")
	}

	require.Len(t, sink.requests, 1)
	assert.Equal(t, notify.SeverityInfo, sink.requests[0].Severity)
	assert.Contains(t, sink.requests[0].Summary, "J-1001")
}

func TestCommitter_NotificationFailureIsNonFatal(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	job := seedCommitterJob(t, p)

	committer := NewCommitter(p.Jobs(), models.DefaultCatalog(), nil, failingSink{}, slog.Default())

	decision := &navigation.Decision{
		IsAllowed:            true,
		Direction:            models.DirectionForward,
		RequiresConfirmation: true,
	}

	record, err := committer.Commit(t.Context(), job, decision, advanceRequest())
	require.NoError(t, err)

	// The commit landed despite the sink failure.
	stored, err := p.Jobs().JobByID(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageOrderCreation, stored.CurrentStage)

	records, err := p.Navigations().ListByJob(t.Context(), "job-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
}

func TestCommitter_StaleVersionFailsWholeUnit(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	job := seedCommitterJob(t, p)

	committer := NewCommitter(p.Jobs(), models.DefaultCatalog(), nil, nil, slog.Default())
	decision := &navigation.Decision{IsAllowed: true, Direction: models.DirectionForward}

	// A concurrent writer bumps the stored version.
	racing := *job
	_, err := committer.Commit(t.Context(), &racing, decision, advanceRequest())
	require.NoError(t, err)

	job.Version = 0
	_, err = committer.Commit(t.Context(), job, decision, advanceRequest())
	require.Error(t, err)

	records, err := p.Navigations().ListByJob(t.Context(), "job-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
