package file

import (
	"testing"
	"time"

	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(t *testing.T, id string) *models.Job {
	t.Helper()

	job := &models.Job{
		ID:            id,
		JobNumber:     "J-" + id,
		QuoteType:     models.QuoteTypeSupplyOnly,
		ContractValue: 10000,
		Status:        models.JobStatusApproved,
		CurrentStage:  models.StageCustomerCommunication,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	job.MaterializeSteps(models.DefaultCatalog(), time.Now().UTC())

	return job
}

func testRecord(jobID string) *models.NavigationRecord {
	return &models.NavigationRecord{
		ID:          "nav-" + jobID,
		JobID:       jobID,
		FromStage:   models.StageCustomerCommunication,
		ToStage:     models.StageDrawingApproval,
		Direction:   models.DirectionForward,
		Action:      models.ActionAdvance,
		IsAllowed:   true,
		PerformedBy: "warren",
		PerformedAt: time.Now().UTC(),
	}
}

func TestJobRepository_SaveAndLoad(t *testing.T) {
	p := NewPersistence(t.TempDir())

	job := testJob(t, "job-1")
	require.NoError(t, p.Jobs().SaveJob(t.Context(), job))

	loaded, err := p.Jobs().JobByID(t.Context(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, job.JobNumber, loaded.JobNumber)
	assert.Len(t, loaded.Steps, 10)
}

func TestJobRepository_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.Jobs().JobByID(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsJobNotFound(err))
}

func TestJobRepository_CommitTransition(t *testing.T) {
	p := NewPersistence(t.TempDir())

	job := testJob(t, "job-1")
	require.NoError(t, p.Jobs().SaveJob(t.Context(), job))

	job.Status = models.JobStatusInProduction
	job.CurrentStage = models.StageDrawingApproval
	require.NoError(t, p.Jobs().CommitTransition(t.Context(), job, testRecord("job-1")))

	loaded, err := p.Jobs().JobByID(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProduction, loaded.Status)
	assert.Equal(t, int64(1), loaded.Version)

	records, err := p.Navigations().ListByJob(t.Context(), "job-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionAdvance, records[0].Action)
}

func TestJobRepository_CommitTransition_StaleVersion(t *testing.T) {
	p := NewPersistence(t.TempDir())

	job := testJob(t, "job-1")
	require.NoError(t, p.Jobs().SaveJob(t.Context(), job))

	first := *job
	require.NoError(t, p.Jobs().CommitTransition(t.Context(), &first, testRecord("job-1")))

	// Second commit still carries version 0.
	stale := *job
	stale.Version = 0
	err := p.Jobs().CommitTransition(t.Context(), &stale, testRecord("job-1"))
	require.Error(t, err)
	assert.True(t, persistence.IsConcurrentModification(err))

	// The stale commit wrote nothing.
	records, err := p.Navigations().ListByJob(t.Context(), "job-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNavigationRepository_MostRecentFirst(t *testing.T) {
	p := NewPersistence(t.TempDir())

	job := testJob(t, "job-1")
	require.NoError(t, p.Jobs().SaveJob(t.Context(), job))

	for i, to := range []models.Stage{
		models.StageDrawingApproval,
		models.StageMaterialsAnalysis,
		models.StageOrderCreation,
	} {
		record := testRecord("job-1")
		record.ID = record.ID + "-" + string(rune('a'+i))
		record.ToStage = to
		require.NoError(t, p.Jobs().CommitTransition(t.Context(), job, record))
	}

	records, err := p.Navigations().ListByJob(t.Context(), "job-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.StageOrderCreation, records[0].ToStage)
	assert.Equal(t, models.StageDrawingApproval, records[2].ToStage)

	limited, err := p.Navigations().ListByJob(t.Context(), "job-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestNavigationRepository_EmptyTrail(t *testing.T) {
	p := NewPersistence(t.TempDir())

	records, err := p.Navigations().ListByJob(t.Context(), "no-such-job", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestApprovalRepository_Lifecycle(t *testing.T) {
	p := NewPersistence(t.TempDir())

	approval := &models.Approval{
		ID:           "apr-1",
		EntityType:   models.EntityTypeQuote,
		EntityID:     "quote-1",
		ApprovalType: models.ApprovalTypeQuote,
		Status:       models.ApprovalStatusPending,
		RequestedBy:  "warren",
		RequestedAt:  time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, p.Approvals().SaveApproval(t.Context(), approval))

	open, err := p.Approvals().OpenApproval(t.Context(), models.EntityTypeQuote, "quote-1", models.ApprovalTypeQuote)
	require.NoError(t, err)
	assert.Equal(t, "apr-1", open.ID)

	// Closing the approval removes it from the open lookup.
	approval.Status = models.ApprovalStatusApproved
	require.NoError(t, p.Approvals().SaveApproval(t.Context(), approval))

	_, err = p.Approvals().OpenApproval(t.Context(), models.EntityTypeQuote, "quote-1", models.ApprovalTypeQuote)
	assert.True(t, persistence.IsApprovalNotFound(err))
}

func TestApprovalRepository_ListApprovals_Filtering(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	for i, approval := range []*models.Approval{
		{ID: "apr-1", EntityType: models.EntityTypeQuote, EntityID: "q1", ApprovalType: models.ApprovalTypeQuote, Status: models.ApprovalStatusPending, RequestedBy: "a"},
		{ID: "apr-2", EntityType: models.EntityTypeQuote, EntityID: "q1", ApprovalType: models.ApprovalTypeDrawing, Status: models.ApprovalStatusApproved, RequestedBy: "a"},
		{ID: "apr-3", EntityType: models.EntityTypeJob, EntityID: "j1", ApprovalType: models.ApprovalTypeQuote, Status: models.ApprovalStatusPending, RequestedBy: "a"},
	} {
		approval.RequestedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, p.Approvals().SaveApproval(t.Context(), approval))
	}

	quotes, err := p.Approvals().ListApprovals(t.Context(), persistence.ApprovalFilter{
		EntityType: models.EntityTypeQuote,
		EntityID:   "q1",
	})
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	// Most recent first.
	assert.Equal(t, "apr-2", quotes[0].ID)

	pending, err := p.Approvals().ListApprovals(t.Context(), persistence.ApprovalFilter{
		Status: models.ApprovalStatusPending,
	})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestApprovalRepository_ListOpenBefore(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	stale := &models.Approval{
		ID: "apr-old", EntityType: models.EntityTypeQuote, EntityID: "q1",
		ApprovalType: models.ApprovalTypeQuote, Status: models.ApprovalStatusPending,
		RequestedBy: "a", RequestedAt: now.Add(-48 * time.Hour),
	}
	fresh := &models.Approval{
		ID: "apr-new", EntityType: models.EntityTypeQuote, EntityID: "q2",
		ApprovalType: models.ApprovalTypeQuote, Status: models.ApprovalStatusPending,
		RequestedBy: "a", RequestedAt: now,
	}
	closed := &models.Approval{
		ID: "apr-done", EntityType: models.EntityTypeQuote, EntityID: "q3",
		ApprovalType: models.ApprovalTypeQuote, Status: models.ApprovalStatusApproved,
		RequestedBy: "a", RequestedAt: now.Add(-72 * time.Hour),
	}

	for _, approval := range []*models.Approval{stale, fresh, closed} {
		require.NoError(t, p.Approvals().SaveApproval(t.Context(), approval))
	}

	overdue, err := p.Approvals().ListOpenBefore(t.Context(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "apr-old", overdue[0].ID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence(t.TempDir())
	assert.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence("/nonexistent/jobflow-data")
	assert.Error(t, missing.HealthCheck(t.Context()))
}
