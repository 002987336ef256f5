package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_Order(t *testing.T) {
	catalog := DefaultCatalog()

	stages := catalog.Stages()
	require.Len(t, stages, 10)
	assert.Equal(t, StageCustomerCommunication, stages[0])
	assert.Equal(t, StageCompletionVerification, stages[9])

	for i, stage := range stages {
		ordinal, ok := catalog.IndexOf(stage)
		require.True(t, ok)
		assert.Equal(t, i, ordinal)
	}
}

func TestCatalog_UnknownStage(t *testing.T) {
	catalog := DefaultCatalog()

	assert.False(t, catalog.Exists("paint_shop"))

	_, ok := catalog.IndexOf("paint_shop")
	assert.False(t, ok)
}

func TestCatalog_EveryStageProjects(t *testing.T) {
	catalog := DefaultCatalog()

	for _, stage := range catalog.Stages() {
		status, ok := catalog.ProjectStatus(stage)
		require.True(t, ok, "stage %s has no status projection", stage)
		assert.NotEmpty(t, status)
	}
}

func TestNewCatalog_MissingProjection(t *testing.T) {
	_, err := NewCatalog(
		[]Stage{"a", "b"},
		map[Stage]JobStatus{"a": JobStatusApproved},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no status projection")
}

func TestNewCatalog_DuplicateStage(t *testing.T) {
	_, err := NewCatalog(
		[]Stage{"a", "a"},
		map[Stage]JobStatus{"a": JobStatusApproved},
	)
	require.Error(t, err)
}

func TestParseNavigationAction(t *testing.T) {
	for _, valid := range []string{"advance", "revert", "skip", "hold", "cancel"} {
		action, err := ParseNavigationAction(valid)
		require.NoError(t, err)
		assert.Equal(t, NavigationAction(valid), action)
	}

	_, err := ParseNavigationAction("teleport")
	assert.Error(t, err)
}

func TestJob_MaterializeSteps(t *testing.T) {
	catalog := DefaultCatalog()
	now := time.Now().UTC()

	job := &Job{ID: "job-1", JobNumber: "J-1001", QuoteType: QuoteTypeSupplyOnly}
	job.MaterializeSteps(catalog, now)

	require.Len(t, job.Steps, 10)

	for _, step := range job.Steps {
		assert.Equal(t, StepStatusPending, step.Status)
		assert.Equal(t, "job-1", step.JobID)
	}

	// Idempotent: a second call must not duplicate steps.
	job.MaterializeSteps(catalog, now)
	assert.Len(t, job.Steps, 10)
}

func TestJob_StepForStage(t *testing.T) {
	job := &Job{ID: "job-1"}
	job.MaterializeSteps(DefaultCatalog(), time.Now().UTC())

	step := job.StepForStage(StageQualityCheck)
	require.NotNil(t, step)
	assert.Equal(t, StageQualityCheck, step.Stage)

	assert.Nil(t, job.StepForStage("paint_shop"))
}

func TestApproval_Open(t *testing.T) {
	assert.True(t, (&Approval{Status: ApprovalStatusPending}).Open())
	assert.True(t, (&Approval{Status: ApprovalStatusRequiresSecondApproval}).Open())
	assert.False(t, (&Approval{Status: ApprovalStatusApproved}).Open())
	assert.False(t, (&Approval{Status: ApprovalStatusRejected}).Open())
}

func TestNavigationRecord_Validation(t *testing.T) {
	validate := validator.New()

	record := &NavigationRecord{
		ID:          "nav-1",
		JobID:       "job-1",
		FromStage:   StageProduction,
		ToStage:     StageDeliveryCoordination,
		Direction:   DirectionForward,
		Action:      ActionAdvance,
		IsAllowed:   true,
		PerformedBy: "warren",
		PerformedAt: time.Now().UTC(),
	}
	assert.NoError(t, validate.Struct(record))

	record.PerformedBy = ""
	assert.Error(t, validate.Struct(record))
}

func TestQuoteTypeRule_Validation(t *testing.T) {
	validate := validator.New()

	rule := &QuoteTypeRule{
		QuoteType:        QuoteTypeSupplyOnly,
		BaseMarkupPct:    5,
		MinimumMarkupPct: 3,
		RiskLevel:        RiskLevelLow,
	}
	assert.NoError(t, validate.Struct(rule))

	rule.RiskLevel = "extreme"
	assert.Error(t, validate.Struct(rule))
}
