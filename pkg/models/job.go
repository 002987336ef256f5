package models

import "time"

// StepStatus represents the lifecycle state of one job workflow step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"     // Not started or reopened by a revert
	StepStatusInProgress StepStatus = "in_progress" // Currently being worked
	StepStatusCompleted  StepStatus = "completed"   // Closed by a forward transition
)

// JobWorkflowStep is the per (job, stage) work record. Steps are mutated only
// by the transition committer and are never deleted, so the set of steps stays
// a complete audit of what happened to the job.
type JobWorkflowStep struct {
	ID          string     `json:"id"`
	JobID       string     `json:"job_id"     validate:"required"`
	Stage       Stage      `json:"stage"      validate:"required"`
	Status      StepStatus `json:"status"     validate:"required"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Job is a unit of fabrication work moving through the pipeline.
type Job struct {
	ID            string             `json:"id"`
	JobNumber     string             `json:"job_number"     validate:"required"`
	CustomerName  string             `json:"customer_name"`
	QuoteType     QuoteType          `json:"quote_type"     validate:"required"`
	ContractValue float64            `json:"contract_value" validate:"min=0"`
	Status        JobStatus          `json:"status"`
	CurrentStage  Stage              `json:"current_stage"`
	Steps         []*JobWorkflowStep `json:"steps"`
	// Version is the optimistic concurrency stamp; the persistence layer
	// rejects a commit whose loaded version is stale.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StepForStage returns the step record for a stage, or nil when the job has
// never materialized it.
func (j *Job) StepForStage(stage Stage) *JobWorkflowStep {
	for _, step := range j.Steps {
		if step.Stage == stage {
			return step
		}
	}

	return nil
}

// MaterializeSteps creates pending step records for every catalog stage the
// job does not have yet. Transitions require both endpoint steps to exist.
func (j *Job) MaterializeSteps(catalog *Catalog, now time.Time) {
	for _, stage := range catalog.Stages() {
		if j.StepForStage(stage) != nil {
			continue
		}

		j.Steps = append(j.Steps, &JobWorkflowStep{
			ID:        string(stage) + ":" + j.ID,
			JobID:     j.ID,
			Stage:     stage,
			Status:    StepStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
}
