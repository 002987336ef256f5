package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/persistence"
)

// JobRepository handles job and workflow-step database operations.
type JobRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sql.DB, logger *slog.Logger) *JobRepository {
	return &JobRepository{db: db, logger: logger}
}

// JobByID returns a job with its workflow steps.
func (r *JobRepository) JobByID(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT
			id
		  , job_number
		  , customer_name
		  , quote_type
		  , contract_value
		  , status
		  , current_stage
		  , version
		  , created_at
		  , updated_at
		FROM jobs
		WHERE id = $1
	`

	job := &models.Job{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.JobNumber,
		&job.CustomerName,
		&job.QuoteType,
		&job.ContractValue,
		&job.Status,
		&job.CurrentStage,
		&job.Version,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewJobError("JobByID", id, persistence.ErrJobNotFound)
		}

		return nil, persistence.NewJobError("JobByID", id, fmt.Errorf("failed to scan job: %w", err))
	}

	err = r.loadSteps(ctx, job)
	if err != nil {
		return nil, persistence.NewJobError("JobByID", id, err)
	}

	return job, nil
}

// SaveJob upserts a job and its workflow steps.
func (r *JobRepository) SaveJob(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}

	job.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewJobError("SaveJob", job.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = r.upsertJob(ctx, tx, job)
	if err != nil {
		return persistence.NewJobError("SaveJob", job.ID, err)
	}

	err = r.upsertSteps(ctx, tx, job)
	if err != nil {
		return persistence.NewJobError("SaveJob", job.ID, err)
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewJobError("SaveJob", job.ID, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// CommitTransition persists the mutated job, its steps, and the navigation
// record in one transaction. The version stamp guards against a commit that
// raced another writer.
func (r *JobRepository) CommitTransition(ctx context.Context, job *models.Job, record *models.NavigationRecord) error {
	now := time.Now().UTC()
	job.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewJobError("CommitTransition", job.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updateQuery := `
		UPDATE jobs SET
			status = $1,
			current_stage = $2,
			version = version + 1,
			updated_at = $3
		WHERE id = $4 AND version = $5
	`

	result, err := tx.ExecContext(ctx, updateQuery,
		job.Status,
		job.CurrentStage,
		job.UpdatedAt,
		job.ID,
		job.Version,
	)
	if err != nil {
		return persistence.NewJobError("CommitTransition", job.ID, fmt.Errorf("failed to update job: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewJobError("CommitTransition", job.ID, fmt.Errorf("failed to read affected rows: %w", err))
	}

	if affected == 0 {
		err = r.classifyMissedUpdate(ctx, tx, job.ID)

		return persistence.NewJobError("CommitTransition", job.ID, err)
	}

	err = r.upsertSteps(ctx, tx, job)
	if err != nil {
		return persistence.NewJobError("CommitTransition", job.ID, err)
	}

	err = r.insertNavigationRecord(ctx, tx, record)
	if err != nil {
		return persistence.NewJobError("CommitTransition", job.ID, err)
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewJobError("CommitTransition", job.ID, fmt.Errorf("failed to commit transaction: %w", err))
	}

	job.Version++

	return nil
}

// classifyMissedUpdate reports whether a zero-row update meant a stale
// version or a missing job.
func (r *JobRepository) classifyMissedUpdate(ctx context.Context, tx *sql.Tx, jobID string) error {
	var exists bool

	err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)", jobID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check job existence: %w", err)
	}

	if !exists {
		return persistence.ErrJobNotFound
	}

	return persistence.ErrConcurrentModification
}

func (r *JobRepository) upsertJob(ctx context.Context, tx *sql.Tx, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, job_number, customer_name, quote_type,
contract_value, status, current_stage, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			job_number = EXCLUDED.job_number,
			customer_name = EXCLUDED.customer_name,
			quote_type = EXCLUDED.quote_type,
			contract_value = EXCLUDED.contract_value,
			status = EXCLUDED.status,
			current_stage = EXCLUDED.current_stage,
			updated_at = EXCLUDED.updated_at
	`

	_, err := tx.ExecContext(ctx, query,
		job.ID,
		job.JobNumber,
		job.CustomerName,
		job.QuoteType,
		job.ContractValue,
		job.Status,
		job.CurrentStage,
		job.Version,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save job base: %w", err)
	}

	return nil
}

func (r *JobRepository) upsertSteps(ctx context.Context, tx *sql.Tx, job *models.Job) error {
	query := `
		INSERT INTO job_workflow_steps (id, job_id, stage, status,
started_at, completed_at, assigned_to, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (job_id, stage) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			assigned_to = EXCLUDED.assigned_to,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`

	for _, step := range job.Steps {
		_, err := tx.ExecContext(ctx, query,
			step.ID,
			step.JobID,
			step.Stage,
			step.Status,
			step.StartedAt,
			step.CompletedAt,
			step.AssignedTo,
			step.Notes,
			step.CreatedAt,
			step.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save step %s: %w", step.ID, err)
		}
	}

	return nil
}

func (r *JobRepository) insertNavigationRecord(ctx context.Context, tx *sql.Tx, record *models.NavigationRecord) error {
	affectedJSON, err := json.Marshal(record.AffectedStages)
	if err != nil {
		return fmt.Errorf("failed to marshal affected stages: %w", err)
	}

	var impactJSON []byte

	if record.Impact != nil {
		impactJSON, err = json.Marshal(record.Impact)
		if err != nil {
			return fmt.Errorf("failed to marshal impact: %w", err)
		}
	}

	changesJSON, err := json.Marshal(record.DataChanges)
	if err != nil {
		return fmt.Errorf("failed to marshal data changes: %w", err)
	}

	query := `
		INSERT INTO navigation_records (id, job_id, from_stage, to_stage,
direction, action, is_allowed, requires_approval, requires_confirmation,
rollback_required, affected_stages, impact, performed_by, reason, notes,
data_changes, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = tx.ExecContext(ctx, query,
		record.ID,
		record.JobID,
		record.FromStage,
		record.ToStage,
		record.Direction,
		record.Action,
		record.IsAllowed,
		record.RequiresApproval,
		record.RequiresConfirmation,
		record.RollbackRequired,
		affectedJSON,
		impactJSON,
		record.PerformedBy,
		record.Reason,
		record.Notes,
		changesJSON,
		record.PerformedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert navigation record: %w", err)
	}

	return nil
}

func (r *JobRepository) loadSteps(ctx context.Context, job *models.Job) error {
	query := `
		SELECT
			id
		  , job_id
		  , stage
		  , status
		  , started_at
		  , completed_at
		  , assigned_to
		  , notes
		  , created_at
		  , updated_at
		FROM job_workflow_steps
		WHERE job_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, job.ID)
	if err != nil {
		return fmt.Errorf("failed to query steps: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	job.Steps = make([]*models.JobWorkflowStep, 0)

	for rows.Next() {
		step := &models.JobWorkflowStep{}

		var assignedTo, notes sql.NullString

		err := rows.Scan(
			&step.ID,
			&step.JobID,
			&step.Stage,
			&step.Status,
			&step.StartedAt,
			&step.CompletedAt,
			&assignedTo,
			&notes,
			&step.CreatedAt,
			&step.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan step: %w", err)
		}

		step.AssignedTo = assignedTo.String
		step.Notes = notes.String

		job.Steps = append(job.Steps, step)
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("error iterating steps: %w", err)
	}

	return nil
}
