package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sfgfab/jobflow/pkg/models"
)

// NavigationRepository reads the navigation audit trail. Records are written
// only through JobRepository.CommitTransition.
type NavigationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNavigationRepository creates a new navigation record repository.
func NewNavigationRepository(db *sql.DB, logger *slog.Logger) *NavigationRepository {
	return &NavigationRepository{db: db, logger: logger}
}

// ListByJob returns a job's navigation records, most recent first.
func (r *NavigationRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]*models.NavigationRecord, error) {
	query := `
		SELECT
			id
		  , job_id
		  , from_stage
		  , to_stage
		  , direction
		  , action
		  , is_allowed
		  , requires_approval
		  , requires_confirmation
		  , rollback_required
		  , affected_stages
		  , impact
		  , performed_by
		  , reason
		  , notes
		  , data_changes
		  , performed_at
		FROM navigation_records
		WHERE job_id = $1
		ORDER BY performed_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query navigation records: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.NavigationRecord, 0)

	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan navigation record: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating navigation records: %w", err)
	}

	return records, nil
}

func (r *NavigationRepository) scanRecord(rows *sql.Rows) (*models.NavigationRecord, error) {
	record := &models.NavigationRecord{}

	var (
		affectedJSON, impactJSON, changesJSON []byte
		reason, notes                         sql.NullString
	)

	err := rows.Scan(
		&record.ID,
		&record.JobID,
		&record.FromStage,
		&record.ToStage,
		&record.Direction,
		&record.Action,
		&record.IsAllowed,
		&record.RequiresApproval,
		&record.RequiresConfirmation,
		&record.RollbackRequired,
		&affectedJSON,
		&impactJSON,
		&record.PerformedBy,
		&reason,
		&notes,
		&changesJSON,
		&record.PerformedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Reason = reason.String
	record.Notes = notes.String

	if len(affectedJSON) > 0 {
		err = json.Unmarshal(affectedJSON, &record.AffectedStages)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal affected stages: %w", err)
		}
	}

	if len(impactJSON) > 0 {
		record.Impact = &models.ImpactAssessment{}

		err = json.Unmarshal(impactJSON, record.Impact)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal impact: %w", err)
		}
	}

	if len(changesJSON) > 0 {
		err = json.Unmarshal(changesJSON, &record.DataChanges)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal data changes: %w", err)
		}
	}

	return record, nil
}
