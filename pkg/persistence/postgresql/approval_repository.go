package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/persistence"
)

const approvalColumns = `
			id
		  , entity_type
		  , entity_id
		  , approval_type
		  , stage
		  , status
		  , priority
		  , quote_type
		  , value
		  , mandatory_approval
		  , requires_second_approval
		  , can_self_approve
		  , requested_by
		  , request_notes
		  , requested_at
		  , approved_by
		  , approved_at
		  , approval_notes
		  , second_approved_by
		  , second_approved_at
		  , rejected_by
		  , rejected_at
		  , rejection_reason
`

// ApprovalRepository handles approval-request database operations.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

// ApprovalByID returns an approval by its ID.
func (r *ApprovalRepository) ApprovalByID(ctx context.Context, id string) (*models.Approval, error) {
	query := "SELECT " + approvalColumns + " FROM approvals WHERE id = $1"

	row := r.db.QueryRowContext(ctx, query, id)

	approval, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.ApprovalError{Op: "ApprovalByID", ApprovalID: id, Err: persistence.ErrApprovalNotFound}
		}

		return nil, &persistence.ApprovalError{Op: "ApprovalByID", ApprovalID: id, Err: err}
	}

	return approval, nil
}

// SaveApproval upserts an approval. The partial unique index on open
// approvals rejects a second open request for the same entity and type.
func (r *ApprovalRepository) SaveApproval(ctx context.Context, approval *models.Approval) error {
	if approval.RequestedAt.IsZero() {
		approval.RequestedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO approvals (id, entity_type, entity_id, approval_type,
stage, status, priority, quote_type, value, mandatory_approval,
requires_second_approval, can_self_approve, requested_by, request_notes,
requested_at, approved_by, approved_at, approval_notes, second_approved_by,
second_approved_at, rejected_by, rejected_at, rejection_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
$14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (id) DO UPDATE SET
			stage = EXCLUDED.stage,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			value = EXCLUDED.value,
			mandatory_approval = EXCLUDED.mandatory_approval,
			requires_second_approval = EXCLUDED.requires_second_approval,
			can_self_approve = EXCLUDED.can_self_approve,
			approved_by = EXCLUDED.approved_by,
			approved_at = EXCLUDED.approved_at,
			approval_notes = EXCLUDED.approval_notes,
			second_approved_by = EXCLUDED.second_approved_by,
			second_approved_at = EXCLUDED.second_approved_at,
			rejected_by = EXCLUDED.rejected_by,
			rejected_at = EXCLUDED.rejected_at,
			rejection_reason = EXCLUDED.rejection_reason
	`

	_, err := r.db.ExecContext(ctx, query,
		approval.ID,
		approval.EntityType,
		approval.EntityID,
		approval.ApprovalType,
		approval.Stage,
		approval.Status,
		approval.Priority,
		approval.QuoteType,
		approval.Value,
		approval.MandatoryApproval,
		approval.RequiresSecondApproval,
		approval.CanSelfApprove,
		approval.RequestedBy,
		approval.RequestNotes,
		approval.RequestedAt,
		approval.ApprovedBy,
		approval.ApprovedAt,
		approval.ApprovalNotes,
		approval.SecondApprovedBy,
		approval.SecondApprovedAt,
		approval.RejectedBy,
		approval.RejectedAt,
		approval.RejectionReason,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return &persistence.ApprovalError{Op: "SaveApproval", ApprovalID: approval.ID, Err: persistence.ErrDuplicateApproval}
		}

		return &persistence.ApprovalError{Op: "SaveApproval", ApprovalID: approval.ID, Err: fmt.Errorf("failed to save approval: %w", err)}
	}

	return nil
}

// OpenApproval returns the open request for an entity and approval type.
func (r *ApprovalRepository) OpenApproval(ctx context.Context, entityType models.ApprovalEntityType, entityID string, approvalType models.ApprovalType) (*models.Approval, error) {
	query := "SELECT " + approvalColumns + `
		FROM approvals
		WHERE entity_type = $1
		  AND entity_id = $2
		  AND approval_type = $3
		  AND status IN ('pending', 'requires_second_approval')
	`

	row := r.db.QueryRowContext(ctx, query, entityType, entityID, approvalType)

	approval, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.ApprovalError{Op: "OpenApproval", ApprovalID: entityID, Err: persistence.ErrApprovalNotFound}
		}

		return nil, &persistence.ApprovalError{Op: "OpenApproval", ApprovalID: entityID, Err: err}
	}

	return approval, nil
}

// ListApprovals returns approvals matching the filter, most recent first.
func (r *ApprovalRepository) ListApprovals(ctx context.Context, filter persistence.ApprovalFilter) ([]*models.Approval, error) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	addCondition := func(column, value string) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.EntityType != "" {
		addCondition("entity_type", string(filter.EntityType))
	}

	if filter.EntityID != "" {
		addCondition("entity_id", filter.EntityID)
	}

	if filter.ApprovalType != "" {
		addCondition("approval_type", string(filter.ApprovalType))
	}

	if filter.Status != "" {
		addCondition("status", string(filter.Status))
	}

	query := "SELECT " + approvalColumns + " FROM approvals"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY requested_at DESC, id DESC"

	return r.queryApprovals(ctx, query, args...)
}

// ListOpenBefore returns open approvals requested at or before the cutoff,
// oldest first.
func (r *ApprovalRepository) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.Approval, error) {
	query := "SELECT " + approvalColumns + `
		FROM approvals
		WHERE status IN ('pending', 'requires_second_approval')
		  AND requested_at <= $1
		ORDER BY requested_at ASC
	`

	return r.queryApprovals(ctx, query, cutoff)
}

func (r *ApprovalRepository) queryApprovals(ctx context.Context, query string, args ...any) ([]*models.Approval, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	approvals := make([]*models.Approval, 0)

	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		approvals = append(approvals, approval)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}

	return approvals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (*models.Approval, error) {
	approval := &models.Approval{}

	var (
		stage, priority, quoteType                    sql.NullString
		requestNotes, approvedBy, approvalNotes       sql.NullString
		secondApprovedBy, rejectedBy, rejectionReason sql.NullString
		approvedAt, secondApprovedAt, rejectedAt      sql.NullTime
	)

	err := row.Scan(
		&approval.ID,
		&approval.EntityType,
		&approval.EntityID,
		&approval.ApprovalType,
		&stage,
		&approval.Status,
		&priority,
		&quoteType,
		&approval.Value,
		&approval.MandatoryApproval,
		&approval.RequiresSecondApproval,
		&approval.CanSelfApprove,
		&approval.RequestedBy,
		&requestNotes,
		&approval.RequestedAt,
		&approvedBy,
		&approvedAt,
		&approvalNotes,
		&secondApprovedBy,
		&secondApprovedAt,
		&rejectedBy,
		&rejectedAt,
		&rejectionReason,
	)
	if err != nil {
		return nil, err
	}

	approval.Stage = stage.String
	approval.Priority = models.ApprovalPriority(priority.String)
	approval.QuoteType = models.QuoteType(quoteType.String)
	approval.RequestNotes = requestNotes.String
	approval.ApprovedBy = approvedBy.String
	approval.ApprovalNotes = approvalNotes.String
	approval.SecondApprovedBy = secondApprovedBy.String
	approval.RejectedBy = rejectedBy.String
	approval.RejectionReason = rejectionReason.String

	if approvedAt.Valid {
		approval.ApprovedAt = &approvedAt.Time
	}

	if secondApprovedAt.Valid {
		approval.SecondApprovedAt = &secondApprovedAt.Time
	}

	if rejectedAt.Valid {
		approval.RejectedAt = &rejectedAt.Time
	}

	return approval, nil
}
