// Package persistence provides the data storage abstraction for jobs, their
// workflow steps, the navigation audit trail, and approval requests.
package persistence

import (
	"context"
	"time"

	"github.com/sfgfab/jobflow/pkg/models"
)

// Persistence is the record store the engine reads and writes. Implementations
// must make CommitTransition atomic: either the job, both step mutations, the
// status projection, and the navigation record all land, or none do.
type Persistence interface {
	Jobs() JobRepository
	Navigations() NavigationRepository
	Approvals() ApprovalRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// JobRepository stores jobs and their workflow steps.
type JobRepository interface {
	JobByID(ctx context.Context, id string) (*models.Job, error)
	SaveJob(ctx context.Context, job *models.Job) error

	// CommitTransition persists a mutated job (steps, status, current stage)
	// together with its navigation record as one atomic unit. The job's
	// Version must match the stored version; a mismatch fails with
	// ErrConcurrentModification and writes nothing.
	CommitTransition(ctx context.Context, job *models.Job, record *models.NavigationRecord) error
}

// NavigationRepository reads the append-only navigation audit trail. Records
// are written only through JobRepository.CommitTransition and are never
// mutated or deleted.
type NavigationRepository interface {
	// ListByJob returns a job's navigation records, most recent first.
	ListByJob(ctx context.Context, jobID string, limit int) ([]*models.NavigationRecord, error)
}

// ApprovalFilter narrows approval listings.
type ApprovalFilter struct {
	EntityType   models.ApprovalEntityType
	EntityID     string
	ApprovalType models.ApprovalType
	Status       models.ApprovalStatus
}

// ApprovalRepository stores approval requests.
type ApprovalRepository interface {
	ApprovalByID(ctx context.Context, id string) (*models.Approval, error)
	SaveApproval(ctx context.Context, approval *models.Approval) error

	// OpenApproval returns the pending or second-approval-pending request for
	// an entity and approval type, or ErrApprovalNotFound.
	OpenApproval(ctx context.Context, entityType models.ApprovalEntityType, entityID string, approvalType models.ApprovalType) (*models.Approval, error)

	ListApprovals(ctx context.Context, filter ApprovalFilter) ([]*models.Approval, error)

	// ListOpenBefore returns open approvals requested at or before the
	// cutoff, oldest first. Used by the escalation sweep.
	ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.Approval, error)
}
