// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrJobNotFound indicates a job was not found by the given identifier.
	ErrJobNotFound = errors.New("job not found")

	// ErrApprovalNotFound indicates no matching approval request exists.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrConcurrentModification indicates the job's version stamp was stale:
	// another commit landed between load and write. Retryable after reload.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrDuplicateApproval indicates an open approval request already exists
	// for the entity and approval type.
	ErrDuplicateApproval = errors.New("approval request already exists")
)

// JobError wraps job-related persistence errors with operation context.
type JobError struct {
	Op    string // Operation being performed (e.g., "JobByID", "CommitTransition")
	JobID string
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s operation failed for job %s: %v", e.Op, e.JobID, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

func (e *JobError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewJobError creates a new job error with context.
func NewJobError(op, jobID string, err error) *JobError {
	return &JobError{Op: op, JobID: jobID, Err: err}
}

// ApprovalError wraps approval-related persistence errors with context.
type ApprovalError struct {
	Op         string
	ApprovalID string
	Err        error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("%s operation failed for approval %s: %v", e.Op, e.ApprovalID, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

func (e *ApprovalError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsJobNotFound checks if an error indicates a job was not found.
func IsJobNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}

// IsApprovalNotFound checks if an error indicates no matching approval exists.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

// IsConcurrentModification checks if an error indicates optimistic lock failure.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsDuplicateApproval checks if an error indicates an open duplicate request.
func IsDuplicateApproval(err error) bool {
	return errors.Is(err, ErrDuplicateApproval)
}
