package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/persistence"
)

// ApprovalRepository stores one JSON file per approval under <root>/approvals.
type ApprovalRepository struct {
	root string
	mu   *sync.Mutex
}

// NewApprovalRepository creates an approval repository rooted at the given
// directory.
func NewApprovalRepository(root string, mu *sync.Mutex) *ApprovalRepository {
	return &ApprovalRepository{root: root, mu: mu}
}

func (r *ApprovalRepository) approvalPath(id string) string {
	return filepath.Join(r.root, "approvals", id+".json")
}

// ApprovalByID loads one approval request.
func (r *ApprovalRepository) ApprovalByID(ctx context.Context, id string) (*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readApproval(id)
}

func (r *ApprovalRepository) readApproval(id string) (*models.Approval, error) {
	raw, err := os.ReadFile(r.approvalPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &persistence.ApprovalError{Op: "ApprovalByID", ApprovalID: id, Err: persistence.ErrApprovalNotFound}
		}

		return nil, &persistence.ApprovalError{Op: "ApprovalByID", ApprovalID: id, Err: err}
	}

	var approval models.Approval
	if err := json.Unmarshal(raw, &approval); err != nil {
		return nil, &persistence.ApprovalError{Op: "ApprovalByID", ApprovalID: id, Err: fmt.Errorf("failed to parse approval file: %w", err)}
	}

	return &approval, nil
}

// SaveApproval writes an approval file.
func (r *ApprovalRepository) SaveApproval(ctx context.Context, approval *models.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(r.root, "approvals"), 0o755); err != nil {
		return &persistence.ApprovalError{Op: "SaveApproval", ApprovalID: approval.ID, Err: err}
	}

	raw, err := json.MarshalIndent(approval, "", "  ")
	if err != nil {
		return &persistence.ApprovalError{Op: "SaveApproval", ApprovalID: approval.ID, Err: err}
	}

	if err := os.WriteFile(r.approvalPath(approval.ID), raw, 0o644); err != nil {
		return &persistence.ApprovalError{Op: "SaveApproval", ApprovalID: approval.ID, Err: err}
	}

	return nil
}

func (r *ApprovalRepository) readAll() ([]*models.Approval, error) {
	root := os.DirFS(filepath.Join(r.root, "approvals"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list approval files: %w", err)
	}

	approvals := make([]*models.Approval, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		approval, err := r.readApproval(name[:len(name)-5])
		if err != nil {
			return nil, err
		}

		approvals = append(approvals, approval)
	}

	return approvals, nil
}

// OpenApproval returns the open request for an entity and approval type.
func (r *ApprovalRepository) OpenApproval(ctx context.Context, entityType models.ApprovalEntityType, entityID string, approvalType models.ApprovalType) (*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	approvals, err := r.readAll()
	if err != nil {
		return nil, err
	}

	for _, approval := range approvals {
		if approval.EntityType == entityType &&
			approval.EntityID == entityID &&
			approval.ApprovalType == approvalType &&
			approval.Open() {
			return approval, nil
		}
	}

	return nil, &persistence.ApprovalError{Op: "OpenApproval", ApprovalID: entityID, Err: persistence.ErrApprovalNotFound}
}

// ListApprovals returns approvals matching the filter, most recent first.
func (r *ApprovalRepository) ListApprovals(ctx context.Context, filter persistence.ApprovalFilter) ([]*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	approvals, err := r.readAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Approval, 0, len(approvals))

	for _, approval := range approvals {
		if filter.EntityType != "" && approval.EntityType != filter.EntityType {
			continue
		}

		if filter.EntityID != "" && approval.EntityID != filter.EntityID {
			continue
		}

		if filter.ApprovalType != "" && approval.ApprovalType != filter.ApprovalType {
			continue
		}

		if filter.Status != "" && approval.Status != filter.Status {
			continue
		}

		matched = append(matched, approval)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RequestedAt.After(matched[j].RequestedAt)
	})

	return matched, nil
}

// ListOpenBefore returns open approvals requested at or before the cutoff,
// oldest first.
func (r *ApprovalRepository) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	approvals, err := r.readAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Approval, 0)

	for _, approval := range approvals {
		if approval.Open() && !approval.RequestedAt.After(cutoff) {
			matched = append(matched, approval)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RequestedAt.Before(matched[j].RequestedAt)
	})

	return matched, nil
}
