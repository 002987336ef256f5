package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sfgfab/jobflow/pkg/models"
)

// NavigationRepository stores each job's navigation trail as one JSON file
// under <root>/navigations, appended in commit order.
type NavigationRepository struct {
	root string
	mu   *sync.Mutex
}

// NewNavigationRepository creates a navigation repository rooted at the given
// directory.
func NewNavigationRepository(root string, mu *sync.Mutex) *NavigationRepository {
	return &NavigationRepository{root: root, mu: mu}
}

func (r *NavigationRepository) trailPath(jobID string) string {
	return filepath.Join(r.root, "navigations", jobID+".json")
}

// append adds a record to a job's trail. Called only from
// JobRepository.CommitTransition, which already holds the lock.
func (r *NavigationRepository) append(jobID string, record *models.NavigationRecord) error {
	records, err := r.readTrail(jobID)
	if err != nil {
		return err
	}

	records = append(records, record)

	if err := os.MkdirAll(filepath.Join(r.root, "navigations"), 0o755); err != nil {
		return fmt.Errorf("failed to create navigations directory: %w", err)
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal navigation trail: %w", err)
	}

	if err := os.WriteFile(r.trailPath(jobID), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write navigation trail: %w", err)
	}

	return nil
}

func (r *NavigationRepository) readTrail(jobID string) ([]*models.NavigationRecord, error) {
	raw, err := os.ReadFile(r.trailPath(jobID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read navigation trail: %w", err)
	}

	var records []*models.NavigationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse navigation trail: %w", err)
	}

	return records, nil
}

// ListByJob returns a job's navigation records, most recent first.
func (r *NavigationRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]*models.NavigationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.readTrail(jobID)
	if err != nil {
		return nil, err
	}

	// Stored oldest first; reverse for the API contract.
	reversed := make([]*models.NavigationRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		reversed = append(reversed, records[i])
	}

	if limit > 0 && len(reversed) > limit {
		reversed = reversed[:limit]
	}

	return reversed, nil
}
