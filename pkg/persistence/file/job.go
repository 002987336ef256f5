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
	"github.com/sfgfab/jobflow/pkg/persistence"
)

// JobRepository stores one JSON file per job under <root>/jobs.
type JobRepository struct {
	root       string
	mu         *sync.Mutex
	navigation *NavigationRepository
}

// NewJobRepository creates a job repository rooted at the given directory.
func NewJobRepository(root string, mu *sync.Mutex, navigation *NavigationRepository) *JobRepository {
	return &JobRepository{root: root, mu: mu, navigation: navigation}
}

func (r *JobRepository) jobPath(id string) string {
	return filepath.Join(r.root, "jobs", id+".json")
}

// JobByID loads a job with its workflow steps.
func (r *JobRepository) JobByID(ctx context.Context, id string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readJob(id)
}

func (r *JobRepository) readJob(id string) (*models.Job, error) {
	raw, err := os.ReadFile(r.jobPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewJobError("JobByID", id, persistence.ErrJobNotFound)
		}

		return nil, persistence.NewJobError("JobByID", id, err)
	}

	var job models.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, persistence.NewJobError("JobByID", id, fmt.Errorf("failed to parse job file: %w", err))
	}

	return &job, nil
}

// SaveJob writes a job file, creating the jobs directory if needed.
func (r *JobRepository) SaveJob(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeJob("SaveJob", job)
}

func (r *JobRepository) writeJob(op string, job *models.Job) error {
	if err := os.MkdirAll(filepath.Join(r.root, "jobs"), 0o755); err != nil {
		return persistence.NewJobError(op, job.ID, err)
	}

	raw, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return persistence.NewJobError(op, job.ID, err)
	}

	if err := os.WriteFile(r.jobPath(job.ID), raw, 0o644); err != nil {
		return persistence.NewJobError(op, job.ID, err)
	}

	return nil
}

// CommitTransition writes the mutated job and appends its navigation record
// under one lock. The incoming job's Version must match the stored version;
// the stored copy is the authority, so a stale commit writes nothing.
func (r *JobRepository) CommitTransition(ctx context.Context, job *models.Job, record *models.NavigationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.readJob(job.ID)
	if err != nil {
		return err
	}

	if stored.Version != job.Version {
		return persistence.NewJobError("CommitTransition", job.ID, persistence.ErrConcurrentModification)
	}

	job.Version++

	if err := r.writeJob("CommitTransition", job); err != nil {
		return err
	}

	if err := r.navigation.append(job.ID, record); err != nil {
		// Roll the job file back so the pair stays atomic.
		job.Version--

		if restoreErr := r.writeJob("CommitTransition", stored); restoreErr != nil {
			return persistence.NewJobError("CommitTransition", job.ID,
				fmt.Errorf("failed to restore job after record write failure: %w", restoreErr))
		}

		return persistence.NewJobError("CommitTransition", job.ID, err)
	}

	return nil
}
