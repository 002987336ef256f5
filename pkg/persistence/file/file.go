// Package file provides file-based persistence for jobs, navigation records,
// and approvals. Intended for local development and tests; production
// deployments use the postgresql implementation.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/sfgfab/jobflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root           string
	jobRepo        *JobRepository
	navigationRepo *NavigationRepository
	approvalRepo   *ApprovalRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	// One lock serializes every commit so step mutations, status projection,
	// and the navigation record land together.
	mu := &sync.Mutex{}

	navigationRepo := NewNavigationRepository(cleanRoot, mu)

	return &Persistence{
		root:           cleanRoot,
		jobRepo:        NewJobRepository(cleanRoot, mu, navigationRepo),
		navigationRepo: navigationRepo,
		approvalRepo:   NewApprovalRepository(cleanRoot, mu),
	}
}

// Jobs returns the job repository.
func (fp *Persistence) Jobs() persistence.JobRepository {
	return fp.jobRepo
}

// Navigations returns the navigation record repository.
func (fp *Persistence) Navigations() persistence.NavigationRepository {
	return fp.navigationRepo
}

// Approvals returns the approval repository.
func (fp *Persistence) Approvals() persistence.ApprovalRepository {
	return fp.approvalRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
