// Package postgresql provides PostgreSQL persistence for jobs, navigation
// records, and approvals.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/sfgfab/jobflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	jobRepo        *JobRepository
	navigationRepo *NavigationRepository
	approvalRepo   *ApprovalRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:             database,
		logger:         logger,
		jobRepo:        NewJobRepository(database, logger),
		navigationRepo: NewNavigationRepository(database, logger),
		approvalRepo:   NewApprovalRepository(database, logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Jobs returns the job repository.
func (p *Persistence) Jobs() persistence.JobRepository {
	return p.jobRepo
}

// Navigations returns the navigation record repository.
func (p *Persistence) Navigations() persistence.NavigationRepository {
	return p.navigationRepo
}

// Approvals returns the approval repository.
func (p *Persistence) Approvals() persistence.ApprovalRepository {
	return p.approvalRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
