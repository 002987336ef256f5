// Package cmd provides shared wiring helpers for the jobflow binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/sfgfab/jobflow/pkg/persistence/file"
	"github.com/sfgfab/jobflow/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL
// scheme. postgres:// URLs get the PostgreSQL store; anything else is
// treated as a directory path for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		root := strings.TrimPrefix(databaseURL, "file://")

		return file.NewPersistence(root), nil
	}
}
