// Package cmd provides common initialization functions for the campd
// command-line binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/persistence/postgresql"
)

// NewPersistence connects the storage layer and runs migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to initialize persistence: %w", err))
	}

	return store
}
