// Package postgresql provides the PostgreSQL persistence implementation for
// the campaign orchestration engine.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"
	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	campaigns *CampaignRepository
	nodes     *NodeRepository
	edges     *EdgeRepository
	tasks     *TaskRepository
	machines  *MachineRepository
	activity  *ActivityRepository
	manifests *ManifestRepository
}

// NewPersistence connects, migrates and wires the repositories.
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

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:        database,
		logger:    logger,
		campaigns: NewCampaignRepository(database, logger),
		nodes:     NewNodeRepository(database, logger),
		edges:     NewEdgeRepository(database, logger),
		tasks:     NewTaskRepository(database, logger),
		machines:  NewMachineRepository(database, logger),
		activity:  NewActivityRepository(database, logger),
		manifests: NewManifestRepository(database, logger),
	}, nil
}

// Campaigns returns the campaign repository.
func (p *Persistence) Campaigns() persistence.CampaignRepository {
	return p.campaigns
}

// Nodes returns the node repository.
func (p *Persistence) Nodes() persistence.NodeRepository {
	return p.nodes
}

// Edges returns the edge repository.
func (p *Persistence) Edges() persistence.EdgeRepository {
	return p.edges
}

// Tasks returns the task repository.
func (p *Persistence) Tasks() persistence.TaskRepository {
	return p.tasks
}

// Machines returns the machine repository.
func (p *Persistence) Machines() persistence.MachineRepository {
	return p.machines
}

// Activity returns the activity-log repository.
func (p *Persistence) Activity() persistence.ActivityRepository {
	return p.activity
}

// Manifests returns the manifest repository.
func (p *Persistence) Manifests() persistence.ManifestRepository {
	return p.manifests
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
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
