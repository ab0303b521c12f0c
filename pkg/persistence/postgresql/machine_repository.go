package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// MachineRepository handles serialized state-machine snapshots.
type MachineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMachineRepository creates a new machine repository.
func NewMachineRepository(db *sql.DB, logger *slog.Logger) *MachineRepository {
	return &MachineRepository{db: db, logger: logger}
}

// Save upserts a machine snapshot. Snapshots are overwritten on every
// transition, so last write wins.
func (mr *MachineRepository) Save(ctx context.Context, machine *models.Machine) error {
	snapshotJSON, err := json.Marshal(machine.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal machine snapshot %s: %w", machine.ID, err)
	}

	query := `
		INSERT INTO machines (id, snapshot, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at
	`

	_, err = mr.db.ExecContext(ctx, query, machine.ID, snapshotJSON, machine.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save machine %s: %w", machine.ID, err)
	}

	return nil
}

// GetByID returns a machine snapshot by its identifier.
func (mr *MachineRepository) GetByID(ctx context.Context, id string) (*models.Machine, error) {
	query := `SELECT id, snapshot, updated_at FROM machines WHERE id = $1`

	var (
		machine      models.Machine
		snapshotJSON []byte
	)

	err := mr.db.QueryRowContext(ctx, query, id).Scan(&machine.ID, &snapshotJSON, &machine.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrMachineNotFound
		}

		return nil, fmt.Errorf("failed to get machine %s: %w", id, err)
	}

	err = json.Unmarshal(snapshotJSON, &machine.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal machine snapshot %s: %w", id, err)
	}

	return &machine, nil
}
