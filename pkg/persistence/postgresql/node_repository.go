package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// NodeRepository handles versioned node rows.
type NodeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository.
func NewNodeRepository(db *sql.DB, logger *slog.Logger) *NodeRepository {
	return &NodeRepository{db: db, logger: logger}
}

// Save inserts a node row. Node ids encode (name, version, namespace), so a
// duplicate-key violation means this exact version already exists.
func (nr *NodeRepository) Save(ctx context.Context, node *models.Node) error {
	configJSON, err := marshalMap(node.Config)
	if err != nil {
		return persistence.NewNodeError("Save", node.Namespace, node.ID, err)
	}

	metadataJSON, err := marshalMap(node.Metadata)
	if err != nil {
		return persistence.NewNodeError("Save", node.Namespace, node.ID, err)
	}

	query := `
		INSERT INTO nodes (id, name, version, namespace, kind, status, config, machine_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = nr.db.ExecContext(ctx, query,
		node.ID,
		node.Name,
		node.Version,
		node.Namespace,
		node.Kind,
		node.Status,
		configJSON,
		node.MachineID,
		metadataJSON,
		node.CreatedAt,
		node.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.NewNodeError("Save", node.Namespace, node.ID, persistence.ErrNodeVersionExists)
		}

		return persistence.NewNodeError("Save", node.Namespace, node.ID, err)
	}

	return nil
}

// GetByID returns a node by its identifier.
func (nr *NodeRepository) GetByID(ctx context.Context, id string) (*models.Node, error) {
	query := nr.selectClause() + ` WHERE id = $1`

	node, err := nr.scanNode(nr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewNodeError("GetByID", "", id, persistence.ErrNodeNotFound)
		}

		return nil, persistence.NewNodeError("GetByID", "", id, err)
	}

	return node, nil
}

// GetLatestByName returns the highest-version node row for a name within a
// namespace. Graph traversal always binds to the latest version.
func (nr *NodeRepository) GetLatestByName(ctx context.Context, namespace, name string) (*models.Node, error) {
	query := nr.selectClause() + `
		WHERE namespace = $1 AND name = $2
		ORDER BY version DESC
		LIMIT 1
	`

	node, err := nr.scanNode(nr.db.QueryRowContext(ctx, query, namespace, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewNodeError("GetLatestByName", namespace, name, persistence.ErrNodeNotFound)
		}

		return nil, persistence.NewNodeError("GetLatestByName", namespace, name, err)
	}

	return node, nil
}

// ListByNamespace returns every node row in a namespace, all versions
// included, ordered by name then version.
func (nr *NodeRepository) ListByNamespace(ctx context.Context, namespace string) ([]*models.Node, error) {
	query := nr.selectClause() + `
		WHERE namespace = $1
		ORDER BY name, version
	`

	rows, err := nr.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			nr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var nodes []*models.Node

	for rows.Next() {
		node, err := nr.scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

// UpdateStatus moves a node to the given status.
func (nr *NodeRepository) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	query := `UPDATE nodes SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := nr.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return persistence.NewNodeError("UpdateStatus", "", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewNodeError("UpdateStatus", "", id, err)
	}

	if affected == 0 {
		return persistence.NewNodeError("UpdateStatus", "", id, persistence.ErrNodeNotFound)
	}

	return nil
}

// SetMachineID links a node to its persisted machine snapshot.
func (nr *NodeRepository) SetMachineID(ctx context.Context, id, machineID string) error {
	query := `UPDATE nodes SET machine_id = $2, updated_at = NOW() WHERE id = $1`

	result, err := nr.db.ExecContext(ctx, query, id, machineID)
	if err != nil {
		return persistence.NewNodeError("SetMachineID", "", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewNodeError("SetMachineID", "", id, err)
	}

	if affected == 0 {
		return persistence.NewNodeError("SetMachineID", "", id, persistence.ErrNodeNotFound)
	}

	return nil
}

func (nr *NodeRepository) selectClause() string {
	return `
		SELECT id, name, version, namespace, kind, status, config, machine_id, metadata, created_at, updated_at
		FROM nodes
	`
}

// scanNode scans a node from a database row.
func (nr *NodeRepository) scanNode(scanner interface {
	Scan(dest ...any) error
}) (*models.Node, error) {
	var (
		node         models.Node
		configJSON   []byte
		metadataJSON []byte
	)

	err := scanner.Scan(
		&node.ID,
		&node.Name,
		&node.Version,
		&node.Namespace,
		&node.Kind,
		&node.Status,
		&configJSON,
		&node.MachineID,
		&metadataJSON,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	node.Config, err = unmarshalMap(configJSON)
	if err != nil {
		return nil, err
	}

	node.Metadata, err = unmarshalMap(metadataJSON)
	if err != nil {
		return nil, err
	}

	return &node, nil
}
