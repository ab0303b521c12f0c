package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pipecraft/campd/pkg/models"
)

// EdgeRepository handles the directed dependencies of campaign graphs.
type EdgeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEdgeRepository creates a new edge repository.
func NewEdgeRepository(db *sql.DB, logger *slog.Logger) *EdgeRepository {
	return &EdgeRepository{db: db, logger: logger}
}

// Save inserts an edge. Re-authoring the same dependency is a no-op thanks to
// the deterministic id.
func (er *EdgeRepository) Save(ctx context.Context, edge *models.Edge) error {
	configJSON, err := marshalMap(edge.Config)
	if err != nil {
		return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
	}

	query := `
		INSERT INTO edges (id, namespace, source_id, target_id, name, config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = er.db.ExecContext(ctx, query,
		edge.ID,
		edge.Namespace,
		edge.SourceID,
		edge.TargetID,
		edge.Name,
		configJSON,
		edge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
	}

	return nil
}

// ListByNamespace returns every edge of a campaign namespace.
func (er *EdgeRepository) ListByNamespace(ctx context.Context, namespace string) ([]*models.Edge, error) {
	query := `
		SELECT id, namespace, source_id, target_id, name, config, created_at
		FROM edges
		WHERE namespace = $1
		ORDER BY created_at
	`

	return er.queryEdges(ctx, query, namespace)
}

// ListByTarget returns the edges pointing at a node, i.e. its direct
// dependencies.
func (er *EdgeRepository) ListByTarget(ctx context.Context, namespace, targetID string) ([]*models.Edge, error) {
	query := `
		SELECT id, namespace, source_id, target_id, name, config, created_at
		FROM edges
		WHERE namespace = $1 AND target_id = $2
		ORDER BY created_at
	`

	return er.queryEdges(ctx, query, namespace, targetID)
}

func (er *EdgeRepository) queryEdges(ctx context.Context, query string, args ...any) ([]*models.Edge, error) {
	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var edges []*models.Edge

	for rows.Next() {
		var (
			edge       models.Edge
			configJSON []byte
		)

		err := rows.Scan(
			&edge.ID,
			&edge.Namespace,
			&edge.SourceID,
			&edge.TargetID,
			&edge.Name,
			&configJSON,
			&edge.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edge.Config, err = unmarshalMap(configJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edges = append(edges, &edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}
