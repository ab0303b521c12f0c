package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pipecraft/campd/pkg/models"
)

// ActivityRepository handles the immutable transition audit log.
type ActivityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sql.DB, logger *slog.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

// Append inserts an audit entry. Entries are never updated or deleted.
func (ar *ActivityRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	detailJSON, err := marshalMap(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to append activity %s: %w", entry.ID, err)
	}

	metadataJSON, err := marshalMap(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to append activity %s: %w", entry.ID, err)
	}

	query := `
		INSERT INTO activity_log (id, namespace, node_id, operator, from_status, to_status, detail, metadata, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = ar.db.ExecContext(ctx, query,
		entry.ID,
		entry.Namespace,
		entry.NodeID,
		entry.Operator,
		entry.FromStatus,
		entry.ToStatus,
		detailJSON,
		metadataJSON,
		entry.CreatedAt,
		entry.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity %s: %w", entry.ID, err)
	}

	return nil
}

// ListByNode returns the audit entries of a node, newest first.
func (ar *ActivityRepository) ListByNode(ctx context.Context, nodeID string) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, namespace, node_id, operator, from_status, to_status, detail, metadata, created_at, finished_at
		FROM activity_log
		WHERE node_id = $1
		ORDER BY created_at DESC
	`

	return ar.queryActivity(ctx, query, nodeID)
}

// ListByNamespace returns the audit entries of a campaign namespace, newest
// first.
func (ar *ActivityRepository) ListByNamespace(ctx context.Context, namespace string) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, namespace, node_id, operator, from_status, to_status, detail, metadata, created_at, finished_at
		FROM activity_log
		WHERE namespace = $1
		ORDER BY created_at DESC
	`

	return ar.queryActivity(ctx, query, namespace)
}

func (ar *ActivityRepository) queryActivity(ctx context.Context, query string, args ...any) ([]*models.ActivityLog, error) {
	rows, err := ar.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			ar.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var entries []*models.ActivityLog

	for rows.Next() {
		var (
			entry        models.ActivityLog
			detailJSON   []byte
			metadataJSON []byte
			finishedAt   sql.NullTime
		)

		err := rows.Scan(
			&entry.ID,
			&entry.Namespace,
			&entry.NodeID,
			&entry.Operator,
			&entry.FromStatus,
			&entry.ToStatus,
			&detailJSON,
			&metadataJSON,
			&entry.CreatedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}

		entry.Detail, err = unmarshalMap(detailJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}

		entry.Metadata, err = unmarshalMap(metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}

		if finishedAt.Valid {
			entry.FinishedAt = &finishedAt.Time
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log: %w", err)
	}

	return entries, nil
}
