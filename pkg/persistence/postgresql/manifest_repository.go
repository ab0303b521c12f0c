package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// ManifestRepository handles versioned configuration documents.
type ManifestRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewManifestRepository creates a new manifest repository.
func NewManifestRepository(db *sql.DB, logger *slog.Logger) *ManifestRepository {
	return &ManifestRepository{db: db, logger: logger}
}

// Save inserts a manifest version. Manifests are immutable, so saving the
// same (namespace, kind, version) twice is a no-op.
func (mr *ManifestRepository) Save(ctx context.Context, manifest *models.Manifest) error {
	dataJSON, err := marshalMap(manifest.Data)
	if err != nil {
		return fmt.Errorf("failed to save manifest %s: %w", manifest.ID, err)
	}

	query := `
		INSERT INTO manifests (id, namespace, kind, version, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = mr.db.ExecContext(ctx, query,
		manifest.ID,
		manifest.Namespace,
		manifest.Kind,
		manifest.Version,
		dataJSON,
		manifest.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save manifest %s: %w", manifest.ID, err)
	}

	return nil
}

// Latest returns the highest-version manifest of a kind within a namespace.
func (mr *ManifestRepository) Latest(ctx context.Context, namespace string, kind models.ManifestKind) (*models.Manifest, error) {
	query := `
		SELECT id, namespace, kind, version, data, created_at
		FROM manifests
		WHERE namespace = $1 AND kind = $2
		ORDER BY version DESC
		LIMIT 1
	`

	return mr.queryManifest(ctx, query, namespace, kind)
}

// Get returns one exact manifest version.
func (mr *ManifestRepository) Get(ctx context.Context, namespace string, kind models.ManifestKind, version int) (*models.Manifest, error) {
	query := `
		SELECT id, namespace, kind, version, data, created_at
		FROM manifests
		WHERE namespace = $1 AND kind = $2 AND version = $3
	`

	return mr.queryManifest(ctx, query, namespace, kind, version)
}

func (mr *ManifestRepository) queryManifest(ctx context.Context, query string, args ...any) (*models.Manifest, error) {
	var (
		manifest models.Manifest
		dataJSON []byte
	)

	err := mr.db.QueryRowContext(ctx, query, args...).Scan(
		&manifest.ID,
		&manifest.Namespace,
		&manifest.Kind,
		&manifest.Version,
		&dataJSON,
		&manifest.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrManifestNotFound
		}

		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}

	manifest.Data, err = unmarshalMap(dataJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}

	return &manifest, nil
}
