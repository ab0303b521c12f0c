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

// CampaignRepository handles campaign-related database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

// Save inserts a campaign. Campaign ids are deterministic, so a conflict
// means the campaign already exists.
func (cr *CampaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	metadataJSON, err := marshalMap(campaign.Metadata)
	if err != nil {
		return persistence.NewCampaignError("Save", campaign.ID, err)
	}

	configJSON, err := marshalMap(campaign.Config)
	if err != nil {
		return persistence.NewCampaignError("Save", campaign.ID, err)
	}

	query := `
		INSERT INTO campaigns (id, name, namespace, owner, status, metadata, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := cr.db.ExecContext(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.Namespace,
		campaign.Owner,
		campaign.Status,
		metadataJSON,
		configJSON,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return persistence.NewCampaignError("Save", campaign.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCampaignError("Save", campaign.ID, err)
	}

	if affected == 0 {
		return persistence.NewCampaignError("Save", campaign.ID, persistence.ErrCampaignAlreadyExists)
	}

	return nil
}

// GetByID returns a campaign by its identifier.
func (cr *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `
		SELECT id, name, namespace, owner, status, metadata, config, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`

	campaign, err := cr.scanCampaign(cr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCampaignError("GetByID", id, persistence.ErrCampaignNotFound)
		}

		return nil, persistence.NewCampaignError("GetByID", id, err)
	}

	return campaign, nil
}

// List returns all campaigns ordered by creation time.
func (cr *CampaignRepository) List(ctx context.Context) ([]*models.Campaign, error) {
	query := `
		SELECT id, name, namespace, owner, status, metadata, config, created_at, updated_at
		FROM campaigns
		ORDER BY created_at
	`

	rows, err := cr.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			cr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var campaigns []*models.Campaign

	for rows.Next() {
		campaign, err := cr.scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// UpdateStatus moves a campaign to the given status.
func (cr *CampaignRepository) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	query := `UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := cr.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return persistence.NewCampaignError("UpdateStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCampaignError("UpdateStatus", id, err)
	}

	if affected == 0 {
		return persistence.NewCampaignError("UpdateStatus", id, persistence.ErrCampaignNotFound)
	}

	return nil
}

// ClaimProcessable selects campaigns in the given statuses with FOR UPDATE
// SKIP LOCKED and invokes fn for each while the row locks are held, so
// concurrent daemons partition the campaign set instead of contending. A
// non-nil fn error skips that campaign only.
func (cr *CampaignRepository) ClaimProcessable(ctx context.Context, statuses []models.Status, fn func(ctx context.Context, campaign *models.Campaign) error) (int, error) {
	tx, err := cr.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin claim transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `
		SELECT id, name, namespace, owner, status, metadata, config, created_at, updated_at
		FROM campaigns
		WHERE status = ANY($1)
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return 0, fmt.Errorf("failed to claim campaigns: %w", err)
	}

	var claimed []*models.Campaign

	for rows.Next() {
		campaign, err := cr.scanCampaign(rows)
		if err != nil {
			_ = rows.Close()

			return 0, fmt.Errorf("failed to scan claimed campaign: %w", err)
		}

		claimed = append(claimed, campaign)
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()

		return 0, fmt.Errorf("error iterating claimed campaigns: %w", err)
	}

	_ = rows.Close()

	processed := 0

	for _, campaign := range claimed {
		err := fn(ctx, campaign)
		if err != nil {
			cr.logger.WarnContext(ctx, "campaign skipped during claim processing",
				"campaign_id", campaign.ID, "error", err)

			continue
		}

		processed++
	}

	err = tx.Commit()
	if err != nil {
		return processed, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	return processed, nil
}

// scanCampaign scans a campaign from a database row.
func (cr *CampaignRepository) scanCampaign(scanner interface {
	Scan(dest ...any) error
}) (*models.Campaign, error) {
	var (
		campaign     models.Campaign
		metadataJSON []byte
		configJSON   []byte
	)

	err := scanner.Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.Namespace,
		&campaign.Owner,
		&campaign.Status,
		&metadataJSON,
		&configJSON,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	campaign.Metadata, err = unmarshalMap(metadataJSON)
	if err != nil {
		return nil, err
	}

	campaign.Config, err = unmarshalMap(configJSON)
	if err != nil {
		return nil, err
	}

	return &campaign, nil
}
