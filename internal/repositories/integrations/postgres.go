// Package integrations provides the PostgreSQL-backed integration registry.
package integrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/dbx"
	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// PostgresRepository implements the registry over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const joinedColumns = `
	i.id, i.user_id, i.platform_id, i.status, i.encrypted_credentials,
	i.last_sync, i.sync_enabled, i.sync_interval_minutes, i.error_message,
	i.created_at, i.updated_at,
	p.id, p.name, p.display_name, p.requires_auth, p.api_endpoint, p.created_at`

func scanJoined(rows interface{ Scan(...any) error }) (*models.Integration, error) {
	var item models.Integration
	var platform models.Platform
	var creds, errMsg sql.NullString
	var lastSync sql.NullTime
	if err := rows.Scan(
		&item.ID, &item.UserID, &item.PlatformID, &item.Status, &creds,
		&lastSync, &item.SyncEnabled, &item.SyncIntervalMinutes, &errMsg,
		&item.CreatedAt, &item.UpdatedAt,
		&platform.ID, &platform.Name, &platform.DisplayName, &platform.RequiresAuth,
		&platform.APIEndpoint, &platform.CreatedAt,
	); err != nil {
		return nil, err
	}
	if creds.Valid {
		item.EncryptedCredentials = creds.String
	}
	if errMsg.Valid {
		item.ErrorMessage = &errMsg.String
	}
	if lastSync.Valid {
		t := lastSync.Time
		item.LastSync = &t
	}
	item.Platform = &platform
	return &item, nil
}

// GetByUser returns all integrations of a user with platforms joined,
// oldest first.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) ([]*models.Integration, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM user_integrations i
		JOIN platforms p ON p.id = i.platform_id
		WHERE i.user_id = $1
		ORDER BY i.created_at;
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select integrations: %w", err)
	}
	defer rows.Close()

	var result []*models.Integration
	for rows.Next() {
		item, err := scanJoined(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert inserts or replaces the integration keyed by (user_id, platform_id).
// The row's generated ID is written back into the model.
func (r *PostgresRepository) Upsert(ctx context.Context, integration *models.Integration) error {
	query := `
		INSERT INTO user_integrations
			(user_id, platform_id, status, encrypted_credentials, sync_enabled, sync_interval_minutes, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, platform_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			encrypted_credentials = EXCLUDED.encrypted_credentials,
			sync_enabled = EXCLUDED.sync_enabled,
			sync_interval_minutes = EXCLUDED.sync_interval_minutes,
			error_message = EXCLUDED.error_message,
			updated_at = now()
		RETURNING id;
	`
	status := integration.Status
	if status == "" {
		status = models.StatusDisconnected
	}
	interval := integration.SyncIntervalMinutes
	if interval <= 0 {
		interval = 15
	}
	var creds, errMsg any
	if integration.EncryptedCredentials != "" {
		creds = integration.EncryptedCredentials
	}
	if integration.ErrorMessage != nil {
		errMsg = *integration.ErrorMessage
	}
	err := r.db.QueryRowContext(ctx, query,
		integration.UserID, integration.PlatformID, status, creds,
		integration.SyncEnabled, interval, errMsg,
	).Scan(&integration.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateStatus transitions the integration's status. The error message is
// cleared on transition to connected and otherwise only overwritten when a
// new one is supplied; last_sync is stamped only when provided.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, userID, platformID string, status models.IntegrationStatus, errMsg *string, lastSync *time.Time) error {
	query := `
		UPDATE user_integrations SET
			status = $3,
			error_message = CASE
				WHEN $3 = 'connected' THEN NULL
				ELSE COALESCE($4, error_message)
			END,
			last_sync = COALESCE($5, last_sync),
			updated_at = now()
		WHERE user_id = $1 AND platform_id = $2;
	`
	res, err := r.db.ExecContext(ctx, query, userID, platformID, status, errMsg, lastSync)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete hard-removes the integration; the credential blob goes with it.
func (r *PostgresRepository) Delete(ctx context.Context, userID, platformID string) error {
	query := `DELETE FROM user_integrations WHERE user_id = $1 AND platform_id = $2;`
	res, err := r.db.ExecContext(ctx, query, userID, platformID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListDue is the admission-control gate for the orchestrator: connected,
// sync-enabled integrations whose last_sync is null or older than their own
// sync_interval_minutes. An empty userID selects all users.
func (r *PostgresRepository) ListDue(ctx context.Context, userID string) ([]*models.Integration, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM user_integrations i
		JOIN platforms p ON p.id = i.platform_id
		WHERE i.status = 'connected'
		  AND i.sync_enabled
		  AND (i.last_sync IS NULL OR i.last_sync < now() - (i.sync_interval_minutes * interval '1 minute'))
		  AND ($1 = '' OR i.user_id::text = $1)
		ORDER BY i.created_at;
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select due integrations: %w", err)
	}
	defer rows.Close()

	var result []*models.Integration
	for rows.Next() {
		item, err := scanJoined(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
