// Package platforms provides the PostgreSQL-backed repository for platform
// reference data.
package platforms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/dbx"
	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// PostgresRepository implements platform reads over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns all platforms ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Platform, error) {
	query := `
		SELECT id, name, display_name, requires_auth, api_endpoint, created_at
		FROM platforms ORDER BY name;
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select platforms: %w", err)
	}
	defer rows.Close()

	var result []*models.Platform
	for rows.Next() {
		var item models.Platform
		if err := rows.Scan(
			&item.ID, &item.Name, &item.DisplayName, &item.RequiresAuth, &item.APIEndpoint, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByName returns the platform with the given name or common.ErrorNotFound.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Platform, error) {
	query := `
		SELECT id, name, display_name, requires_auth, api_endpoint, created_at
		FROM platforms WHERE name = $1;
	`
	var item models.Platform
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&item.ID, &item.Name, &item.DisplayName, &item.RequiresAuth, &item.APIEndpoint, &item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &item, nil
}
