package mediaitems

import (
	"context"

	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// Repository is the canonical media catalog store.
type Repository interface {
	// Upsert merges the item into the catalog and returns the canonical
	// row ID. Items carrying a TMDB ID are deduplicated on it; items
	// without one are always inserted. The sync engine never deletes rows.
	Upsert(ctx context.Context, item *models.MediaItem) (string, error)

	// GetByID returns one catalog row.
	GetByID(ctx context.Context, id string) (*models.MediaItem, error)
}
