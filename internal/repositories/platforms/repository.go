package platforms

import (
	"context"

	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// Repository reads platform reference data. Platforms are created by
// administrators; the sync engine never writes them.
type Repository interface {
	List(ctx context.Context) ([]*models.Platform, error)
	GetByName(ctx context.Context, name string) (*models.Platform, error)
}
