package watchsessions

import (
	"context"

	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// Repository is the watch-session store. The sync engine only inserts;
// Record deduplicates on (user, item, started_at, device_type) so a retried
// walk re-reporting the same view event does not double-count it.
type Repository interface {
	Record(ctx context.Context, session *models.WatchSession) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.WatchSession, error)
}
