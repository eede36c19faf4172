package integrations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// Repository is the integration registry: one row per (user, platform),
// carrying connection status, the encrypted credential blob and the sync
// cadence bookkeeping.
type Repository interface {
	// GetByUser returns the user's integrations with platforms joined.
	GetByUser(ctx context.Context, userID string) ([]*models.Integration, error)

	// Upsert creates or replaces the integration keyed by
	// (UserID, PlatformID). Last write wins.
	Upsert(ctx context.Context, integration *models.Integration) error

	// UpdateStatus transitions the integration's status. A transition to
	// connected clears any stored error message; errMsg and lastSync are
	// applied when non-nil.
	UpdateStatus(ctx context.Context, userID, platformID string, status models.IntegrationStatus, errMsg *string, lastSync *time.Time) error

	// Delete removes the integration outright, credential blob included.
	Delete(ctx context.Context, userID, platformID string) error

	// ListDue returns connected, sync-enabled integrations whose last sync
	// is absent or older than their own interval. An empty userID selects
	// all users.
	ListDue(ctx context.Context, userID string) ([]*models.Integration, error)
}
