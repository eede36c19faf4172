// Package syncer pulls library and watch data from connected platforms into
// the local catalog. An Orchestrator dispatches per-platform strategies over
// the integrations that are due; each strategy knows how to walk one
// platform's API.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediatrack/internal/logging"
	"github.com/dmitrijs2005/mediatrack/internal/models"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/integrations"
)

// maxErrorMessageLen bounds what gets persisted into the integration row.
const maxErrorMessageLen = 500

// Result is what one strategy run produced.
type Result struct {
	ItemsImported int
}

// Strategy syncs a single integration of the platform it was registered for.
type Strategy interface {
	Sync(ctx context.Context, integration *models.Integration) (*Result, error)
}

// BatchItem is the outcome of one integration within a SyncDue run.
type BatchItem struct {
	Integration *models.Integration
	Result      *Result
	Err         error
}

// Orchestrator owns the strategy registry and drives sync runs.
type Orchestrator struct {
	strategies   map[string]Strategy
	integrations integrations.Repository
	logger       logging.Logger
}

func NewOrchestrator(integrationRepo integrations.Repository, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		strategies:   make(map[string]Strategy),
		integrations: integrationRepo,
		logger:       logger.With("component", "syncer"),
	}
}

// Register binds a strategy to a platform name. Called once at startup,
// before the orchestrator starts dispatching.
func (o *Orchestrator) Register(platform string, s Strategy) {
	o.strategies[platform] = s
}

// SyncDue syncs every due integration sequentially. An empty userID selects
// all users. A failing integration is marked errored and reported in its
// BatchItem; it never aborts the siblings.
func (o *Orchestrator) SyncDue(ctx context.Context, userID string) ([]BatchItem, error) {
	due, err := o.integrations.ListDue(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing due integrations: %w", err)
	}

	var batch []BatchItem
	for _, integ := range due {
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
		result, err := o.SyncOne(ctx, integ)
		batch = append(batch, BatchItem{Integration: integ, Result: result, Err: err})
	}
	return batch, nil
}

// SyncOne runs the platform strategy for one integration. The last-sync
// stamp is written optimistically before the run so a crash mid-walk does
// not leave the integration permanently overdue; a failed run then
// transitions the integration to the error status with the message stored.
func (o *Orchestrator) SyncOne(ctx context.Context, integ *models.Integration) (*Result, error) {
	if integ.Platform == nil {
		return nil, fmt.Errorf("integration %s has no platform attached", integ.ID)
	}

	// stamp first: an integration without a strategy must still leave the
	// due set, or every scheduler tick re-scans it
	now := time.Now()
	if err := o.integrations.UpdateStatus(ctx, integ.UserID, integ.PlatformID, models.StatusConnected, nil, &now); err != nil {
		return nil, fmt.Errorf("error stamping sync start: %w", err)
	}

	strategy, ok := o.strategies[integ.Platform.Name]
	if !ok {
		o.logger.Warn(ctx, "no sync strategy for platform, skipping", "platform", integ.Platform.Name)
		return &Result{}, nil
	}

	result, err := strategy.Sync(ctx, integ)
	if err != nil {
		o.logger.Error(ctx, "sync failed", "platform", integ.Platform.Name, "user_id", integ.UserID, "error", err)
		msg := truncate(err.Error(), maxErrorMessageLen)
		if updErr := o.integrations.UpdateStatus(ctx, integ.UserID, integ.PlatformID, models.StatusError, &msg, nil); updErr != nil {
			o.logger.Error(ctx, "failed to record sync error", "error", updErr)
		}
		return nil, err
	}

	o.logger.Info(ctx, "sync finished", "platform", integ.Platform.Name, "user_id", integ.UserID, "items_imported", result.ItemsImported)
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
