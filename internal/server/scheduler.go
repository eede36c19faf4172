package server

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediatrack/internal/handshake"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
	"github.com/dmitrijs2005/mediatrack/internal/syncer"
)

// Scheduler periodically syncs every due integration and evicts expired
// pending handshakes. Per-integration failures are already contained by the
// orchestrator; only the due-listing itself can fail here.
type Scheduler struct {
	orchestrator *syncer.Orchestrator
	store        *handshake.PendingStore
	interval     time.Duration
	logger       logging.Logger
}

func NewScheduler(orchestrator *syncer.Orchestrator, store *handshake.PendingStore,
	interval time.Duration, logger logging.Logger) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		store:        store,
		interval:     interval,
		logger:       logger.With("component", "scheduler"),
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if purged := s.store.PurgeExpired(); purged > 0 {
		s.logger.Info(ctx, "purged expired handshakes", "count", purged)
	}

	batch, err := s.orchestrator.SyncDue(ctx, "")
	if err != nil {
		s.logger.Error(ctx, "scheduled sync run failed", "error", err)
		return
	}
	if len(batch) > 0 {
		s.logger.Info(ctx, "scheduled sync run finished", "integrations", len(batch))
	}
}
