package server

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/mediatrack/internal/handshake"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
	"github.com/dmitrijs2005/mediatrack/internal/models"
	"github.com/dmitrijs2005/mediatrack/internal/syncer"
)

type countingIntegrations struct {
	listDueCalls atomic.Int32
}

func (s *countingIntegrations) GetByUser(ctx context.Context, userID string) ([]*models.Integration, error) {
	return nil, nil
}

func (s *countingIntegrations) Upsert(ctx context.Context, integration *models.Integration) error {
	return nil
}

func (s *countingIntegrations) UpdateStatus(ctx context.Context, userID, platformID string, status models.IntegrationStatus, errMsg *string, lastSync *time.Time) error {
	return nil
}

func (s *countingIntegrations) Delete(ctx context.Context, userID, platformID string) error {
	return nil
}

func (s *countingIntegrations) ListDue(ctx context.Context, userID string) ([]*models.Integration, error) {
	s.listDueCalls.Add(1)
	return nil, nil
}

func TestScheduler_TicksUntilCancelled(t *testing.T) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	repo := &countingIntegrations{}
	orchestrator := syncer.NewOrchestrator(repo, logger)
	store := handshake.NewPendingStore(time.Millisecond)
	store.Put("u1", "req-1")

	scheduler := NewScheduler(orchestrator, store, 5*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	time.Sleep(40 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, repo.listDueCalls.Load(), int32(2))

	// the expired handshake was evicted along the way
	_, ok := store.Get("u1")
	assert.False(t, ok)
}
