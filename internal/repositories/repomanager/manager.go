// Package repomanager wires the PostgreSQL repositories to one shared
// connection and applies migrations at startup.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mediatrack/internal/dbx"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/integrations"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/mediaitems"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/platforms"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/watchsessions"
)

// RepositoryManager exposes the persistence layer to the service wiring.
// Repository factories take a dbx.DBTX, so a caller can bind them to the
// shared connection or to a transaction opened with dbx.WithTx.
type RepositoryManager interface {
	Conn() *sql.DB
	Platforms(db dbx.DBTX) platforms.Repository
	Integrations(db dbx.DBTX) integrations.Repository
	MediaItems(db dbx.DBTX) mediaitems.Repository
	WatchSessions(db dbx.DBTX) watchsessions.Repository
	RunMigrations(ctx context.Context) error
	Close() error
}
