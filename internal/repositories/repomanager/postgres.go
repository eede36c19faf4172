package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/mediatrack/internal/dbx"
	"github.com/dmitrijs2005/mediatrack/internal/migrations"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/integrations"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/mediaitems"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/platforms"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/watchsessions"
)

type PostgresRepositoryManager struct {
	db *sql.DB
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Platforms(db dbx.DBTX) platforms.Repository {
	return platforms.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Integrations(db dbx.DBTX) integrations.Repository {
	return integrations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) MediaItems(db dbx.DBTX) mediaitems.Repository {
	return mediaitems.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) WatchSessions(db dbx.DBTX) watchsessions.Repository {
	return watchsessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{db: db}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
