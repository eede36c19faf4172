package integrations

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func joinedRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "platform_id", "status", "encrypted_credentials",
		"last_sync", "sync_enabled", "sync_interval_minutes", "error_message",
		"created_at", "updated_at",
		"p_id", "p_name", "p_display_name", "p_requires_auth", "p_api_endpoint", "p_created_at",
	})
}

func TestUpsert_InsertsWithDefaults(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO user_integrations .* ON CONFLICT \(user_id, platform_id\)`).
		WithArgs("u1", "p1", "disconnected", nil, true, 15, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("i1"))

	integ := &models.Integration{UserID: "u1", PlatformID: "p1", SyncEnabled: true}
	if err := repo.Upsert(context.Background(), integ); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if integ.ID != "i1" {
		t.Fatalf("want returned id i1, got %q", integ.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_ReplacesCredentials(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO user_integrations .* ON CONFLICT \(user_id, platform_id\)`).
		WithArgs("u1", "p1", "connected", "blob-2", true, 30, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("i1"))

	integ := &models.Integration{
		UserID:               "u1",
		PlatformID:           "p1",
		Status:               models.StatusConnected,
		EncryptedCredentials: "blob-2",
		SyncEnabled:          true,
		SyncIntervalMinutes:  30,
	}
	if err := repo.Upsert(context.Background(), integ); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE user_integrations SET`).
		WithArgs("u1", "p1", models.StatusConnected, nil, &now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "u1", "p1", models.StatusConnected, nil, &now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE user_integrations SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "u1", "p1", models.StatusError, nil, nil)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDelete_RemovesRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM user_integrations WHERE user_id = \$1 AND platform_id = \$2`).
		WithArgs("u1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "u1", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM user_integrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1", "p1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestListDue_ScansJoinedRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := joinedRows().AddRow(
		"i1", "u1", "p1", "connected", "blob",
		nil, true, 15, nil,
		now, now,
		"p1", "plex", "Plex", true, "https://plex.tv", now,
	)

	mock.ExpectQuery(`FROM user_integrations i\s+JOIN platforms p ON p\.id = i\.platform_id\s+WHERE i\.status = 'connected'`).
		WithArgs("u1").
		WillReturnRows(rows)

	due, err := repo.ListDue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("want 1 due integration, got %d", len(due))
	}
	got := due[0]
	if got.EncryptedCredentials != "blob" {
		t.Fatalf("want credentials scanned, got %q", got.EncryptedCredentials)
	}
	if got.LastSync != nil {
		t.Fatalf("want nil LastSync, got %v", got.LastSync)
	}
	if got.Platform == nil || got.Platform.Name != "plex" {
		t.Fatalf("want joined platform plex, got %+v", got.Platform)
	}
}

func TestGetByUser_PopulatesNullables(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := joinedRows().AddRow(
		"i1", "u1", "p1", "error", nil,
		now, false, 60, "sync failed to start",
		now, now,
		"p1", "plex", "Plex", true, "https://plex.tv", now,
	)

	mock.ExpectQuery(`FROM user_integrations i\s+JOIN platforms p ON p\.id = i\.platform_id\s+WHERE i\.user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := repo.GetByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 integration, got %d", len(got))
	}
	item := got[0]
	if item.Status != models.StatusError {
		t.Fatalf("want status error, got %s", item.Status)
	}
	if item.ErrorMessage == nil || *item.ErrorMessage != "sync failed to start" {
		t.Fatalf("want error message scanned, got %v", item.ErrorMessage)
	}
	if item.LastSync == nil {
		t.Fatal("want LastSync scanned")
	}
}
