package mediaitems

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

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

func TestUpsert_WithTMDBIDUsesConflictClause(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO media_items .* ON CONFLICT \(tmdb_id\) WHERE tmdb_id IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1"))

	tmdbID := int64(603)
	item := &models.MediaItem{
		TMDBID: &tmdbID,
		Title:  "The Matrix",
		Type:   models.MediaTypeMovie,
	}

	id, err := repo.Upsert(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "m1" || item.ID != "m1" {
		t.Fatalf("want id m1, got %q / %q", id, item.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_SameExternalIDTwiceYieldsSameRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `INSERT INTO media_items .* ON CONFLICT \(tmdb_id\) WHERE tmdb_id IS NOT NULL`
	mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1"))
	mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1"))

	tmdbID := int64(603)
	first := &models.MediaItem{TMDBID: &tmdbID, Title: "The Matrix", Type: models.MediaTypeMovie}
	second := &models.MediaItem{TMDBID: &tmdbID, Title: "The Matrix Reloaded", Type: models.MediaTypeMovie}

	id1, err := repo.Upsert(context.Background(), first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := repo.Upsert(context.Background(), second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("re-upsert must hit the same canonical row: %q vs %q", id1, id2)
	}
}

func TestUpsert_WithoutTMDBIDInsertsOnly(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO media_items .* RETURNING id;`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m2"))

	item := &models.MediaItem{Title: "Home Video", Type: models.MediaTypeMovie}
	id, err := repo.Upsert(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "m2" {
		t.Fatalf("want id m2, got %q", id)
	}
}

func TestGetByID_ScansJSONColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "tmdb_id", "imdb_id", "title", "type", "description", "poster_url",
		"backdrop_url", "year", "runtime", "genres", "rating_imdb", "rating_tmdb",
		"tagline", "media_cast", "crew", "metadata", "created_at", "updated_at",
	}).AddRow(
		"m1", 603, nil, "The Matrix", "movie", "A hacker learns the truth.", nil,
		nil, 1999, 136, []byte(`["Action","Sci-Fi"]`), 8.7, nil,
		nil, []byte(`["Keanu Reeves"]`), []byte(`null`),
		[]byte(`{"source":"plex","plex_key":"/library/metadata/1"}`),
		time.Now(), time.Now(),
	)

	mock.ExpectQuery(`SELECT .* FROM media_items WHERE id = \$1`).
		WithArgs("m1").
		WillReturnRows(rows)

	item, err := repo.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.TMDBID == nil || *item.TMDBID != 603 {
		t.Fatalf("want tmdb id 603, got %v", item.TMDBID)
	}
	if len(item.Genres) != 2 || item.Genres[0] != "Action" {
		t.Fatalf("want genres scanned, got %v", item.Genres)
	}
	if item.Metadata["source"] != "plex" {
		t.Fatalf("want provenance metadata, got %v", item.Metadata)
	}
	if item.Crew != nil {
		t.Fatalf("want nil crew for JSON null, got %v", item.Crew)
	}
}
