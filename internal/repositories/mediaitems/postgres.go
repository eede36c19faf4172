// Package mediaitems provides the PostgreSQL-backed canonical media catalog.
package mediaitems

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/dbx"
	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// PostgresRepository implements catalog storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Upsert inserts the item or, when it carries a TMDB ID that already exists,
// updates that row in place. Re-upserting identical fields changes nothing
// but updated_at. Returns the canonical row ID.
func (r *PostgresRepository) Upsert(ctx context.Context, item *models.MediaItem) (string, error) {
	genres, err := marshalJSONB(item.Genres)
	if err != nil {
		return "", fmt.Errorf("marshal genres: %w", err)
	}
	cast, err := marshalJSONB(item.Cast)
	if err != nil {
		return "", fmt.Errorf("marshal cast: %w", err)
	}
	crew, err := marshalJSONB(item.Crew)
	if err != nil {
		return "", fmt.Errorf("marshal crew: %w", err)
	}
	metadata, err := marshalJSONB(item.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	args := []any{
		item.TMDBID, item.IMDBID, item.Title, item.Type, item.Description,
		item.PosterURL, item.BackdropURL, item.Year, item.Runtime, genres,
		item.RatingIMDB, item.RatingTMDB, item.Tagline, cast, crew, metadata,
	}

	insert := `
		INSERT INTO media_items
			(tmdb_id, imdb_id, title, type, description, poster_url, backdrop_url,
			 year, runtime, genres, rating_imdb, rating_tmdb, tagline, media_cast, crew, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	// Items without an external identifier are insert-only: nothing stable
	// exists to deduplicate on.
	query := insert + ` RETURNING id;`
	if item.TMDBID != nil {
		query = insert + `
		ON CONFLICT (tmdb_id) WHERE tmdb_id IS NOT NULL
		DO UPDATE SET
			imdb_id = EXCLUDED.imdb_id,
			title = EXCLUDED.title,
			type = EXCLUDED.type,
			description = EXCLUDED.description,
			poster_url = EXCLUDED.poster_url,
			backdrop_url = EXCLUDED.backdrop_url,
			year = EXCLUDED.year,
			runtime = EXCLUDED.runtime,
			genres = EXCLUDED.genres,
			rating_imdb = EXCLUDED.rating_imdb,
			rating_tmdb = EXCLUDED.rating_tmdb,
			tagline = EXCLUDED.tagline,
			media_cast = EXCLUDED.media_cast,
			crew = EXCLUDED.crew,
			metadata = EXCLUDED.metadata,
			updated_at = now()
		RETURNING id;`
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	item.ID = id
	return id, nil
}

// GetByID returns one catalog row or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.MediaItem, error) {
	query := `
		SELECT id, tmdb_id, imdb_id, title, type, description, poster_url, backdrop_url,
		       year, runtime, genres, rating_imdb, rating_tmdb, tagline, media_cast, crew,
		       metadata, created_at, updated_at
		FROM media_items WHERE id = $1;
	`
	var item models.MediaItem
	var tmdbID sql.NullInt64
	var imdbID, posterURL, backdropURL, tagline sql.NullString
	var year, runtime sql.NullInt64
	var ratingIMDB, ratingTMDB sql.NullFloat64
	var genres, cast, crew, metadata []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &tmdbID, &imdbID, &item.Title, &item.Type, &item.Description,
		&posterURL, &backdropURL, &year, &runtime, &genres, &ratingIMDB, &ratingTMDB,
		&tagline, &cast, &crew, &metadata, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if tmdbID.Valid {
		item.TMDBID = &tmdbID.Int64
	}
	if imdbID.Valid {
		item.IMDBID = &imdbID.String
	}
	if posterURL.Valid {
		item.PosterURL = &posterURL.String
	}
	if backdropURL.Valid {
		item.BackdropURL = &backdropURL.String
	}
	if year.Valid {
		y := int(year.Int64)
		item.Year = &y
	}
	if runtime.Valid {
		m := int(runtime.Int64)
		item.Runtime = &m
	}
	if ratingIMDB.Valid {
		item.RatingIMDB = &ratingIMDB.Float64
	}
	if ratingTMDB.Valid {
		item.RatingTMDB = &ratingTMDB.Float64
	}
	if tagline.Valid {
		item.Tagline = &tagline.String
	}
	if err := json.Unmarshal(genres, &item.Genres); err != nil {
		return nil, fmt.Errorf("unmarshal genres: %w", err)
	}
	if err := json.Unmarshal(cast, &item.Cast); err != nil {
		return nil, fmt.Errorf("unmarshal cast: %w", err)
	}
	if err := json.Unmarshal(crew, &item.Crew); err != nil {
		return nil, fmt.Errorf("unmarshal crew: %w", err)
	}
	if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &item, nil
}
