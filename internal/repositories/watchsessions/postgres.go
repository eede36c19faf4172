// Package watchsessions provides the PostgreSQL-backed watch-session store.
package watchsessions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mediatrack/internal/dbx"
	"github.com/dmitrijs2005/mediatrack/internal/models"
)

// PostgresRepository implements session storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record inserts one playback event. Imported sessions (those tagged with a
// device type) conflict on the import dedup key and update the existing row
// instead, so re-running a walk is idempotent for session counts.
func (r *PostgresRepository) Record(ctx context.Context, session *models.WatchSession) error {
	query := `
		INSERT INTO watch_sessions
			(user_id, media_item_id, platform_id, started_at, ended_at, progress_seconds,
			 total_runtime_seconds, completed, season_number, episode_number, episode_title, device_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, media_item_id, started_at, device_type) WHERE device_type IS NOT NULL
		DO UPDATE SET
			progress_seconds = EXCLUDED.progress_seconds,
			total_runtime_seconds = EXCLUDED.total_runtime_seconds,
			completed = EXCLUDED.completed
		RETURNING id;
	`
	err := r.db.QueryRowContext(ctx, query,
		session.UserID, session.MediaItemID, session.PlatformID, session.StartedAt,
		session.EndedAt, session.ProgressSeconds, session.TotalRuntimeSeconds,
		session.Completed, session.SeasonNumber, session.EpisodeNumber,
		session.EpisodeTitle, session.DeviceType,
	).Scan(&session.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent sessions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.WatchSession, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, media_item_id, platform_id, started_at, ended_at, progress_seconds,
		       total_runtime_seconds, completed, season_number, episode_number, episode_title,
		       device_type, created_at
		FROM watch_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2;
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select watch sessions: %w", err)
	}
	defer rows.Close()

	var result []*models.WatchSession
	for rows.Next() {
		var item models.WatchSession
		var platformID, episodeTitle, deviceType sql.NullString
		var endedAt sql.NullTime
		var totalRuntime, season, episode sql.NullInt64
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.MediaItemID, &platformID, &item.StartedAt,
			&endedAt, &item.ProgressSeconds, &totalRuntime, &item.Completed,
			&season, &episode, &episodeTitle, &deviceType, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		if platformID.Valid {
			item.PlatformID = &platformID.String
		}
		if endedAt.Valid {
			t := endedAt.Time
			item.EndedAt = &t
		}
		if totalRuntime.Valid {
			v := int(totalRuntime.Int64)
			item.TotalRuntimeSeconds = &v
		}
		if season.Valid {
			v := int(season.Int64)
			item.SeasonNumber = &v
		}
		if episode.Valid {
			v := int(episode.Int64)
			item.EpisodeNumber = &v
		}
		if episodeTitle.Valid {
			item.EpisodeTitle = &episodeTitle.String
		}
		if deviceType.Valid {
			item.DeviceType = &deviceType.String
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
