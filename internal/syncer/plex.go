package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediatrack/internal/artwork"
	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/dbx"
	"github.com/dmitrijs2005/mediatrack/internal/handshake"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
	"github.com/dmitrijs2005/mediatrack/internal/models"
	"github.com/dmitrijs2005/mediatrack/internal/plex"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/repomanager"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/watchsessions"
	"github.com/dmitrijs2005/mediatrack/internal/vault"
)

// deviceType recorded on sessions imported from Plex.
const deviceType = "plex"

// ArtworkMirror is the slice of the artwork store the walk needs.
type ArtworkMirror interface {
	Enabled() bool
	Mirror(ctx context.Context, sourceURL, key string) error
}

// PlexStrategy walks the user's Plex servers and reconciles their libraries
// into the catalog. Servers, sections and items each fail in isolation: a
// broken level is logged and skipped while the walk continues. Only the
// initial server listing is fatal.
type PlexStrategy struct {
	client  *plex.Client
	vault   *vault.Vault
	db      *sql.DB
	repos   repomanager.RepositoryManager
	artwork ArtworkMirror
	logger  logging.Logger
}

func NewPlexStrategy(client *plex.Client, v *vault.Vault, db *sql.DB,
	repos repomanager.RepositoryManager, artworkStore ArtworkMirror, logger logging.Logger) *PlexStrategy {
	return &PlexStrategy{
		client:  client,
		vault:   v,
		db:      db,
		repos:   repos,
		artwork: artworkStore,
		logger:  logger.With("component", "plex_sync"),
	}
}

func (p *PlexStrategy) Sync(ctx context.Context, integ *models.Integration) (*Result, error) {
	var creds handshake.Credentials
	if err := p.vault.Decrypt(integ.EncryptedCredentials, &creds); err != nil {
		return nil, err
	}
	if creds.AuthToken == "" {
		return nil, common.ErrInvalidCredentials
	}

	servers, err := p.client.Servers(ctx, creds.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("%w: listing servers: %v", common.ErrSyncFatal, err)
	}

	imported := 0
	for _, srv := range servers {
		if !srv.Reachable() {
			p.logger.Info(ctx, "skipping unreachable server", "server", srv.Name)
			continue
		}
		n, err := p.syncServer(ctx, integ, srv, creds.AuthToken)
		imported += n
		if err != nil {
			p.logger.Warn(ctx, "server walk failed, continuing", "server", srv.Name, "error", err)
		}
	}

	return &Result{ItemsImported: imported}, nil
}

func (p *PlexStrategy) syncServer(ctx context.Context, integ *models.Integration, srv plex.Server, token string) (int, error) {
	sections, err := p.client.Sections(ctx, srv.URL(), token)
	if err != nil {
		return 0, fmt.Errorf("error listing sections: %w", err)
	}

	imported := 0
	for _, section := range sections {
		if section.Type != "movie" && section.Type != "show" {
			continue
		}
		items, err := p.client.SectionItems(ctx, srv.URL(), token, section.Key)
		if err != nil {
			p.logger.Warn(ctx, "section walk failed, continuing", "server", srv.Name, "section", section.Title, "error", err)
			continue
		}
		for _, item := range items {
			if err := p.importItem(ctx, integ, srv, section, item, token); err != nil {
				p.logger.Warn(ctx, "item import failed, continuing", "server", srv.Name, "title", item.Title, "error", err)
				continue
			}
			imported++
		}
	}
	return imported, nil
}

// importItem reconciles one metadata item and, when it has been viewed,
// records the watch session in the same transaction, so a failed session
// write never leaves a half-imported item behind.
func (p *PlexStrategy) importItem(ctx context.Context, integ *models.Integration,
	srv plex.Server, section plex.Directory, item plex.Metadata, token string) error {

	mediaItem := p.mapItem(ctx, srv, section, item, token)

	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := p.repos.MediaItems(tx).Upsert(ctx, mediaItem)
		if err != nil {
			return fmt.Errorf("error upserting media item: %w", err)
		}

		if item.ViewCount > 0 {
			if err := p.recordWatch(ctx, integ, id, item, p.repos.WatchSessions(tx)); err != nil {
				return fmt.Errorf("error recording watch session: %w", err)
			}
		}

		return nil
	})
}

func (p *PlexStrategy) mapItem(ctx context.Context, srv plex.Server, section plex.Directory,
	item plex.Metadata, token string) *models.MediaItem {

	mediaType := models.MediaTypeTV
	if section.Type == "movie" {
		mediaType = models.MediaTypeMovie
	}

	m := &models.MediaItem{
		TMDBID:      tmdbIDFromGUID(item.GUID),
		Title:       item.Title,
		Type:        mediaType,
		Description: item.Summary,
		Genres:      tagValues(item.Genre),
		Cast:        tagValues(item.Role),
		Metadata: map[string]any{
			"source":      "plex",
			"plex_key":    item.Key,
			"plex_guid":   item.GUID,
			"plex_server": srv.Name,
		},
	}

	if item.Year > 0 {
		year := item.Year
		m.Year = &year
	}
	if item.Duration > 0 {
		runtime := int(item.Duration / 60000)
		m.Runtime = &runtime
	}
	if item.Rating > 0 {
		rating := item.Rating
		m.RatingIMDB = &rating
	}
	if item.Tagline != "" {
		tagline := item.Tagline
		m.Tagline = &tagline
	}

	m.PosterURL = p.artworkURL(ctx, srv, token, item.Thumb, item.RatingKey, "poster")
	m.BackdropURL = p.artworkURL(ctx, srv, token, item.Art, item.RatingKey, "backdrop")

	return m
}

// artworkURL resolves an image path to the URL we persist. With the mirror
// enabled the image is copied into object storage and the stable serving
// route is stored; presigning happens when the route is hit, so catalog
// rows never hold expiring links. Otherwise, or when mirroring fails, the
// native server URL is stored without the auth token.
func (p *PlexStrategy) artworkURL(ctx context.Context, srv plex.Server, token, path, ratingKey, kind string) *string {
	if path == "" {
		return nil
	}
	native := srv.URL() + path

	if p.artwork != nil && p.artwork.Enabled() {
		key := fmt.Sprintf("plex/%s/%s", ratingKey, kind)
		if err := p.artwork.Mirror(ctx, native+"?X-Plex-Token="+token, key); err == nil {
			route := artwork.RouteFor(key)
			return &route
		} else {
			p.logger.Warn(ctx, "artwork mirror failed, storing native url", "key", key, "error", err)
		}
	}

	return &native
}

func (p *PlexStrategy) recordWatch(ctx context.Context, integ *models.Integration,
	mediaItemID string, item plex.Metadata, sessions watchsessions.Repository) error {
	startedAt := time.Now()
	if item.LastViewedAt > 0 {
		startedAt = time.Unix(item.LastViewedAt, 0)
	}

	seconds := int(item.Duration / 1000)
	device := deviceType
	platformID := integ.PlatformID

	session := &models.WatchSession{
		UserID:              integ.UserID,
		MediaItemID:         mediaItemID,
		PlatformID:          &platformID,
		StartedAt:           startedAt,
		ProgressSeconds:     seconds,
		TotalRuntimeSeconds: &seconds,
		Completed:           true,
		DeviceType:          &device,
	}

	return sessions.Record(ctx, session)
}

func tagValues(tags []plex.Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Tag)
	}
	return out
}

// tmdbIDFromGUID extracts a TMDB identifier from a Plex agent GUID such as
// "com.plexapp.agents.themoviedb://603?lang=en" or "tmdb://603". New-style
// "plex://" GUIDs carry no TMDB id and yield nil.
func tmdbIDFromGUID(guid string) *int64 {
	for _, marker := range []string{"themoviedb://", "tmdb://"} {
		idx := strings.Index(guid, marker)
		if idx < 0 {
			continue
		}
		rest := guid[idx+len(marker):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 0 {
			continue
		}
		id, err := strconv.ParseInt(rest[:end], 10, 64)
		if err != nil {
			continue
		}
		return &id
	}
	return nil
}
