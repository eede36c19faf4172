package models

import "time"

// MediaType distinguishes movies from TV shows.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// MediaItem is a canonical, platform-agnostic catalog row. TMDBID is the
// stable external identifier used for deduplication when present; items
// without one are inserted as-is. Only Title and Type are required.
type MediaItem struct {
	ID          string
	TMDBID      *int64
	IMDBID      *string
	Title       string
	Type        MediaType
	Description string
	PosterURL   *string
	BackdropURL *string
	Year        *int
	Runtime     *int // minutes
	Genres      []string
	RatingIMDB  *float64
	RatingTMDB  *float64
	Tagline     *string
	Cast        []string
	Crew        []string
	// Metadata records provenance: source platform, native key, native guid.
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
