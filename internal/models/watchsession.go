package models

import "time"

// WatchSession is one playback event. The sync engine only ever inserts
// sessions (with a dedup key covering retried walks); it never edits them.
type WatchSession struct {
	ID                  string
	UserID              string
	MediaItemID         string
	PlatformID          *string
	StartedAt           time.Time
	EndedAt             *time.Time
	ProgressSeconds     int
	TotalRuntimeSeconds *int
	Completed           bool
	SeasonNumber        *int
	EpisodeNumber       *int
	EpisodeTitle        *string
	DeviceType          *string
	CreatedAt           time.Time
}
