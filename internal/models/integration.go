package models

import "time"

// IntegrationStatus is the connection state of a user's platform integration.
type IntegrationStatus string

const (
	StatusConnected    IntegrationStatus = "connected"
	StatusDisconnected IntegrationStatus = "disconnected"
	StatusError        IntegrationStatus = "error"
)

// Integration is one user's configured connection to one platform.
// At most one row exists per (UserID, PlatformID).
type Integration struct {
	ID                   string
	UserID               string
	PlatformID           string
	Status               IntegrationStatus
	EncryptedCredentials string
	LastSync             *time.Time
	SyncEnabled          bool
	SyncIntervalMinutes  int
	ErrorMessage         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time

	// Platform is populated by queries that join the platforms table.
	Platform *Platform
}
