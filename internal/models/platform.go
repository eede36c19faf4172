// Package models defines the data models persisted in the database.
package models

import "time"

// Platform is a syncable external media source. Reference data created by
// administrators; the sync engine only reads it.
type Platform struct {
	ID           string
	Name         string
	DisplayName  string
	RequiresAuth bool
	APIEndpoint  string
	CreatedAt    time.Time
}
