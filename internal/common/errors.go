// Package common defines shared constants and sentinel errors used across
// MediaTrack components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Vault errors. ErrDecryptionFailed covers tampered, truncated or
	// otherwise undecodable credential blobs.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Handshake errors.
	ErrCorrelation = errors.New("handshake correlation mismatch")
	ErrAuthTimeout = errors.New("authentication timed out")

	// Sync errors. ErrSyncFatal marks a failure fetching the top-level
	// server list; anything below that level is isolated and logged.
	ErrSyncFatal          = errors.New("sync failed to start")
	ErrInvalidCredentials = errors.New("invalid or missing credentials")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
