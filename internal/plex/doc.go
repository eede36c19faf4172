// Package plex is a minimal client for the subset of the Plex HTTP API the
// sync engine consumes: PIN-style token polling, the account server list,
// and the per-server library walk (sections and their items). Responses are
// platform-native JSON and every optional field is treated as absent-capable.
package plex
