package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mediatrack/internal/flagx"
	"github.com/dmitrijs2005/mediatrack/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "2s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr                string         `json:"endpoint_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	VaultSecret                 string         `json:"vault_secret"`
	PlexClientID                string         `json:"plex_client_id"`
	PlexProduct                 string         `json:"plex_product"`
	PlexBaseURL                 string         `json:"plex_base_url"`
	AuthCallbackURL             string         `json:"auth_callback_url"`
	HandshakePollInterval       timex.Duration `json:"handshake_poll_interval"`
	HandshakeMaxAttempts        int            `json:"handshake_max_attempts"`
	HandshakeTTL                timex.Duration `json:"handshake_ttl"`
	SyncCheckInterval           timex.Duration `json:"sync_check_interval"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config flags;
// when neither is set, no JSON file is loaded. An unreadable or invalid
// file panics, as startup cannot proceed with half-applied configuration.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.VaultSecret = c.VaultSecret
	config.PlexClientID = c.PlexClientID
	config.PlexProduct = c.PlexProduct
	config.PlexBaseURL = c.PlexBaseURL
	config.AuthCallbackURL = c.AuthCallbackURL
	config.HandshakePollInterval = c.HandshakePollInterval.Duration
	config.HandshakeMaxAttempts = c.HandshakeMaxAttempts
	config.HandshakeTTL = c.HandshakeTTL.Duration
	config.SyncCheckInterval = c.SyncCheckInterval.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
