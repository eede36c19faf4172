package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson_NoFileFlag(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test"}

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, c.EndpointAddr, ":8080")
}

func TestParseJson_OverlaysValues(t *testing.T) {
	content := `{
		"endpoint_addr": ":9090",
		"database_dsn": "postgres://u:p@h:5432/db",
		"secret_key": "jsonSecret",
		"access_token_validity_duration": "30m",
		"vault_secret": "vault-pass",
		"plex_client_id": "app-1",
		"plex_product": "MediaTrack",
		"plex_base_url": "https://plex.example",
		"auth_callback_url": "https://app.example/cb",
		"handshake_poll_interval": "2s",
		"handshake_max_attempts": 5,
		"handshake_ttl": "5m",
		"sync_check_interval": "90s",
		"s3_base_endpoint": "http://127.0.0.1:9000/"
	}`

	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test", "-c", path}

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, ":9090", c.EndpointAddr)
	assert.Equal(t, "postgres://u:p@h:5432/db", c.DatabaseDSN)
	assert.Equal(t, "jsonSecret", c.SecretKey)
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, "vault-pass", c.VaultSecret)
	assert.Equal(t, "app-1", c.PlexClientID)
	assert.Equal(t, "https://plex.example", c.PlexBaseURL)
	assert.Equal(t, "https://app.example/cb", c.AuthCallbackURL)
	assert.Equal(t, 2*time.Second, c.HandshakePollInterval)
	assert.Equal(t, 5, c.HandshakeMaxAttempts)
	assert.Equal(t, 5*time.Minute, c.HandshakeTTL)
	assert.Equal(t, 90*time.Second, c.SyncCheckInterval)
	assert.Equal(t, "http://127.0.0.1:9000/", c.S3BaseEndpoint)
}
