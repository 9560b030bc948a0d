package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir runs the test in an empty directory so no stray .env or
// livechat.toml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("RELAY", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8093, cfg.Relay.Port)
	assert.Equal(t, "livechat", cfg.Relay.Name)
	assert.Empty(t, cfg.Relay.ServerURLs)
	assert.Equal(t, "ws://localhost:8093/ws", cfg.Client.URL)
	assert.Equal(t, 10*time.Second, cfg.Client.HandshakeTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[relay]
port = 9000
name = "church-chat"
server_urls = ["wss://a.example/relay", "wss://b.example/relay"]

[client]
url = "ws://chat.example/ws"
data_path = "/tmp/profile"
`), 0o644))

	t.Setenv("LIVECHAT_RELAY_PORT", "9100")
	t.Setenv("LIVECHAT_CLIENT_DATA_PATH", "/srv/profile")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Relay.Port)
	assert.Equal(t, "church-chat", cfg.Relay.Name)
	assert.Equal(t, []string{"wss://a.example/relay", "wss://b.example/relay"}, cfg.Relay.ServerURLs)
	assert.Equal(t, "ws://chat.example/ws", cfg.Client.URL)
	assert.Equal(t, "/srv/profile", cfg.Client.DataPath)
}

func TestLoadDefaultPathAndDotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "livechat.toml"), []byte("[log]\nlevel = \"debug\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LIVECHAT_RELAY_NAME=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LIVECHAT_RELAY_NAME") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-dotenv", cfg.Relay.Name)
}

func TestLoadRelayEnvFallback(t *testing.T) {
	chdir(t)
	t.Setenv("RELAY", "wss://one/relay, ,wss://two/relay")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://one/relay", "wss://two/relay"}, cfg.Relay.ServerURLs)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t)
	_, err := Load("does-not-exist.toml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate(), "data path missing")

	cfg.Client.Ephemeral = true
	assert.NoError(t, cfg.Validate())

	cfg.Client.URL = ""
	assert.Error(t, cfg.Validate())
}
