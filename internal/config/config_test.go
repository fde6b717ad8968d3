package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/murdash/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
mode: local
endpoints:
  local: http://127.0.0.1:4000
realtime:
  reconnect_delay: 250ms
relay:
  redis_url: redis://localhost:6379/0
log:
  level: debug
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.False(t, config.IsAuto())
	assert.Equal(t, model.DataSourceLocal, config.DataSource())
	assert.Equal(t, "http://127.0.0.1:4000", config.Endpoints.Local)
	assert.Equal(t, DefaultCloudURL, config.Endpoints.Cloud)
	assert.Equal(t, DefaultCommanderURL, config.Endpoints.Commander)
	assert.Equal(t, 250*time.Millisecond, config.Realtime.ReconnectDelay)
	assert.Equal(t, DefaultHealthTimeout, config.Health.Timeout)
	assert.Equal(t, "redis://localhost:6379/0", config.Relay.RedisURL)
	assert.Equal(t, DefaultRelayChannel, config.Relay.Channel)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.True(t, config.IsAuto())
	assert.Equal(t, DefaultLocalURL, config.Endpoints.Local)
	assert.Equal(t, DefaultReconnectDelay, config.Realtime.ReconnectDelay)
	assert.Equal(t, DefaultLogLevel, config.Log.Level)
	assert.Equal(t, "", config.Relay.RedisURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
endpoints:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
mode: demo
endpoints:
  local: http://127.0.0.1:4000
`)

	t.Setenv("MURDASH_MODE", "cloud")
	t.Setenv("MURDASH_CLOUD_URL", "https://mur.example.com")
	t.Setenv("MURDASH_RECONNECT_DELAY", "1s")
	t.Setenv("MURDASH_LOG_LEVEL", "warn")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, model.DataSourceCloud, config.DataSource())
	assert.Equal(t, "https://mur.example.com", config.Endpoints.Cloud)
	assert.Equal(t, "http://127.0.0.1:4000", config.Endpoints.Local)
	assert.Equal(t, time.Second, config.Realtime.ReconnectDelay)
	assert.Equal(t, "warn", config.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("MURDASH_COMMANDER_URL=http://10.0.0.5:3939\n"), 0644))

	t.Setenv("MURDASH_COMMANDER_URL", "")
	require.NoError(t, os.Unsetenv("MURDASH_COMMANDER_URL"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envPath))

	config, err := Load(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:3939", config.Endpoints.Commander)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "unsupported version",
			config:  Config{Version: "2.0"},
			wantErr: "unsupported version: 2.0",
		},
		{
			name:    "unknown mode",
			config:  Config{Mode: "offline"},
			wantErr: "invalid mode: offline",
		},
		{
			name:    "non-http endpoint",
			config:  Config{Endpoints: &EndpointsConfig{Local: "ftp://localhost"}},
			wantErr: "endpoints.local",
		},
		{
			name:    "negative reconnect delay",
			config:  Config{Realtime: &RealtimeConfig{ReconnectDelay: -time.Second}},
			wantErr: "realtime.reconnect_delay must be positive",
		},
		{
			name:    "non-redis relay url",
			config:  Config{Relay: &RelayConfig{RedisURL: "http://localhost:6379"}},
			wantErr: "relay.redis_url",
		},
		{
			name:    "unknown log level",
			config:  Config{Log: &LogConfig{Level: "chatty"}},
			wantErr: "invalid log.level",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("mode is case insensitive", func(t *testing.T) {
		config := Config{Mode: " Local "}
		require.NoError(t, config.Validate())
		assert.Equal(t, model.DataSourceLocal, config.DataSource())
	})
}

func TestDefault(t *testing.T) {
	config := Default()
	assert.Equal(t, "1.0", config.Version)
	assert.True(t, config.IsAuto())
	assert.NotNil(t, config.Endpoints)
	assert.NotNil(t, config.Log)
}
