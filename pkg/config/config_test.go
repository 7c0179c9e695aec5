package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SESSION_ENCRYPTION_KEY", "")
	t.Setenv("SSE_HEARTBEAT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "sqlite://service_portal.db", cfg.Database.URL)
	assert.Equal(t, "portal_session", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Server.SSEHeartbeat)
}

func TestLoad_PortPrecedence(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SERVER_PORT", "8000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_InvalidEncryptionKey(t *testing.T) {
	t.Setenv("SESSION_ENCRYPTION_KEY", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnsupportedDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://root@localhost/portal")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestDatabaseConfig_Source(t *testing.T) {
	tests := []struct {
		url    string
		driver string
		dsn    string
	}{
		{"sqlite://service_portal.db", DriverSQLite, "service_portal.db"},
		{"sqlite:///instance/service_portal.db", DriverSQLite, "instance/service_portal.db"},
		{"sqlite:////var/lib/portal.db", DriverSQLite, "/var/lib/portal.db"},
		{"portal.db", DriverSQLite, "portal.db"},
		{"postgres://u:p@db:5432/portal", DriverPostgres, "postgres://u:p@db:5432/portal"},
		{"postgresql://u:p@db:5432/portal", DriverPostgres, "postgresql://u:p@db:5432/portal"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := DatabaseConfig{URL: tt.url}
			driver, dsn, err := cfg.Source()
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portal.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 8081
sse_heartbeat = "10s"

[database]
url = "sqlite:///data/portal.db"

[telegram]
enabled = true
chat_id = -1001234567890
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SSE_HEARTBEAT", "")
	t.Setenv("TELEGRAM_ENABLED", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.SSEHeartbeat)
	assert.Equal(t, "sqlite:///data/portal.db", cfg.Database.URL)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, int64(-1001234567890), cfg.Telegram.ChatID)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfigFile(t, "[database]\nurl = \"sqlite://file.db\"\n"))
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/portal")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/portal", cfg.Database.URL)
}

func TestLoad_ConfigFileUnknownKey(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfigFile(t, "[server]\nprot = 80\n"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.prot")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))

	_, err := Load()
	assert.Error(t, err)
}
