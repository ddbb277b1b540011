package roomchat

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/putto11262002/roomchat/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no config.yaml or .env is picked up.
func inTempDir(t *testing.T) string {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	inTempDir(t)

	c, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "0.0.0.0", c.Hostname)
	assert.Equal(t, DevMode, c.Mode)
	assert.Equal(t, 24*time.Hour, c.Auth.TTL)
	assert.Len(t, c.Auth.Secret, 32)
	assert.Equal(t, kv.DriverSQLite, c.Storage.Driver)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.True(t, c.Bot.Enabled)
	assert.Equal(t, 30*time.Minute, c.Session.Idle)
	assert.Equal(t, time.Minute, c.Session.Sweep)
	assert.Equal(t, slog.LevelInfo, c.LogLevel())
}

func TestLoadConfigSources(t *testing.T) {
	dir := inTempDir(t)
	secret := base64.StdEncoding.EncodeToString([]byte("file secret"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(
		"port: 9000\nauth:\n  secret: "+secret+"\n  ttl: 30m\nstorage:\n  driver: redis\n  redis:\n    addr: cache:6379\n    db: 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o644))
	// godotenv sets the variable for the whole process
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })
	t.Setenv("PORT", "9100")
	t.Setenv("BOT_ENABLED", "false")
	t.Setenv("ALLOWEDORIGINS", "http://a.test,http://b.test")

	c, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	// the environment wins over the file
	assert.Equal(t, 9100, c.Port)
	assert.Equal(t, []byte("file secret"), []byte(c.Auth.Secret))
	assert.Equal(t, 30*time.Minute, c.Auth.TTL)
	assert.Equal(t, kv.Config{Driver: kv.DriverRedis, SQLiteFile: "./roomchat.db", RedisAddr: "cache:6379", RedisDB: 2}, c.StorageConfig())
	assert.Equal(t, slog.LevelDebug, c.LogLevel())
	assert.False(t, c.Bot.Enabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name      string
		configure func(*Config)
		want      string
	}{
		{name: "port", configure: func(c *Config) { c.Port = 70000 }, want: "port must be a valid port number"},
		{name: "mode", configure: func(c *Config) { c.Mode = "staging" }, want: "mode must be one of [dev prod]"},
		{name: "driver", configure: func(c *Config) { c.Storage.Driver = "etcd" }, want: "driver must be one of [sqlite redis memory]"},
		{name: "secret", configure: func(c *Config) { c.Auth.Secret = nil }, want: "secret is a required field"},
		{name: "sqlite file", configure: func(c *Config) {
			c.Storage.Driver = kv.DriverSQLite
			c.Storage.SQLite.File = ""
		}, want: "storage.sqlite.file is required for the sqlite driver"},
		{name: "redis addr", configure: func(c *Config) {
			c.Storage.Driver = kv.DriverRedis
			c.Storage.Redis.Addr = ""
		}, want: "storage.redis.addr is required for the redis driver"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := testConfig()
			tc.configure(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, FormatValidationErrors(err), tc.want)
		})
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, testConfig().Validate())
	})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	c := testConfig()
	c.Port = 0
	_, err := New(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port is a required field")
}
