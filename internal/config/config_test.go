package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
app:
  env: production
  port: 9090
  jwt:
    accessTTLMinutes: 15
    refreshTTLDays: 7
mongo:
  uri: mongodb://localhost:27017
  database: taskmanager
redis:
  addr: localhost:6379
security:
  passwordHashCost: 10
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "test-secret", cfg.App.JWT.AccessSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_PORT", "3000")
	t.Setenv("MONGO_DB", "other-db")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "5")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.App.Port)
	assert.Equal(t, "other-db", cfg.Mongo.Database)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(writeConfig(t, testYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_MissingMongoURI(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MONGO_URI", "")

	noMongo := `
app:
  env: development
`
	_, err := Load(writeConfig(t, noMongo))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	minimal := `
mongo:
  uri: mongodb://localhost:27017
`
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout())
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout())
	assert.Equal(t, 15, cfg.App.JWT.AccessTTLMinutes)
	assert.Equal(t, 7, cfg.App.JWT.RefreshTTLDays)
	assert.Equal(t, 60, cfg.Security.ResetTokenTTLMinutes)
	assert.Equal(t, 10*time.Second, cfg.Mongo.ConnectTimeout())
	assert.Equal(t, 5*time.Second, cfg.Redis.ConnectTimeout())
}
