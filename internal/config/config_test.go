package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"DB_NAME":    "ledger.db",
		"PORT":       "8080",
		"JWT_SECRET": "s3cret",
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "ledger.db", cfg.DBName)
	assert.Equal(t, "./migrations", cfg.MigrationsDir)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.Slack.DryRun)
	assert.Equal(t, 0.10, cfg.Rating.KFactors[ledger.Format6Game])
}

func TestFromEnvMissingRequired(t *testing.T) {
	env := baseEnv()
	delete(env, "JWT_SECRET")
	delete(env, "PORT")
	_, err := FromEnv(lookupFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestFromEnvOptional(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rating.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scale: 2.0\nk_factors:\n  tb7: 0.02\n"), 0o600))

	env := baseEnv()
	env["CORS_ORIGINS"] = "https://app.example.com, https://admin.example.com,"
	env["LOCK_TTL"] = "5s"
	env["REDIS_URL"] = "redis://localhost:6379/0"
	env["RATING_CONFIG"] = path
	env["SLACK_DRY_RUN"] = "true"

	cfg, err := FromEnv(lookupFrom(env))
	require.NoError(t, err)
	assert.True(t, cfg.Slack.DryRun)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, 2.0, cfg.Rating.Scale)
	assert.Equal(t, 0.02, cfg.Rating.KFactors[ledger.FormatTB7])
	assert.Equal(t, 0.10, cfg.Rating.KFactors[ledger.Format6Game])
}

func TestFromEnvInvalid(t *testing.T) {
	env := baseEnv()
	env["LOCK_TTL"] = "soon"
	_, err := FromEnv(lookupFrom(env))
	assert.Error(t, err)

	env = baseEnv()
	env["SLACK_BOT_TOKEN"] = "xoxb-1"
	_, err = FromEnv(lookupFrom(env))
	assert.Error(t, err)

	env = baseEnv()
	env["SLACK_DRY_RUN"] = "maybe"
	_, err = FromEnv(lookupFrom(env))
	assert.Error(t, err)

	env = baseEnv()
	env["RATING_CONFIG"] = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = FromEnv(lookupFrom(env))
	assert.Error(t, err)
}
