package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/match-ledger/internal/rating"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds a Config from lookup. Missing required variables and
// malformed values are reported together.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	var missing []string
	// A helper function to get a required env var.
	getEnv := func(key string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		missing = append(missing, key)
		return ""
	}
	getOptional := func(key, fallback string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: getOptional("MIGRATIONS_DIR", "./migrations"),
		Port:          getEnv("PORT"),
		JWTSecret:     getEnv("JWT_SECRET"),
		Slack: SlackConfig{
			Token:     getOptional("SLACK_BOT_TOKEN", ""),
			ChannelID: getOptional("SLACK_CHANNEL_ID", ""),
		},
		Turso: TursoConfig{
			PrimaryURL: getOptional("TURSO_PRIMARY_URL", ""),
			AuthToken:  getOptional("TURSO_AUTH_TOKEN", ""),
		},
		ProjectID: getOptional("GCP_PROJECT", ""),
		Redis: RedisConfig{
			URL: getOptional("REDIS_URL", ""),
		},
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	ttl, err := time.ParseDuration(getOptional("LOCK_TTL", "30s"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("LOCK_TTL must be a positive duration")
	}
	cfg.Redis.LockTTL = ttl

	if origins := getOptional("CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	cfg.Slack.DryRun, err = strconv.ParseBool(getOptional("SLACK_DRY_RUN", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("SLACK_DRY_RUN must be a boolean")
	}

	if cfg.Slack.Token != "" && cfg.Slack.ChannelID == "" {
		return Config{}, fmt.Errorf("SLACK_CHANNEL_ID is required when SLACK_BOT_TOKEN is set")
	}

	cfg.Rating, err = rating.LoadConfig(getOptional("RATING_CONFIG", ""))
	if err != nil {
		return Config{}, fmt.Errorf("failed to load rating config: %w", err)
	}
	return cfg, nil
}
