package config

import (
	"time"

	"github.com/mauv0809/match-ledger/internal/rating"
)

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	JWTSecret     string
	Slack         SlackConfig
	Turso         TursoConfig
	ProjectID     string
	Redis         RedisConfig
	CORSOrigins   []string
	Rating        rating.Config
}
type SlackConfig struct {
	Token     string
	ChannelID string
	// DryRun logs Slack messages instead of posting them.
	DryRun bool
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}
