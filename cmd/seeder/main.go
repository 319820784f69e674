package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/match-ledger/internal/club"
	"github.com/mauv0809/match-ledger/internal/database"
	"github.com/mauv0809/match-ledger/internal/rating"
	"gopkg.in/yaml.v3"
)

// Roster is the seed file layout.
type Roster struct {
	Clubs   []RosterClub    `yaml:"clubs"`
	Players []rating.Player `yaml:"players"`
}

type RosterClub struct {
	club.Club `yaml:",inline"`

	Members []RosterMember `yaml:"members"`
}

type RosterMember struct {
	UserID string    `yaml:"user_id"`
	Role   club.Role `yaml:"role"`
}

func loadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roster %s: %w", path, err)
	}
	for _, c := range r.Clubs {
		if c.ID == "" {
			return nil, fmt.Errorf("club without id in %s", path)
		}
		for _, m := range c.Members {
			if m.UserID == "" || !m.Role.Valid() {
				return nil, fmt.Errorf("club %s: invalid member %q with role %q", c.ID, m.UserID, m.Role)
			}
		}
	}
	return &r, nil
}

func seed(ctx context.Context, db *sql.DB, r *Roster) error {
	clubs := club.New(db)
	for _, c := range r.Clubs {
		if err := clubs.UpsertClub(ctx, c.Club); err != nil {
			return err
		}
		for _, m := range c.Members {
			if err := clubs.AddMember(ctx, c.ID, m.UserID, m.Role); err != nil {
				return err
			}
		}
		log.Info("Seeded club", "club", c.ID, "members", len(c.Members))
	}

	ratings := rating.NewStore()
	return database.WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, p := range r.Players {
			if err := ratings.UpsertPlayer(ctx, tx, p); err != nil {
				return fmt.Errorf("player %s: %w", p.ID, err)
			}
		}
		log.Info("Seeded players", "count", len(r.Players))
		return nil
	})
}

func main() {
	log.Info("Starting database seeder...")
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		log.Fatal("Error: Required environment variable DB_NAME is not set.")
	}
	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "./migrations"
	}

	rosterPath := os.Getenv("ROSTER_FILE")
	if rosterPath == "" {
		rosterPath = "roster.yaml"
	}
	roster, err := loadRoster(rosterPath)
	if err != nil {
		log.Fatal("Failed to load roster", "error", err)
	}

	db, teardown, err := database.InitDB(dbName, os.Getenv("TURSO_PRIMARY_URL"), os.Getenv("TURSO_AUTH_TOKEN"), migrationsDir)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	defer teardown()

	if err := seed(context.Background(), db, roster); err != nil {
		log.Error("Seeding failed", "error", err)
		return
	}
	log.Info("Seeding complete.")
}
