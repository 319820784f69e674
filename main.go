package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/auth"
	"github.com/mauv0809/match-ledger/internal/club"
	"github.com/mauv0809/match-ledger/internal/config"
	"github.com/mauv0809/match-ledger/internal/database"
	server "github.com/mauv0809/match-ledger/internal/http"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/lock"
	"github.com/mauv0809/match-ledger/internal/metrics"
	"github.com/mauv0809/match-ledger/internal/notifier"
	"github.com/mauv0809/match-ledger/internal/notifier/slack"
	"github.com/mauv0809/match-ledger/internal/pubsub"
	"github.com/mauv0809/match-ledger/internal/rating"
	"github.com/mauv0809/match-ledger/internal/workflow"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	ctx := context.Background()

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	clubStore := club.New(db)
	ratingStore := rating.NewStore()
	bootstrap, err := rating.NewBootstrap(cfg.Rating.Bootstrap)
	if err != nil {
		log.Fatalf("Invalid rating bootstrap: %s", err)
	}
	adjuster := rating.NewAdjuster(ratingStore, rating.NewEngine(cfg.Rating), bootstrap)

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.URL != "" {
		redisLock, err := lock.NewRedisFromURL(cfg.Redis.URL, cfg.Redis.LockTTL)
		if err != nil {
			log.Fatalf("Failed to configure redis lock: %s", err)
		}
		if err := redisLock.Ping(ctx); err != nil {
			log.Fatalf("Failed to reach redis: %s", err)
		}
		defer redisLock.Close()
		locker = redisLock
		log.Info("Using redis match lock", "ttl", cfg.Redis.LockTTL)
	}

	notifiers := []notifier.Notifier{notifier.LogNotifier{}}
	if cfg.Slack.Token != "" || cfg.Slack.DryRun {
		slackNotifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc).WithDryRun(cfg.Slack.DryRun)
		notifiers = append(notifiers, slackNotifier)
	}
	dispatcher := notifier.NewDispatcher(notifiers...)

	var publisher workflow.Publisher
	var pubsubClient pubsub.PubSubClient
	var localBus *notifier.LocalBus
	if cfg.ProjectID != "" {
		pubsubClient, err = pubsub.New(ctx, cfg.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
		defer pubsubClient.Close()
		publisher = notifier.NewPubSubBus(pubsubClient)
		log.Info("Publishing match events to pubsub", "project", cfg.ProjectID)
	} else {
		localBus = notifier.NewLocalBus(dispatcher)
		publisher = localBus
		log.Info("No GCP project configured, dispatching match events in process")
	}

	svc := workflow.New(workflow.Deps{
		DB:                  db,
		Ledger:              ledger.New(),
		Ratings:             ratingStore,
		Adjuster:            adjuster,
		Clubs:               clubStore,
		Locker:              locker,
		Publisher:           publisher,
		Metrics:             metricsSvc,
		MaxFinalizeAttempts: cfg.Rating.MaxFinalizeAttempts,
	})

	s := server.NewServer(server.Options{
		Workflow:       svc,
		MetricsHandler: metricsHandler,
		Validator:      auth.NewJWTValidator(cfg.JWTSecret),
		PubSub:         pubsubClient,
		Dispatcher:     dispatcher,
		Ping:           db.PingContext,
		CORSOrigins:    cfg.CORSOrigins,
	})

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	if localBus != nil {
		log.Info("Waiting for in-flight notifications")
		localBus.Wait()
	}
	log.Info("Server process shutting down")
}
