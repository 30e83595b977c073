// Knowledge worker - scheduled news ingestion, summarization and quote tracking.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/leeaandrob/knowledgeworker/internal/api"
	"github.com/leeaandrob/knowledgeworker/internal/app"
	"github.com/leeaandrob/knowledgeworker/internal/config"
	"github.com/leeaandrob/knowledgeworker/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("Knowledge worker - starting")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Initialize storage and pipelines
	components, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipelines")
	}
	defer components.Store.Close(ctx)

	// Initialize scheduler
	sched := scheduler.NewScheduler(scheduler.WithJobTimeout(cfg.JobTimeout))
	if err := app.RegisterJobs(sched, components.Pipeline, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	log.Info().Msg("Scheduler initialized")

	// Initialize API server
	handlers := api.NewHandlers(components.Pipeline, components.Store, components.Reducer, cfg.WordBudget)
	apiServer := api.NewServer(handlers, sched, api.Config{
		Addr:           cfg.HTTPAddr,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.JobTimeout,
	})

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start all services
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	sched.Start()

	log.Info().
		Str("api", cfg.HTTPAddr).
		Str("summarizer", cfg.Summarizer).
		Dur("news_interval", cfg.NewsInterval).
		Msg("Knowledge worker running")

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown error")
	}
	sched.Stop()

	log.Info().Msg("Knowledge worker stopped")
}
