package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/api"
	"github.com/urmzd/lanscout/pkg/app"
	"github.com/urmzd/lanscout/pkg/config"
	"github.com/urmzd/lanscout/pkg/schema"

	_ "github.com/urmzd/lanscout/docs"
)

// @title           lanscout API
// @version         1.0
// @description     REST API for discovering and tracking devices on the local network

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML configuration file")
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/lanscout/lanscout.db)")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.Default().SetupLogging()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *listen != "" {
		cfg.API.Listen = *listen
	}
	cfg.SetupLogging()

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start discovery service")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to shut down cleanly")
		}
	}()

	if err := a.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start background jobs")
		return
	}

	router := api.NewRouter(a.Service, schema.NewValidator(), a.Prometheus)
	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down HTTP server")
		}
	}()

	log.Info().Str("address", cfg.API.Listen).Msg("Starting API server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
	}
}
