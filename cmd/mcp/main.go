package main

import (
	"context"
	"flag"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/app"
	"github.com/urmzd/lanscout/pkg/config"
	lanscoutmcp "github.com/urmzd/lanscout/pkg/mcp"
	"github.com/urmzd/lanscout/pkg/schema"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML configuration file")
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/lanscout/lanscout.db)")
	flag.Parse()

	// Logging must go to stderr; stdout is the MCP transport
	cfg, err := config.Load(*configPath)
	if err != nil {
		config.Default().SetupLogging()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	cfg.SetupLogging()

	a, err := app.New(context.Background(), cfg)
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

	mcpServer := lanscoutmcp.NewServer(a.Service, schema.NewValidator())

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
