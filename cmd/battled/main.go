package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/config"
	"github.com/lawnchairsociety/battleadvisor/internal/database"
	"github.com/lawnchairsociety/battleadvisor/internal/logger"
	"github.com/lawnchairsociety/battleadvisor/internal/server"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

// shutdownTimeout bounds how long in-flight requests may take to drain.
const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line flags
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	serverConfigFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	addr := flag.String("addr", "", "Listen address (overrides the config file, e.g. :8000)")
	unitsFile := flag.String("units", "", "Path to unit stats YAML file (overrides the config file)")
	dbFile := flag.String("db", "", "Path to SQLite battle database (overrides the config file)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(*loggingConfig)
	if err != nil {
		log.Printf("Failed to load logging config %s, using defaults: %v", *loggingConfig, err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Info("Starting " + server.ServiceName)

	serverCfg, err := config.LoadConfig(*serverConfigFile)
	if err != nil {
		logger.Warning("Failed to load server config, using defaults", "path", *serverConfigFile, "error", err)
	}
	if *addr != "" {
		serverCfg.HTTP.Addr = *addr
	}
	if *unitsFile != "" {
		serverCfg.UnitsFile = *unitsFile
	}
	if *dbFile != "" {
		serverCfg.Database.Driver = "sqlite"
		serverCfg.Database.SQLitePath = *dbFile
	}

	model := battle.DefaultModel
	if serverCfg.UnitsFile != "" {
		table, err := units.LoadTable(serverCfg.UnitsFile)
		if err != nil {
			log.Fatalf("Failed to load unit stats: %v", err)
		}
		model = battle.NewModel(table)
		logger.Info("Unit stats loaded", "path", serverCfg.UnitsFile)
	}

	// Initialize battle history database
	db, err := database.OpenWithConfig(database.FromServerConfig(serverCfg.Database))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.Info("Battle database initialized", "driver", db.Driver())

	switch {
	case !serverCfg.Feed.Enabled:
		logger.Info("Live battle feed disabled")
	case len(serverCfg.Feed.AllowedOrigins) == 0:
		logger.Info("Live battle feed CORS policy", "mode", "same-origin")
	case len(serverCfg.Feed.AllowedOrigins) == 1 && serverCfg.Feed.AllowedOrigins[0] == "*":
		logger.Warning("Live battle feed allows all origins (not recommended for production)")
	default:
		logger.Info("Live battle feed CORS policy", "allowed_origins", serverCfg.Feed.AllowedOrigins)
	}
	if serverCfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "keys", len(serverCfg.Auth.KeyHashes))
	}

	srv := server.NewServer(serverCfg, db, model)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	logger.Info("Battle Advisor running", "address", serverCfg.HTTP.Addr)
	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal or a listener failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
	case err := <-errChan:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
