/*
main.go - Application entry point

PURPOSE:
  Starts the leave management server. Handles configuration, dependency
  wiring and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Open the SQLite store (migrates on open)
  3. Build calendar engine, ledger and leave manager
  4. Configure the HTTP router
  5. Serve until SIGINT/SIGTERM, then drain (30s timeout)

COMMAND-LINE FLAGS:
  -config  Path to conges.yaml (optional; env CONGES_* also works)
  -port    Override the configured HTTP port
  -db      Override the configured database path
           Use ":memory:" for an in-memory database

EXAMPLES:
  ./server -db="./data/conges.db"
  CONGES_HOLIDAY_COUNTRY=FR ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sigrh/conges/api"
	"github.com/sigrh/conges/calendar"
	"github.com/sigrh/conges/config"
	"github.com/sigrh/conges/conges"
	"github.com/sigrh/conges/docgen"
	"github.com/sigrh/conges/ledger"
	"github.com/sigrh/conges/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to conges.yaml")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DatabasePath).Msg("failed to open database")
	}
	defer store.Close()

	cal := calendar.NewEngine(cfg.HolidayCountry, store, log.With().Str("component", "calendar").Logger())
	manager := conges.NewManager(store, cal, cfg.RetentionYears,
		log.With().Str("component", "conges").Logger())
	l := ledger.New(store, store)
	docs := docgen.NewGenerator(cfg.DecisionsDir, log.With().Str("component", "docgen").Logger())

	handler := api.NewHandler(manager, l, store, docs, cfg.RetentionYears,
		log.With().Str("component", "api").Logger())
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("country", cfg.HolidayCountry).
			Int("retention_years", cfg.RetentionYears).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
