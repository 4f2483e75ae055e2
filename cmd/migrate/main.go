package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/charmverse/token-gate/internal/config"
	"github.com/charmverse/token-gate/internal/repository/postgres"
)

func main() {
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Msg("Running database migrations")

	if err := postgres.RunMigrations(cfg.Database.DSN(), *source); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
