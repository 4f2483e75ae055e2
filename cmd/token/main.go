package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/charmverse/token-gate/internal/config"
	"github.com/charmverse/token-gate/internal/security"
)

// Mints an admin access token for the settings API. Admin identity lives in
// the external admin system; this tool signs with the shared JWT secret.
func main() {
	email := flag.String("email", "", "admin email")
	domains := flag.String("domains", "", "comma-separated Notion space domains the token may configure")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to the configured access token TTL")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *email == "" || *domains == "" {
		log.Fatal().Msg("both -email and -domains are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not configured")
	}

	tokenTTL := cfg.Auth.AccessTokenTTL
	if *ttl > 0 {
		tokenTTL = *ttl
	}

	manager := security.NewJWTManager(cfg.Auth.JWTSecret, tokenTTL)
	token, err := manager.GenerateAccessToken(uuid.New(), *email, strings.Split(*domains, ","))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	log.Info().
		Str("email", *email).
		Str("expires_in", tokenTTL.String()).
		Msg("Minted admin access token")
	fmt.Println(token)
}
