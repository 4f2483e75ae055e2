package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/charmverse/token-gate/internal/api/handler"
	custommiddleware "github.com/charmverse/token-gate/internal/api/middleware"
	"github.com/charmverse/token-gate/internal/chain"
	"github.com/charmverse/token-gate/internal/config"
	"github.com/charmverse/token-gate/internal/eligibility"
	"github.com/charmverse/token-gate/internal/notion"
	"github.com/charmverse/token-gate/internal/poap"
	"github.com/charmverse/token-gate/internal/repository/postgres"
	"github.com/charmverse/token-gate/internal/repository/redis"
	"github.com/charmverse/token-gate/internal/security"
	"github.com/charmverse/token-gate/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	// Initialize repositories
	gateRepo := postgres.NewGateRepository(db)
	lockRepo := postgres.NewLockRepository(db)
	linkRepo := postgres.NewWalletLinkRepository(db)

	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Gate.RateLimit.RequestsPerMinute,
		cfg.Gate.RateLimit.Burst,
	)
	contractCache := redis.NewContractCache(redisClient)

	// Register one RPC client per configured chain
	registry := chain.NewRegistry(cfg.Chains)
	clients := chain.NewClients()
	for _, cc := range cfg.Chains {
		if cc.RPCURL == "" {
			log.Warn().Int64("chain_id", cc.ID).Str("chain", cc.Name).Msg("no RPC URL configured, chain disabled")
			continue
		}
		client, err := chain.Dial(context.Background(), cc.ID, cc.RPCURL, cfg.Gate.ChainTimeout)
		if err != nil {
			log.Error().Err(err).Int64("chain_id", cc.ID).Str("chain", cc.Name).Msg("failed to dial chain RPC")
			continue
		}
		log.Info().Int64("chain_id", cc.ID).Str("chain", cc.Name).Msg("registered chain RPC client")
		clients.Register(client)
	}

	poapClient := poap.NewClient(cfg.POAP.APIURL, cfg.POAP.Timeout)
	notionClient := notion.NewClient(cfg.Notion.APIURL, cfg.Notion.APIKey, cfg.Notion.Timeout)

	checker := eligibility.NewChecker(clients, poapClient)

	// Initialize services
	gateService := service.NewGateService(gateRepo, lockRepo, clients, registry, contractCache)
	connectService := service.NewConnectService(gateService, linkRepo, checker, notionClient)

	// Initialize handlers
	gateHandler := handler.NewGateHandler(gateService, cfg.Gate.CookieDomain)
	connectHandler := handler.NewConnectHandler(connectService, cfg.Gate.CookieDomain)
	blockchainHandler := handler.NewBlockchainHandler(gateService, registry, poapClient)

	authMiddleware := custommiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := custommiddleware.NewRateLimitMiddleware(rateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		// Public gate lookup
		r.Get("/gate", gateHandler.GetByDomain)
		r.Get("/gate/lockTypes", gateHandler.ListLockTypes)

		// Notion account resolution and wallet linking
		r.Route("/notion", func(r chi.Router) {
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/userByEmail", connectHandler.UserByEmail)
			r.Get("/connect", connectHandler.Status)
			r.Post("/connect", connectHandler.Link)
			r.Delete("/connect", connectHandler.Unlink)
		})

		// Chain-derived lookups for the lock form
		r.Route("/blockchain", func(r chi.Router) {
			r.Get("/getContract", blockchainHandler.GetContract)
			r.Get("/getPOAPEvents", blockchainHandler.GetPOAPEvents)
			r.Get("/chains", blockchainHandler.ListChains)
		})

		// Gate and lock administration
		r.Route("/settings", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/", gateHandler.Create)

			r.Route("/{gateID}", func(r chi.Router) {
				r.Patch("/", gateHandler.Update)
				r.Delete("/", gateHandler.Delete)

				r.Put("/locks", gateHandler.UpsertLock)
				r.Delete("/locks/{lockID}", gateHandler.DeleteLock)
			})
		})
	})

	return r
}
