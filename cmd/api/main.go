package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"contentgate/api/internal/cache"
	"contentgate/api/internal/config"
	"contentgate/api/internal/database"
	"contentgate/api/internal/entitlement"
	"contentgate/api/internal/gateway"
	"contentgate/api/internal/handlers"
	"contentgate/api/internal/jobs"
	"contentgate/api/internal/log"
	"contentgate/api/internal/middleware"
	"contentgate/api/internal/queue"
	"contentgate/api/internal/repository"
	"contentgate/api/internal/server"
	"contentgate/api/internal/service"
	"contentgate/api/internal/storage"
	"contentgate/api/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	repos := repository.NewRepositories(dbPool)
	transactor := repository.NewPostgresTransactor(dbPool)

	var credentialStore vault.Store
	switch cfg.Vault.Backend {
	case "redis":
		credentialStore = vault.NewRedisStore(redisClient, cfg.Vault.RedisKeyPrefix)
	default:
		credentialStore = vault.NewPostgresStore(dbPool)
	}
	credentials := vault.New(credentialStore, vault.Config{
		OTPTTL:   cfg.Vault.OTPTTL,
		TokenTTL: cfg.Vault.TokenTTL,
		Pepper:   cfg.Security.CredentialPepper,
	})

	var (
		payments gateway.Gateway
		webhooks handlers.WebhookParser
	)
	switch cfg.Payments.Provider {
	case "stripe":
		stripeGateway := gateway.NewStripe(gateway.StripeConfig{
			SecretKey:     cfg.Payments.StripeSecretKey,
			WebhookSecret: cfg.Payments.StripeWebhookSecret,
			URL:           cfg.Payments.StripeURL,
		})
		payments = stripeGateway
		webhooks = stripeGateway
	default:
		logger.Warn().Msg("sandbox payment provider in use")
		payments = gateway.NewSandbox()
	}
	payments = gateway.WithTimeout(payments, cfg.Payments.Timeout)

	producer := queue.NewProducer(redisClient, cfg.Queue.Stream, cfg.Queue.MaxLen)

	authService := service.NewAuthService(repos.Accounts, repos.Sessions, cfg.Security, logger)
	identityService := service.NewIdentityService(service.IdentityDeps{
		Accounts: repos.Accounts,
		Sessions: repos.Sessions,
		Vault:    credentials,
		Auth:     authService,
		Attempts: cache.NewLimiter(redisClient, "otp-attempts", cfg.Vault.OTPAttempts, cfg.Vault.OTPTTL),
		Resends:  cache.NewLimiter(redisClient, "otp-resends", cfg.Vault.ResendLimit, cfg.Vault.ResendWindow),
		Notifier: service.NewQueueNotifier(producer),
		Logger:   logger,
	})
	resolver := entitlement.NewResolver(service.NewEntitlementFacts(repos), time.Now)
	contentService := service.NewContentService(repos.Content, resolver, objectStore, cfg.Content)
	ledgerService := service.NewLedgerService(service.LedgerDeps{
		Repos:      repos,
		Transactor: transactor,
		Gateway:    payments,
		Logger:     logger,
	})

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Logger:            logger,
		Environment:       cfg.Environment,
		Auth:              authService,
		Identity:          identityService,
		Content:           contentService,
		Ledger:            ledgerService,
		Webhooks:          webhooks,
		CallbackSignature: middleware.Signature(cfg.Security, redisClient),
		Checks: map[string]handlers.HealthCheck{
			"postgres": dbPool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Jobs, ledgerService, credentials, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop(5 * time.Second)
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
