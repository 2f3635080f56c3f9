package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/scrape-coordinator/internal/adapter/postgres"
	redis_adapter "github.com/user/scrape-coordinator/internal/adapter/redis"
	"github.com/user/scrape-coordinator/internal/auth"
	"github.com/user/scrape-coordinator/internal/delivery/http/handler"
	"github.com/user/scrape-coordinator/internal/delivery/http/router"
	"github.com/user/scrape-coordinator/internal/usecase"
	"github.com/user/scrape-coordinator/pkg/config"
	"github.com/user/scrape-coordinator/pkg/logger"
	"github.com/user/scrape-coordinator/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	slog.Info("Logger initialized", "level", cfg.LogLevel)

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	// --- Database Connections ---
	ctx := context.Background()

	// PostgreSQL
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Repositories ---
	jobRepo := postgres.NewJobRepo(dbpool)
	chunkRepo := postgres.NewChunkRepo(dbpool)
	scraperRepo := postgres.NewScraperRepo(dbpool)
	productRepo := postgres.NewProductRepo(dbpool)
	credentialRepo := postgres.NewCredentialRepo(dbpool)
	auditRepo := postgres.NewAuditRepo(dbpool)
	runnerRepo := redis_adapter.NewRunnerRepo(rdb)

	// --- Authentication chain ---
	// Fixed priority: API key, then HMAC, then the deprecated bearer path.
	validators := []auth.Validator{
		auth.NewAPIKeyValidator(credentialRepo),
		auth.NewHMACValidator([]byte(cfg.WebhookSecret)),
	}
	if cfg.IdentityUserInfoURL != "" {
		validators = append(validators,
			auth.NewBearerValidator(auth.NewIdentityProviderClient(cfg.IdentityUserInfoURL), credentialRepo))
	}
	authenticator := auth.NewAuthenticator(validators...)

	// --- Use Cases ---
	claimLease := time.Duration(cfg.ClaimLeaseMinutes) * time.Minute
	dispatcher := usecase.NewDispatcher(jobRepo, chunkRepo, scraperRepo, runnerRepo, claimLease)
	aggregator := usecase.NewAggregator(jobRepo, chunkRepo, productRepo, auditRepo, runnerRepo)
	admin := usecase.NewAdmin(jobRepo, chunkRepo, scraperRepo, productRepo, credentialRepo, runnerRepo, cfg.ChunkSize)
	reviewer := usecase.NewPipelineReviewer(productRepo)

	// --- Reclaim sweep ---
	sweeper := usecase.NewReclaimSweeper(chunkRepo, time.Duration(cfg.ReclaimSweepSeconds)*time.Second)
	go sweeper.Run(ctx)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(authenticator, dispatcher, aggregator, admin, reviewer)
	httpRouter := router.New(apiHandler, cfg.AdminToken)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}
}
