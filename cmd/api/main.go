package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nawabsahab16/ancestral-ai/internal/adapter/repo"
	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/http/handlers"
	httpapi "github.com/nawabsahab16/ancestral-ai/internal/http/httpapi"
	"github.com/nawabsahab16/ancestral-ai/internal/imagegen"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/infra/credentials"
	"github.com/nawabsahab16/ancestral-ai/internal/pipeline"
	"github.com/nawabsahab16/ancestral-ai/internal/predict"
	"github.com/nawabsahab16/ancestral-ai/internal/preview"
	"github.com/nawabsahab16/ancestral-ai/internal/providers/replicate"
	"github.com/nawabsahab16/ancestral-ai/internal/storage"
	"github.com/nawabsahab16/ancestral-ai/internal/storage/inline"
	"github.com/nawabsahab16/ancestral-ai/internal/upload"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	checks := map[string]handlers.HealthChecker{}

	// Audit store and provider credentials are optional.
	var predictions domain.PredictionRepository = repo.NopPredictionRepository{}
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	if dbpool != nil {
		defer dbpool.Close()
		runner := infra.NewSQLRunner(dbpool, logger)

		predRepo := repo.NewPredictionRepository(runner)
		if err := predRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure predictions schema")
		}
		predictions = predRepo

		creds := credentials.NewStore(runner)
		if err := creds.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure credentials schema")
		}
		if cfg.ReplicateAPIToken == "" {
			if token, err := creds.ReplicateToken(ctx); err == nil {
				cfg.ReplicateAPIToken = token
			}
		}
		if cfg.StorageAPIKey == "" {
			if key, err := creds.StorageAPIKey(ctx); err == nil {
				cfg.StorageAPIKey = key
			}
		}
		checks["database"] = func(ctx context.Context) error { return dbpool.Ping(ctx) }
	} else {
		logger.Warn().Msg("DATABASE_URL not set; prediction audit records are not persisted")
	}

	store, storageDir, err := storage.FromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise storage")
	}

	cache, redisClient, err := inline.FromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise inline cache")
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	replicateClient, err := replicate.NewClient(replicate.Options{
		APIToken:     cfg.ReplicateAPIToken,
		BaseURL:      cfg.ReplicateBaseURL,
		PollInterval: cfg.ReplicatePollInterval,
		MaxPolls:     cfg.ReplicateMaxPolls,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise replicate client")
	}
	if !replicateClient.HasCredentials() {
		logger.Warn().Msg("REPLICATE_API_TOKEN not set; inference requests will fail")
	}
	generator := imagegen.NewAncestorGenerator(replicateClient, imagegen.ModelConfig{
		Primary:   cfg.ReplicateModel,
		Secondary: cfg.ReplicateFallbackModel,
	}, logger)

	loader := imaging.NewLoader(&http.Client{Timeout: 30 * time.Second})
	requester := predict.NewRequester(
		predict.NewFunctionClient(cfg.PredictFunctionURL, cfg.PredictFunctionAPIKey, nil),
		imaging.NewRasterCompositor(loader),
		logger,
	)
	orchestrator := pipeline.NewOrchestrator(
		upload.New(store, cache, logger),
		requester,
		pipeline.Options{MaxRetries: cfg.PipelineMaxRetries, RetryDelay: cfg.PipelineRetryDelay},
		logger,
	)
	previews := preview.NewRegistry("/v1/previews")
	sessions := pipeline.NewManager(orchestrator, previews, logger)

	app := handlers.NewApp(cfg, logger, cfg.MaxConcurrentPredicts)
	app.Predictions = predictions
	app.Generator = generator
	app.Sessions = sessions
	app.Previews = previews
	app.Fetcher = loader
	app.Checks = checks

	router := httpapi.NewRouter(app, httpapi.Options{StorageDir: storageDir})
	server := infra.NewHTTPServer(cfg, router)

	expireCtx, stopExpire := context.WithCancel(ctx)
	defer stopExpire()
	go expireSessions(expireCtx, sessions, cfg.SessionTTL)

	go func() {
		logger.Info().Str("storage", cfg.StorageDriver).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	stopExpire()
	previews.ReleaseAll()
	logger.Info().Msg("server stopped")
}

// expireSessions drops sessions older than ttl on a fixed interval.
func expireSessions(ctx context.Context, sessions *pipeline.Manager, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Expire(ttl)
		}
	}
}
