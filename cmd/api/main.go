package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"campaignforge/internal/adapter/repo"
	"campaignforge/internal/genclient"
	"campaignforge/internal/http/handlers"
	"campaignforge/internal/http/httpapi"
	"campaignforge/internal/infra"
	"campaignforge/internal/infra/credentials"
	"campaignforge/internal/orchestrator"
	"campaignforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	// API key from env, with a database-backed fallback.
	apiKey := strings.TrimSpace(cfg.GenerationAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.GenerationAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load generation api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("generation api key missing, backend calls will be unauthenticated")
	}

	client, err := genclient.NewClient(genclient.Options{
		BaseURL: cfg.GenerationBaseURL,
		APIKey:  apiKey,
		Timeout: cfg.GenerationTimeout,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure generation client")
	}

	cache, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure artifact cache")
	}

	posts := repo.NewPostRepository(runner)
	recon := orchestrator.NewReconciler(posts, &orchestrator.HTTPProber{Client: &http.Client{Timeout: 10 * time.Second}}, logger)
	orch := orchestrator.New(client, posts, recon, logger, orchestrator.Options{
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.PollMaxAttempts,
		SubmitWidth:     cfg.SubmitWidth,
		SubmitPause:     cfg.SubmitPause,
	})
	defer orch.Close()

	app := handlers.NewApp(cfg, logger, orch, posts, cache)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	logger.Info().Msg("server stopped")
}
