package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/credence/internal/api"
	"github.com/Harshitk-cp/credence/internal/backend"
	"github.com/Harshitk-cp/credence/internal/buildconfig"
	"github.com/Harshitk-cp/credence/internal/config"
	"github.com/Harshitk-cp/credence/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := backend.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, config.Tracing(), buildconfig.Version(), logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	be, err := backend.Open(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open backend", zap.Error(err))
	}
	defer be.Close(context.Background())

	if config.AutoMigrate() {
		applied, err := be.Migrate(ctx)
		if err != nil {
			logger.Fatal("failed to migrate", zap.Error(err))
		}
		logger.Info("schema ready", zap.Strings("applied", applied))
	}

	svcs := backend.NewServices(be.Stores, be.Locker, backend.NewLLMClient(logger), backend.NewExtractor(logger), logger)

	if config.BackfillOnStart() {
		res, err := svcs.Backfill.Run(ctx, false)
		if err != nil {
			logger.Fatal("base prior backfill failed", zap.Error(err))
		}
		logger.Info("base prior backfill complete", zap.Int("scanned", res.Scanned), zap.Int("written", res.Written))
	}

	apiKeys := config.APIKeys()
	if len(apiKeys) == 0 {
		logger.Warn("API_KEYS is empty; /v1 is unauthenticated")
	}
	app := api.NewApp(ctx, svcs, be, api.Options{
		APIKeys:        apiKeys,
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}, logger)

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("store", be.Name),
			zap.String("version", buildconfig.Version()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
