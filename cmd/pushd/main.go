package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"device-push-backend/config"
	"device-push-backend/internal/api"
	"device-push-backend/internal/db"
	"device-push-backend/internal/gateway"
	"device-push-backend/internal/logging"
	"device-push-backend/internal/notification"
	"device-push-backend/internal/registry"
	"device-push-backend/internal/store"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	gw, err := gateway.New(ctx, cfg.Push, logger)
	if err != nil {
		logger.Fatal("failed to configure push gateways", zap.Error(err))
	}

	handler := api.NewHandler(
		registry.New(appStore, logger.Named("registry")),
		notification.NewDispatcher(appStore, gw, cfg.WorkerPool.Size, logger.Named("dispatcher")),
		appStore,
		logger,
	)

	router := api.NewRouter(handler, cfg.Server, logger.Named("http"))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	// In-flight sends finish and record their deliveries before exit.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Push.Timeout+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server gracefully stopped")
}
