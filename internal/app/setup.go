package app

import (
	"context"
	"fmt"

	"github.com/mselser95/parlay-relay/internal/registry"
	"github.com/mselser95/parlay-relay/internal/relay"
	"github.com/mselser95/parlay-relay/internal/storage"
	"github.com/mselser95/parlay-relay/pkg/config"
	"github.com/mselser95/parlay-relay/pkg/healthprobe"
	"github.com/mselser95/parlay-relay/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	auctionRegistry := setupRegistry(cfg, logger)

	bidStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	hub, err := setupHub(cfg, logger, auctionRegistry, bidStorage)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup hub: %w", err)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, hub, auctionRegistry)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		registry:      auctionRegistry,
		hub:           hub,
		storage:       bidStorage,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupRegistry(cfg *config.Config, logger *zap.Logger) *registry.Registry {
	return registry.New(registry.Config{
		TTL:           cfg.AuctionTTL,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupHub(cfg *config.Config, logger *zap.Logger, reg *registry.Registry, store storage.Storage) (*relay.Hub, error) {
	return relay.New(relay.Config{
		Registry: reg,
		Storage:  store,
		DedupTTL: cfg.DedupTTL,
		Logger:   logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	hub *relay.Hub,
	reg *registry.Registry,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Hub:           hub,
		Registry:      reg,
	})
}
