package app

import (
	"context"
	"sync"

	"github.com/mselser95/parlay-relay/internal/registry"
	"github.com/mselser95/parlay-relay/internal/relay"
	"github.com/mselser95/parlay-relay/internal/storage"
	"github.com/mselser95/parlay-relay/pkg/config"
	"github.com/mselser95/parlay-relay/pkg/healthprobe"
	"github.com/mselser95/parlay-relay/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	registry      *registry.Registry
	hub           *relay.Hub
	storage       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
