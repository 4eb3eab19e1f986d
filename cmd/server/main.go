// Command server runs the browser terminal service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agusmakmun/vmwebsocket/internal/cache"
	"github.com/agusmakmun/vmwebsocket/internal/config"
	"github.com/agusmakmun/vmwebsocket/internal/health"
	"github.com/agusmakmun/vmwebsocket/internal/logging"
	"github.com/agusmakmun/vmwebsocket/internal/server"
	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
)

func main() {
	cfg := config.LoadOrDefault()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing failures degrade to an uninstrumented process, never a dead one.
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Exporter:    cfg.Tracing.Exporter,
	}, logger.Logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without it", zap.Error(err))
	}

	store := cache.Store(cache.NewLRU(cache.Config{
		Size: cfg.Cache.Size,
		TTL:  cfg.Cache.TTL,
	}))
	if cfg.Tracing.Enabled {
		store = cache.Traced("default", store, nil)
	}

	srv := server.New(cfg, store, logger)

	go health.NewPoller(cfg.Health.URL, cfg.Health.Interval, logger).Run(ctx)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Close(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("trace flush error", zap.Error(err))
	}
}
