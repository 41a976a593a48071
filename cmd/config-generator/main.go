// cmd/config-generator/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nginx-config-generator/internal/common/config"
	"nginx-config-generator/internal/common/logger"
	"nginx-config-generator/internal/common/observability"
	generateconfig "nginx-config-generator/internal/pipeline/generate-config"
	"nginx-config-generator/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting config generator...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability, log)
	defer obs.Shutdown()

	pipeline, err := generateconfig.NewHandler(generateconfig.HandlerOptions{
		AppConfig:     cfg,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("failed to create pipeline", zap.Error(err))
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var ready atomic.Bool
	router := server.NewRouter(server.Options{
		Pipeline: pipeline,
		Logger:   log,
		Ready:    ready.Load,
	})
	srv := server.New(cfg.Server, router)

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr()))
		if err := srv.Start(); err != nil {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	ready.Store(true)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Config generator stopped gracefully")
}
