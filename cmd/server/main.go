// Package main is the entry point for the glasserp API server.
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

	"glasserp/internal/app"
	"glasserp/internal/config"
	v1 "glasserp/internal/infrastructure/http/v1"
	"glasserp/pkg/logger"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer logger.Sync()

	ctx := context.Background()
	log.Infow("starting glasserp server", "version", version, "env", cfg.AppEnv)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()
	log.Infow("dependencies ready",
		"redis", a.Redis != nil,
		"idempotency", a.Idempotency != nil,
		"timezone", cfg.Timezone,
	)

	router, err := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		Metrics:      a.Metrics,
		Calendar:     a.Calendar,
		JWTValidator: a.JWT,
		Idempotency:  a.Idempotency,
		CORSOrigins:  cfg.CORSOrigins,
		Version:      version,
		HealthChecks: a.HealthChecks(),
		Services:     a.Services(),
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
