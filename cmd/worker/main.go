// Package main is the entry point for the glasserp background worker.
// It runs the reminder and cash report scheduler, reconciles vendor payouts
// and redelivers parked events.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"glasserp/internal/app"
	"glasserp/internal/config"
	"glasserp/internal/infrastructure/storage/postgres"
	"glasserp/pkg/logger"
)

const (
	outboxBatchSize  = 100
	outboxRetention  = 7 * 24 * time.Hour
	cleanupInterval  = time.Hour
	reconcileTimeout = 2 * time.Minute
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting glasserp worker")

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()

	worker := NewWorker(a, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.Scheduler(holderName()).Run(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(ctx, cfg.WorkerInterval)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the polling loops that are not calendar scheduled.
type Worker struct {
	app         *app.App
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	log         *logger.Logger
}

// NewWorker creates a worker over the assembled application.
func NewWorker(a *app.App, log *logger.Logger) *Worker {
	idem := a.Idempotency
	if idem == nil {
		idem = postgres.NewIdempotencyStore(a.TxManager, 24*time.Hour)
	}
	return &Worker{
		app:         a,
		relay:       a.OutboxRelay(outboxBatchSize),
		idempotency: idem,
		log:         log.WithComponent("worker"),
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
			w.reconcilePayouts(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox batch failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("redelivered parked events", "count", n)
	}
}

func (w *Worker) reconcilePayouts(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	n, err := w.app.VendorPayments.Reconcile(ctx)
	if err != nil {
		w.log.Errorw("payout reconciliation failed", "error", err)
	}
	if n > 0 {
		w.log.Infow("vendor payouts settled", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	postgres.LogPoolStats(ctx, w.app.Pool.Unwrap())

	if n, err := w.app.Auth.Cleanup(ctx); err != nil {
		w.log.Warnw("auth cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("removed expired OTPs and reset tokens", "count", n)
	}

	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Warnw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, outboxRetention); err != nil {
		w.log.Warnw("outbox purge failed", "error", err)
	} else if n > 0 {
		w.log.Infow("purged delivered outbox messages", "count", n)
	}
}

func holderName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
