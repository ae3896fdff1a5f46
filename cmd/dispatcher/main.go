package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	casesadapters "caseflow_backend/internal/cases/adapters"
	casesrepo "caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/dispatcher"
	"caseflow_backend/internal/notification"
	"caseflow_backend/platform/config"
	"caseflow_backend/platform/db"
	"caseflow_backend/platform/logger"
	"caseflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting dispatcher", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	val := validator.New()
	notificationModule := notification.NewModule(pool, cfg, val, log)
	notifier := casesadapters.NewNotifierAdapter(notificationModule.Service())

	reminderDispatcher := dispatcher.New(casesrepo.New(pool), notifier, log, cfg.GetDispatcherBatchSize())

	client, err := dispatcher.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatcher client", "error", err)
		panic("failed to initialize dispatcher client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	ticker := dispatcher.NewTicker(client, cfg.GetDispatcherInterval(), log)

	worker, err := dispatcher.NewWorker(cfg, reminderDispatcher, log)
	if err != nil {
		log.Error("failed to initialize dispatcher worker", "error", err)
		panic("failed to initialize dispatcher worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ticker.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("dispatcher exited", "error", err)
		os.Exit(1)
	}
	log.Info("dispatcher shut down")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
