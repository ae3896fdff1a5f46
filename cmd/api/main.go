package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caseflow_backend/internal/cases"
	casesadapters "caseflow_backend/internal/cases/adapters"
	"caseflow_backend/internal/dispatcher"
	"caseflow_backend/internal/events"
	apphttp "caseflow_backend/internal/http"
	"caseflow_backend/internal/http/router"
	"caseflow_backend/internal/inventory"
	"caseflow_backend/internal/notification"
	"caseflow_backend/platform/ai/gemini"
	"caseflow_backend/platform/config"
	"caseflow_backend/platform/db"
	"caseflow_backend/platform/logger"
	"caseflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.NewModule(pool, cfg, val, log)
	inventoryModule := inventory.NewModule(pool, val)
	casesModule := cases.NewModule(pool, eventBus, val, log)

	notifier := casesadapters.NewNotifierAdapter(notificationModule.Service())
	casesModule.Service().SetNotifier(notifier)
	casesModule.Service().SetCatalogReader(casesadapters.NewCatalogReaderAdapter(inventoryModule.Repository()))

	if cfg.IsAdvisorEnabled() {
		advisor, err := gemini.NewAdvisor(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize coaching advisor", "error", err)
		} else {
			casesModule.Service().SetAdvisor(advisor, cfg.GetAdvisorTimeout())
			log.Info("coaching advisor enabled", "model", cfg.GetAdvisorModel())
		}
	} else {
		log.Warn("GEMINI_API_KEY not configured; coaching advisor disabled")
	}

	casesModule.RegisterHandlers(eventBus)

	// Dispatcher shares the cases repository so the tick endpoint and the
	// worker binary claim from the same table with the same guarantees.
	reminderDispatcher := dispatcher.New(casesModule.Repository(), notifier, log, cfg.GetDispatcherBatchSize())
	dispatcherModule := dispatcher.NewModule(reminderDispatcher)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			casesModule,
			inventoryModule,
			notificationModule,
			dispatcherModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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

	return fmt.Errorf("%s: %w", name, lastErr)
}
