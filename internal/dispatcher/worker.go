package dispatcher

import (
	"context"
	"fmt"
	"time"

	"caseflow_backend/platform/config"
	"caseflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// WorkerConfig combines the config interfaces the worker needs.
type WorkerConfig interface {
	config.SchedulerConfig
	config.DispatcherConfig
}

// Worker consumes reminder scan tasks and runs the dispatcher for each.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher *Dispatcher
	log        *logger.Logger
}

func NewWorker(cfg WorkerConfig, d *Dispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		dispatcher: d,
		log:        log,
	}
	mux.HandleFunc(TaskReminderScan, w.handleReminderScan)

	return w, nil
}

func (w *Worker) handleReminderScan(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseReminderScanPayload(task); err != nil {
		return err
	}

	_, err := w.dispatcher.Run(ctx)
	return err
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("dispatcher worker stopped", "error", err)
		return err
	}
	return nil
}

// Ticker enqueues a reminder scan on a fixed interval. It runs alongside
// the worker so the dispatcher binary is self-driving; an external timer
// hitting the tick endpoint covers deployments without this process.
type Ticker struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewTicker(client *Client, interval time.Duration, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Ticker{client: client, interval: interval, log: log}
}

func (t *Ticker) Run(ctx context.Context) error {
	if t == nil || t.client == nil {
		return nil
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := t.client.EnqueueReminderScan(ctx, ReminderScanPayload{RequestedAt: now}); err != nil {
				t.log.Warn("enqueue reminder scan failed", "error", err)
			}
		}
	}
}
