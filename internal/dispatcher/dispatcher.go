// Package dispatcher scans for due case actions and turns them into agent
// notifications.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/platform/logger"

	"github.com/google/uuid"
)

// ActionStore is the claim surface the dispatcher needs from the cases
// repository.
type ActionStore interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]repository.ClaimedAction, error)
	ResetClaim(ctx context.Context, actionID uuid.UUID) error
}

// Result summarizes one dispatcher run.
type Result struct {
	Total    int `json:"total"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

type Dispatcher struct {
	store     ActionStore
	notifier  ports.Notifier
	log       *logger.Logger
	batchSize int

	now func() time.Time
}

func New(store ActionStore, notifier ports.Notifier, log *logger.Logger, batchSize int) *Dispatcher {
	if batchSize < 1 {
		batchSize = 100
	}
	return &Dispatcher{
		store:     store,
		notifier:  notifier,
		log:       log,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run claims one batch of due actions and delivers their reminders. A
// failed delivery releases the claim so a later run retries it; the rest
// of the batch continues regardless.
func (d *Dispatcher) Run(ctx context.Context) (Result, error) {
	start := d.now()

	claimed, err := d.store.ClaimDue(ctx, start, d.batchSize)
	if err != nil {
		return Result{}, err
	}

	result := Result{Total: len(claimed)}
	for _, action := range claimed {
		if err := d.deliver(ctx, action); err != nil {
			result.Failed++
			d.log.SideEffectError("deliver action reminder", err)
			if resetErr := d.store.ResetClaim(ctx, action.ActionID); resetErr != nil {
				d.log.SideEffectError("reset action claim", resetErr)
			}
			continue
		}
		result.Notified++
	}

	d.log.DispatcherRun(result.Total, result.Notified, result.Failed, time.Since(start))
	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, action repository.ClaimedAction) error {
	if d.notifier == nil {
		return fmt.Errorf("notifier not configured")
	}

	return d.notifier.Notify(ctx, ports.NotifyParams{
		AgentID:  action.Target(),
		Title:    "Action due",
		Body:     fmt.Sprintf("A %s action on one of your cases is due now.", action.ActionType),
		URL:      fmt.Sprintf("/cases/%s", action.CaseID),
		Channels: []string{"inapp"},
	})
}
