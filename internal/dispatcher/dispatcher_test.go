package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeActionStore struct {
	mu       sync.Mutex
	due      []repository.ClaimedAction
	claimErr error
	resets   []uuid.UUID
}

func (f *fakeActionStore) ClaimDue(_ context.Context, _ time.Time, limit int) ([]repository.ClaimedAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeActionStore) ResetClaim(_ context.Context, actionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, actionID)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []ports.NotifyParams
	failOn map[uuid.UUID]bool
}

func (f *fakeNotifier) Notify(_ context.Context, p ports.NotifyParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[p.AgentID] {
		return errors.New("delivery refused")
	}
	f.sent = append(f.sent, p)
	return nil
}

func claimedAction(agentID uuid.UUID) repository.ClaimedAction {
	return repository.ClaimedAction{
		ActionID:    uuid.New(),
		CaseID:      uuid.New(),
		ActionType:  "CALL_NOW",
		DueAt:       time.Now().Add(-time.Minute),
		CreatedBy:   agentID,
		CaseAgentID: &agentID,
	}
}

func TestRunDeliversBatch(t *testing.T) {
	agent := uuid.New()
	store := &fakeActionStore{due: []repository.ClaimedAction{
		claimedAction(agent),
		claimedAction(agent),
		claimedAction(agent),
	}}
	notifier := &fakeNotifier{}
	d := New(store, notifier, logger.New("test"), 10)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Total != 3 || res.Notified != 3 || res.Failed != 0 {
		t.Errorf("Run() = %+v, want total 3 notified 3 failed 0", res)
	}
	if len(notifier.sent) != 3 {
		t.Fatalf("delivered notifications = %d, want 3", len(notifier.sent))
	}
	for _, p := range notifier.sent {
		if p.AgentID != agent {
			t.Errorf("notification target = %s, want case agent %s", p.AgentID, agent)
		}
		if p.URL == "" {
			t.Error("notification has no case link")
		}
	}
}

func TestRunFailureReleasesClaimAndContinues(t *testing.T) {
	good := uuid.New()
	bad := uuid.New()
	failing := claimedAction(bad)
	store := &fakeActionStore{due: []repository.ClaimedAction{
		claimedAction(good),
		failing,
		claimedAction(good),
	}}
	notifier := &fakeNotifier{failOn: map[uuid.UUID]bool{bad: true}}
	d := New(store, notifier, logger.New("test"), 10)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Total != 3 || res.Notified != 2 || res.Failed != 1 {
		t.Errorf("Run() = %+v, want total 3 notified 2 failed 1", res)
	}
	if len(store.resets) != 1 || store.resets[0] != failing.ActionID {
		t.Errorf("reset claims = %v, want exactly the failed action %s", store.resets, failing.ActionID)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	store := &fakeActionStore{}
	d := New(store, &fakeNotifier{}, logger.New("test"), 10)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Total != 0 || res.Notified != 0 || res.Failed != 0 {
		t.Errorf("Run() = %+v, want all zero", res)
	}
}

func TestRunClaimErrorPropagates(t *testing.T) {
	store := &fakeActionStore{claimErr: errors.New("database unavailable")}
	d := New(store, &fakeNotifier{}, logger.New("test"), 10)

	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want claim error")
	}
}

func TestRunHonorsBatchSize(t *testing.T) {
	agent := uuid.New()
	var due []repository.ClaimedAction
	for i := 0; i < 5; i++ {
		due = append(due, claimedAction(agent))
	}
	store := &fakeActionStore{due: due}
	notifier := &fakeNotifier{}
	d := New(store, notifier, logger.New("test"), 2)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Total != 2 || res.Notified != 2 {
		t.Errorf("Run() = %+v, want total 2 notified 2", res)
	}
}

func TestTargetPrefersCaseAgent(t *testing.T) {
	creator := uuid.New()
	agent := uuid.New()
	a := repository.ClaimedAction{CreatedBy: creator, CaseAgentID: &agent}
	if got := a.Target(); got != agent {
		t.Errorf("Target() = %s, want assigned agent %s", got, agent)
	}
	a.CaseAgentID = nil
	if got := a.Target(); got != creator {
		t.Errorf("Target() = %s, want creator %s", got, creator)
	}
}
