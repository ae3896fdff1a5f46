package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/events"
	"caseflow_backend/platform/apperr"
	"caseflow_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu      sync.Mutex
	cases   map[uuid.UUID]repository.Case
	actions map[uuid.UUID]repository.CaseAction
	faces   []repository.FaceChange
	matches []repository.InventoryMatch

	changeStageErr error
	insertErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cases:   make(map[uuid.UUID]repository.Case),
		actions: make(map[uuid.UUID]repository.CaseAction),
	}
}

func (f *fakeStore) addCase(cs repository.Case) repository.Case {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	f.cases[cs.ID] = cs
	return cs
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs, ok := f.cases[id]
	if !ok {
		return repository.Case{}, apperr.NotFound("case not found")
	}
	return cs, nil
}

func (f *fakeStore) ChangeStage(_ context.Context, p repository.ChangeStageParams) (repository.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.changeStageErr != nil {
		return repository.Case{}, f.changeStageErr
	}
	cs, ok := f.cases[p.CaseID]
	if !ok {
		return repository.Case{}, apperr.NotFound("case not found")
	}
	if cs.Stage != p.ExpectedStage {
		return repository.Case{}, apperr.Conflict(
			fmt.Sprintf("case stage changed concurrently: expected %q, case is now %q", p.ExpectedStage, cs.Stage))
	}
	cs.Stage = p.NewStage
	if p.Feedback != nil {
		cs.LastFeedback = p.Feedback
	}
	if p.TotalBudget != nil {
		cs.TotalBudget = p.TotalBudget
	}
	if p.DownPayment != nil {
		cs.DownPayment = p.DownPayment
	}
	if p.MonthlyInstallment != nil {
		cs.MonthlyInstallment = p.MonthlyInstallment
	}
	f.cases[cs.ID] = cs
	return cs, nil
}

func (f *fakeStore) InsertAction(_ context.Context, p repository.InsertActionParams) (repository.CaseAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return repository.CaseAction{}, f.insertErr
	}
	a := repository.CaseAction{
		ID:         uuid.New(),
		CaseID:     p.CaseID,
		ActionType: p.ActionType,
		Payload:    p.Payload,
		Status:     domain.ActionStatusPending,
		DueAt:      p.DueAt,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.actions[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetActionByID(_ context.Context, id uuid.UUID) (repository.CaseAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actions[id]
	if !ok {
		return repository.CaseAction{}, apperr.NotFound("case action not found")
	}
	return a, nil
}

func (f *fakeStore) UpdateAction(_ context.Context, id uuid.UUID, p repository.UpdateActionParams) (repository.CaseAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actions[id]
	if !ok {
		return repository.CaseAction{}, apperr.NotFound("case action not found")
	}
	if a.Status != domain.ActionStatusPending {
		return repository.CaseAction{}, apperr.Conflict(fmt.Sprintf("case action is already %s and cannot change", a.Status))
	}
	if p.HasPayload {
		a.Payload = p.Payload
	}
	if p.SetDueAt {
		a.DueAt = p.DueAt
	}
	a.UpdatedAt = time.Now()
	f.actions[id] = a
	return a, nil
}

func (f *fakeStore) MarkActionTerminal(_ context.Context, id uuid.UUID, status domain.ActionStatus) (repository.CaseAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actions[id]
	if !ok {
		return repository.CaseAction{}, apperr.NotFound("case action not found")
	}
	if a.Status != domain.ActionStatusPending {
		return repository.CaseAction{}, apperr.Conflict(fmt.Sprintf("case action is already %s and cannot change", a.Status))
	}
	a.Status = status
	if status == domain.ActionStatusDone {
		now := time.Now()
		a.CompletedAt = &now
	}
	f.actions[id] = a
	return a, nil
}

func (f *fakeStore) ListActionsByCase(_ context.Context, caseID uuid.UUID) ([]repository.CaseAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.CaseAction
	for _, a := range f.actions {
		if a.CaseID == caseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) Reassign(_ context.Context, p repository.ReassignParams) (repository.FaceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs, ok := f.cases[p.CaseID]
	if !ok {
		return repository.FaceChange{}, apperr.NotFound("case not found")
	}
	if cs.AssignedAgentID != nil && *cs.AssignedAgentID == p.ToAgentID {
		return repository.FaceChange{}, apperr.Validation("case is already assigned to that agent")
	}
	fc := repository.FaceChange{
		ID:          uuid.New(),
		CaseID:      p.CaseID,
		FromAgentID: cs.AssignedAgentID,
		ToAgentID:   p.ToAgentID,
		Reason:      p.Reason,
		ChangedBy:   p.ChangedBy,
		CreatedAt:   time.Now(),
	}
	agentID := p.ToAgentID
	cs.AssignedAgentID = &agentID
	f.cases[cs.ID] = cs
	f.faces = append(f.faces, fc)
	return fc, nil
}

func (f *fakeStore) ListFaceChangesByCase(_ context.Context, caseID uuid.UUID) ([]repository.FaceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.FaceChange
	for _, fc := range f.faces {
		if fc.CaseID == caseID {
			out = append(out, fc)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertMatch(_ context.Context, p repository.InsertMatchParams) (repository.InventoryMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := repository.InventoryMatch{
		ID:             uuid.New(),
		CaseID:         p.CaseID,
		Filters:        p.Filters,
		ResultCount:    p.ResultCount,
		TopUnits:       p.TopUnits,
		Recommendation: p.Recommendation,
		CreatedAt:      time.Now(),
	}
	f.matches = append(f.matches, m)
	return m, nil
}

func (f *fakeStore) ListMatchesByCase(_ context.Context, caseID uuid.UUID) ([]repository.InventoryMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.InventoryMatch
	for _, m := range f.matches {
		if m.CaseID == caseID {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeNotifier records delivered notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []ports.NotifyParams
	fail  bool
	calls int
}

func (n *fakeNotifier) Notify(_ context.Context, p ports.NotifyParams) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail {
		return errors.New("notifier unavailable")
	}
	n.sent = append(n.sent, p)
	return nil
}

func (n *fakeNotifier) sentTo(agentID uuid.UUID) []ports.NotifyParams {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []ports.NotifyParams
	for _, p := range n.sent {
		if p.AgentID == agentID {
			out = append(out, p)
		}
	}
	return out
}

// fakeCatalog serves a fixed unit snapshot filtered by the search params.
type fakeCatalog struct {
	units []ports.Unit
	err   error
}

func (c *fakeCatalog) Search(_ context.Context, p ports.UnitSearchParams) ([]ports.Unit, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []ports.Unit
	for _, u := range c.units {
		if u.Price > p.MaxPrice {
			continue
		}
		if p.Area != "" && !strings.Contains(strings.ToLower(u.Area), strings.ToLower(p.Area)) {
			continue
		}
		if p.MinBedrooms != nil && u.Bedrooms < *p.MinBedrooms {
			continue
		}
		out = append(out, u)
		if p.Limit > 0 && len(out) == p.Limit {
			break
		}
	}
	return out, nil
}

func newTestService(store *fakeStore) (*Service, *fakeNotifier) {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	svc := New(store, bus, log)
	notifier := &fakeNotifier{}
	svc.SetNotifier(notifier)
	return svc, notifier
}

func floatPtr(v float64) *float64 { return &v }

func TestChangeStageHappyPath(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StageNewLead})
	svc, _ := newTestService(store)

	result, err := svc.ChangeStage(context.Background(), ChangeStageParams{
		CaseID:        cs.ID,
		TargetStage:   domain.StageAttempted,
		ActingAgentID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("ChangeStage() error = %v", err)
	}
	if result.Case.Stage != domain.StageAttempted {
		t.Errorf("stage = %q, want %q", result.Case.Stage, domain.StageAttempted)
	}
}

func TestChangeStageInvalidTransitionLeavesCaseUntouched(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StageNewLead})
	svc, _ := newTestService(store)

	_, err := svc.ChangeStage(context.Background(), ChangeStageParams{
		CaseID:        cs.ID,
		TargetStage:   domain.StageClosedDeal,
		ActingAgentID: uuid.New(),
	})
	if err == nil {
		t.Fatal("ChangeStage() expected error for undeclared transition")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("error kind = %v, want validation", apperr.GetKind(err))
	}

	got, _ := store.GetByID(context.Background(), cs.ID)
	if got.Stage != domain.StageNewLead {
		t.Errorf("stage mutated to %q on failed validation", got.Stage)
	}
}

func TestChangeStageConflictSurfacesAsConflict(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StageNewLead})
	store.changeStageErr = apperr.Conflict("case stage changed concurrently")
	svc, _ := newTestService(store)

	_, err := svc.ChangeStage(context.Background(), ChangeStageParams{
		CaseID:        cs.ID,
		TargetStage:   domain.StageAttempted,
		ActingAgentID: uuid.New(),
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("error kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestChangeStageToMeetingScheduledCreatesReminder(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StagePotential})
	svc, _ := newTestService(store)

	meetingAt := time.Now().Add(48 * time.Hour)
	result, err := svc.ChangeStage(context.Background(), ChangeStageParams{
		CaseID:        cs.ID,
		TargetStage:   domain.StageMeetingScheduled,
		ActingAgentID: uuid.New(),
		Feedback:      "client agreed to a meeting",
		MeetingDate:   &meetingAt,
	})
	if err != nil {
		t.Fatalf("ChangeStage() error = %v", err)
	}
	if result.ReminderAction == nil {
		t.Fatal("expected auto-created reminder action")
	}
	if result.ReminderAction.ActionType != domain.ActionRemindMeeting {
		t.Errorf("reminder type = %q, want %q", result.ReminderAction.ActionType, domain.ActionRemindMeeting)
	}
	if result.ReminderAction.DueAt == nil {
		t.Fatal("reminder has no due time")
	}
	wantDue := meetingAt.Add(-meetingReminderLead)
	if !result.ReminderAction.DueAt.Equal(wantDue) {
		t.Errorf("reminder due = %v, want %v", result.ReminderAction.DueAt, wantDue)
	}
}

func TestChangeStageReminderClampedForImminentMeeting(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StagePotential})
	svc, _ := newTestService(store)

	fixed := time.Now()
	svc.now = func() time.Time { return fixed }

	meetingAt := fixed.Add(10 * time.Minute)
	result, err := svc.ChangeStage(context.Background(), ChangeStageParams{
		CaseID:        cs.ID,
		TargetStage:   domain.StageMeetingScheduled,
		ActingAgentID: uuid.New(),
		Feedback:      "meeting in ten minutes",
		MeetingDate:   &meetingAt,
	})
	if err != nil {
		t.Fatalf("ChangeStage() error = %v", err)
	}
	if result.ReminderAction == nil || result.ReminderAction.DueAt == nil {
		t.Fatal("expected reminder with due time")
	}
	if !result.ReminderAction.DueAt.Equal(fixed) {
		t.Errorf("due = %v, want clamped to %v", result.ReminderAction.DueAt, fixed)
	}
}

func TestChangeStageToLowBudgetRunsMatcher(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{
		Stage:       domain.StagePotential,
		TotalBudget: floatPtr(3000000),
	})
	svc, _ := newTestService(store)
	svc.SetCatalogReader(&fakeCatalog{units: []ports.Unit{
		{ID: "u1", Price: 2500000},
		{ID: "u2", Price: 2900000},
		{ID: "u3", Price: 3500000},
	}})

	result, err := svc.ChangeStage(context.Background(), ChangeStageParams{
		CaseID:        cs.ID,
		TargetStage:   domain.StageLowBudget,
		ActingAgentID: uuid.New(),
		Feedback:      "budget below the compound's entry price",
		TotalBudget:   floatPtr(3000000),
	})
	if err != nil {
		t.Fatalf("ChangeStage() error = %v", err)
	}
	if result.Match == nil {
		t.Fatal("expected matcher result on Low Budget entry")
	}
	if result.Match.ResultCount != 2 {
		t.Errorf("match count = %d, want 2", result.Match.ResultCount)
	}
	if len(store.matches) != 1 {
		t.Errorf("persisted matches = %d, want 1", len(store.matches))
	}
}

func TestChangeStageMatcherFailureDoesNotFailChange(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StageMeetingDone})
	svc, _ := newTestService(store)
	svc.SetCatalogReader(&fakeCatalog{err: errors.New("catalog down")})

	result, err := svc.ChangeStage(context.Background(), ChangeStageParams{
		CaseID:        cs.ID,
		TargetStage:   domain.StageHotCase,
		ActingAgentID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("ChangeStage() error = %v, want side effect swallowed", err)
	}
	if result.Case.Stage != domain.StageHotCase {
		t.Errorf("stage = %q, want %q", result.Case.Stage, domain.StageHotCase)
	}
	if result.Match != nil {
		t.Error("expected no match result when matcher fails")
	}
}

func TestReassignNotifiesBothAgents(t *testing.T) {
	store := newFakeStore()
	fromAgent := uuid.New()
	toAgent := uuid.New()
	cs := store.addCase(repository.Case{Stage: domain.StagePotential, AssignedAgentID: &fromAgent})
	svc, notifier := newTestService(store)

	fc, err := svc.Reassign(context.Background(), ReassignParams{
		CaseID:        cs.ID,
		ToAgentID:     toAgent,
		Reason:        "client requested a new agent",
		ActingAgentID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Reassign() error = %v", err)
	}
	if fc.FromAgentID == nil || *fc.FromAgentID != fromAgent {
		t.Errorf("fromAgentId = %v, want %v", fc.FromAgentID, fromAgent)
	}

	if got := len(notifier.sentTo(toAgent)); got != 1 {
		t.Errorf("notifications to new agent = %d, want 1", got)
	}
	if got := len(notifier.sentTo(fromAgent)); got != 1 {
		t.Errorf("notifications to previous agent = %d, want 1", got)
	}

	updated, _ := store.GetByID(context.Background(), cs.ID)
	if updated.AssignedAgentID == nil || *updated.AssignedAgentID != toAgent {
		t.Errorf("case agent = %v, want %v", updated.AssignedAgentID, toAgent)
	}
}

func TestReassignUnassignedCaseNotifiesOnlyNewAgent(t *testing.T) {
	store := newFakeStore()
	toAgent := uuid.New()
	cs := store.addCase(repository.Case{Stage: domain.StageNewLead})
	svc, notifier := newTestService(store)

	if _, err := svc.Reassign(context.Background(), ReassignParams{
		CaseID:        cs.ID,
		ToAgentID:     toAgent,
		ActingAgentID: uuid.New(),
	}); err != nil {
		t.Fatalf("Reassign() error = %v", err)
	}

	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestReassignNotifierFailureDoesNotUndoReassignment(t *testing.T) {
	store := newFakeStore()
	toAgent := uuid.New()
	cs := store.addCase(repository.Case{Stage: domain.StageNewLead})
	svc, notifier := newTestService(store)
	notifier.fail = true

	if _, err := svc.Reassign(context.Background(), ReassignParams{
		CaseID:        cs.ID,
		ToAgentID:     toAgent,
		ActingAgentID: uuid.New(),
	}); err != nil {
		t.Fatalf("Reassign() error = %v, want notification failure swallowed", err)
	}

	updated, _ := store.GetByID(context.Background(), cs.ID)
	if updated.AssignedAgentID == nil || *updated.AssignedAgentID != toAgent {
		t.Error("reassignment not persisted")
	}
}
