package service

import (
	"context"
	"errors"
	"testing"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/events"

	"github.com/google/uuid"
)

type fakeAdvisor struct {
	out ports.AdviceOutput
	err error
}

func (a *fakeAdvisor) Advise(_ context.Context, _ ports.AdviceInput) (ports.AdviceOutput, error) {
	return a.out, a.err
}

func stageChangedEvent(caseID uuid.UUID, newStage string) events.StageChanged {
	return events.StageChanged{
		BaseEvent:    events.NewBaseEvent(),
		CaseID:       caseID,
		OldStage:     domain.StageNewLead,
		NewStage:     newStage,
		ActingUserID: uuid.New(),
	}
}

func TestEnrichCreatesSuggestedActions(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StagePotential})
	svc, _ := newTestService(store)
	svc.SetAdvisor(&fakeAdvisor{out: ports.AdviceOutput{
		Recommendations: []ports.Recommendation{
			{CTA: "Call immediately", SuggestedActionType: "CALL_NOW", DueInMinutes: 15},
			{CTA: "Plan a meeting", SuggestedActionType: "PUSH_MEETING", DueInMinutes: 60},
			{CTA: "General advice without an action", SuggestedActionType: ""},
		},
	}}, 0)

	if err := svc.EnrichAfterStageChange(context.Background(), stageChangedEvent(cs.ID, domain.StagePotential)); err != nil {
		t.Fatalf("EnrichAfterStageChange() error = %v", err)
	}

	actions, _ := store.ListActionsByCase(context.Background(), cs.ID)
	if len(actions) != 2 {
		t.Fatalf("created actions = %d, want 2", len(actions))
	}
	for _, a := range actions {
		if a.Status != domain.ActionStatusPending {
			t.Errorf("action %s status = %q, want PENDING", a.ActionType, a.Status)
		}
		if a.DueAt == nil {
			t.Errorf("action %s has no due time", a.ActionType)
		}
	}
}

func TestEnrichFallsBackOnAdvisorError(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StagePotential})
	svc, _ := newTestService(store)
	svc.SetAdvisor(&fakeAdvisor{err: errors.New("model timeout")}, 0)

	if err := svc.EnrichAfterStageChange(context.Background(), stageChangedEvent(cs.ID, domain.StagePotential)); err != nil {
		t.Fatalf("EnrichAfterStageChange() error = %v", err)
	}

	actions, _ := store.ListActionsByCase(context.Background(), cs.ID)
	if len(actions) != 1 {
		t.Fatalf("created actions = %d, want 1 fallback action", len(actions))
	}
	if actions[0].ActionType != domain.ActionPushMeeting {
		t.Errorf("fallback action type = %q, want %q", actions[0].ActionType, domain.ActionPushMeeting)
	}
}

func TestEnrichFallsBackOnEmptyAdvice(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StageAttempted})
	svc, _ := newTestService(store)
	svc.SetAdvisor(&fakeAdvisor{out: ports.AdviceOutput{}}, 0)

	if err := svc.EnrichAfterStageChange(context.Background(), stageChangedEvent(cs.ID, domain.StageAttempted)); err != nil {
		t.Fatalf("EnrichAfterStageChange() error = %v", err)
	}

	actions, _ := store.ListActionsByCase(context.Background(), cs.ID)
	if len(actions) != 1 {
		t.Errorf("created actions = %d, want 1 fallback action", len(actions))
	}
}

func TestEnrichSkipsTerminalStages(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StageClosedDeal})
	svc, _ := newTestService(store)
	svc.SetAdvisor(&fakeAdvisor{out: ports.FallbackAdvice()}, 0)

	if err := svc.EnrichAfterStageChange(context.Background(), stageChangedEvent(cs.ID, domain.StageClosedDeal)); err != nil {
		t.Fatalf("EnrichAfterStageChange() error = %v", err)
	}

	actions, _ := store.ListActionsByCase(context.Background(), cs.ID)
	if len(actions) != 0 {
		t.Errorf("created actions = %d, want 0 for terminal stage", len(actions))
	}
}

func TestEnrichWithoutAdvisorIsNoop(t *testing.T) {
	store := newFakeStore()
	cs := store.addCase(repository.Case{Stage: domain.StagePotential})
	svc, _ := newTestService(store)

	if err := svc.EnrichAfterStageChange(context.Background(), stageChangedEvent(cs.ID, domain.StagePotential)); err != nil {
		t.Fatalf("EnrichAfterStageChange() error = %v", err)
	}
	actions, _ := store.ListActionsByCase(context.Background(), cs.ID)
	if len(actions) != 0 {
		t.Errorf("created actions = %d, want 0 without advisor", len(actions))
	}
}
