// Package service implements the case lifecycle operations: stage changes,
// action scheduling, reassignment and inventory matching.
package service

import (
	"context"
	"time"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/events"
	"caseflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the service depends on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Case, error)
	ChangeStage(ctx context.Context, p repository.ChangeStageParams) (repository.Case, error)

	InsertAction(ctx context.Context, p repository.InsertActionParams) (repository.CaseAction, error)
	GetActionByID(ctx context.Context, id uuid.UUID) (repository.CaseAction, error)
	UpdateAction(ctx context.Context, id uuid.UUID, p repository.UpdateActionParams) (repository.CaseAction, error)
	MarkActionTerminal(ctx context.Context, id uuid.UUID, status domain.ActionStatus) (repository.CaseAction, error)
	ListActionsByCase(ctx context.Context, caseID uuid.UUID) ([]repository.CaseAction, error)

	Reassign(ctx context.Context, p repository.ReassignParams) (repository.FaceChange, error)
	ListFaceChangesByCase(ctx context.Context, caseID uuid.UUID) ([]repository.FaceChange, error)

	InsertMatch(ctx context.Context, p repository.InsertMatchParams) (repository.InventoryMatch, error)
	ListMatchesByCase(ctx context.Context, caseID uuid.UUID) ([]repository.InventoryMatch, error)
}

// meetingReminderLead is how long before the meeting the auto-created
// REMIND_MEETING action falls due.
const meetingReminderLead = time.Hour

type Service struct {
	store    Store
	bus      events.Bus
	log      *logger.Logger
	notifier ports.Notifier
	catalog  ports.CatalogReader
	advisor  ports.Advisor

	advisorTimeout time.Duration

	now func() time.Time
}

func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store: store,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// SetNotifier injects the notification collaborator.
func (s *Service) SetNotifier(n ports.Notifier) {
	s.notifier = n
}

// SetCatalogReader injects the inventory catalog collaborator.
func (s *Service) SetCatalogReader(c ports.CatalogReader) {
	s.catalog = c
}

// SetAdvisor injects the coaching advisor with its per-call timeout.
func (s *Service) SetAdvisor(a ports.Advisor, timeout time.Duration) {
	s.advisor = a
	s.advisorTimeout = timeout
}

// ChangeStageParams carries a requested stage transition.
type ChangeStageParams struct {
	CaseID             uuid.UUID
	TargetStage        string
	ActingAgentID      uuid.UUID
	Feedback           string
	TotalBudget        *float64
	DownPayment        *float64
	MonthlyInstallment *float64
	MeetingDate        *time.Time
}

// ChangeStageResult is the committed case plus any side-effect artifacts
// produced by the transition.
type ChangeStageResult struct {
	Case           repository.Case        `json:"case"`
	ReminderAction *repository.CaseAction `json:"reminderAction,omitempty"`
	Match          *MatchResult           `json:"match,omitempty"`
}

// GetCase returns a case by id.
func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (repository.Case, error) {
	return s.store.GetByID(ctx, id)
}

// ChangeStage validates the transition against the stage graph, persists
// it with a conditional write on the validated current stage, then runs
// the transition's side effects. Side effects are best-effort: the stage
// change stands even when a follow-up step fails.
func (s *Service) ChangeStage(ctx context.Context, p ChangeStageParams) (ChangeStageResult, error) {
	current, err := s.store.GetByID(ctx, p.CaseID)
	if err != nil {
		return ChangeStageResult{}, err
	}

	data := domain.TransitionData{
		Feedback:           p.Feedback,
		TotalBudget:        p.TotalBudget,
		DownPayment:        p.DownPayment,
		MonthlyInstallment: p.MonthlyInstallment,
		MeetingDate:        p.MeetingDate,
	}
	if err := domain.ValidateTransition(current.Stage, p.TargetStage, data); err != nil {
		return ChangeStageResult{}, err
	}

	var feedback *string
	if p.Feedback != "" {
		feedback = &p.Feedback
	}

	updated, err := s.store.ChangeStage(ctx, repository.ChangeStageParams{
		CaseID:             p.CaseID,
		ExpectedStage:      current.Stage,
		NewStage:           p.TargetStage,
		Feedback:           feedback,
		TotalBudget:        p.TotalBudget,
		DownPayment:        p.DownPayment,
		MonthlyInstallment: p.MonthlyInstallment,
	})
	if err != nil {
		return ChangeStageResult{}, err
	}

	result := ChangeStageResult{Case: updated}

	switch p.TargetStage {
	case domain.StageMeetingScheduled:
		if p.MeetingDate != nil {
			if action, remindErr := s.scheduleMeetingReminder(ctx, updated, *p.MeetingDate, p.ActingAgentID); remindErr != nil {
				s.log.SideEffectError("schedule meeting reminder", remindErr)
			} else {
				result.ReminderAction = &action
			}
		}
	case domain.StageLowBudget, domain.StageHotCase:
		if match, matchErr := s.RunMatch(ctx, MatchParams{CaseID: updated.ID, ActingAgentID: p.ActingAgentID}); matchErr != nil {
			s.log.SideEffectError("run inventory match", matchErr)
		} else {
			result.Match = &match
		}
	}

	s.bus.Publish(ctx, events.StageChanged{
		BaseEvent:    events.NewBaseEvent(),
		CaseID:       updated.ID,
		OldStage:     current.Stage,
		NewStage:     updated.Stage,
		AgentID:      updated.AssignedAgentID,
		ActingUserID: p.ActingAgentID,
		Feedback:     p.Feedback,
	})

	return result, nil
}

// scheduleMeetingReminder auto-creates the REMIND_MEETING action that the
// dispatcher later turns into a notification. The reminder falls due one
// hour before the meeting, clamped to now for near-term meetings.
func (s *Service) scheduleMeetingReminder(ctx context.Context, cs repository.Case, meetingAt time.Time, actingAgentID uuid.UUID) (repository.CaseAction, error) {
	payload, err := domain.EncodePayload(domain.ActionRemindMeeting, domain.RemindMeetingPayload{MeetingAt: meetingAt})
	if err != nil {
		return repository.CaseAction{}, err
	}

	dueAt := meetingAt.Add(-meetingReminderLead)
	if now := s.now(); dueAt.Before(now) {
		dueAt = now
	}

	action, err := s.store.InsertAction(ctx, repository.InsertActionParams{
		CaseID:     cs.ID,
		ActionType: domain.ActionRemindMeeting,
		Payload:    payload,
		DueAt:      &dueAt,
		CreatedBy:  actingAgentID,
	})
	if err != nil {
		return repository.CaseAction{}, err
	}

	s.bus.Publish(ctx, events.ActionCreated{
		BaseEvent:  events.NewBaseEvent(),
		CaseID:     cs.ID,
		ActionID:   action.ID,
		ActionType: string(action.ActionType),
	})
	return action, nil
}
