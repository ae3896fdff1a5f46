package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/events"
	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
)

// CreateActionParams schedules a follow-up action on a case.
type CreateActionParams struct {
	CaseID        uuid.UUID
	ActionType    domain.ActionType
	Payload       json.RawMessage
	DueInMinutes  int
	ActingAgentID uuid.UUID
}

// CreateAction validates the type and its payload shape, stores the action
// and, for actions with a due time, immediately notifies the responsible
// agent that a new pending action exists. The reminder itself is delivered
// later by the dispatcher when the action falls due.
func (s *Service) CreateAction(ctx context.Context, p CreateActionParams) (repository.CaseAction, error) {
	if !p.ActionType.Valid() {
		return repository.CaseAction{}, apperr.Validationf("unknown action type %q", p.ActionType)
	}
	if p.DueInMinutes < 0 {
		return repository.CaseAction{}, apperr.Validation("dueInMinutes must not be negative")
	}

	// Round-trip through the typed union so malformed payloads are
	// rejected at the door rather than at dispatch time.
	decoded, err := domain.DecodePayload(p.ActionType, p.Payload)
	if err != nil {
		return repository.CaseAction{}, err
	}
	payload, err := domain.EncodePayload(p.ActionType, decoded)
	if err != nil {
		return repository.CaseAction{}, err
	}

	cs, err := s.store.GetByID(ctx, p.CaseID)
	if err != nil {
		return repository.CaseAction{}, err
	}

	var dueAt *time.Time
	if p.DueInMinutes > 0 {
		due := s.now().Add(time.Duration(p.DueInMinutes) * time.Minute)
		dueAt = &due
	}

	action, err := s.store.InsertAction(ctx, repository.InsertActionParams{
		CaseID:     p.CaseID,
		ActionType: p.ActionType,
		Payload:    payload,
		DueAt:      dueAt,
		CreatedBy:  p.ActingAgentID,
	})
	if err != nil {
		return repository.CaseAction{}, err
	}

	if dueAt != nil {
		s.notifyNewAction(ctx, cs, action)
	}

	s.bus.Publish(ctx, events.ActionCreated{
		BaseEvent:  events.NewBaseEvent(),
		CaseID:     action.CaseID,
		ActionID:   action.ID,
		ActionType: string(action.ActionType),
	})
	return action, nil
}

// notifyNewAction tells the responsible agent a pending action was placed
// on their case. Failures are logged only.
func (s *Service) notifyNewAction(ctx context.Context, cs repository.Case, action repository.CaseAction) {
	if s.notifier == nil {
		return
	}

	target := action.CreatedBy
	if cs.AssignedAgentID != nil {
		target = *cs.AssignedAgentID
	}

	err := s.notifier.Notify(ctx, ports.NotifyParams{
		AgentID:  target,
		Title:    "New pending action",
		Body:     fmt.Sprintf("A %s action was scheduled on one of your cases.", action.ActionType),
		URL:      fmt.Sprintf("/cases/%s", cs.ID),
		Channels: []string{"inapp"},
	})
	if err != nil {
		s.log.SideEffectError("notify new pending action", err)
	}
}

// UpdateActionParams is a partial update of a pending action.
type UpdateActionParams struct {
	ActionID     uuid.UUID
	Payload      json.RawMessage
	HasPayload   bool
	DueInMinutes *int
	Status       *domain.ActionStatus
}

// UpdateAction mutates a PENDING action. A terminal Status finishes the
// action (DONE stamps completedAt) and must be the only change requested;
// otherwise payload and due time are updated. Terminal actions reject any
// update with a conflict.
func (s *Service) UpdateAction(ctx context.Context, p UpdateActionParams) (repository.CaseAction, error) {
	if p.Status != nil {
		if p.HasPayload || p.DueInMinutes != nil {
			return repository.CaseAction{}, apperr.Validation("status cannot be combined with other changes")
		}
		if !p.Status.IsTerminal() {
			return repository.CaseAction{}, apperr.Validationf("status must be DONE or SKIPPED, got %q", *p.Status)
		}
		return s.store.MarkActionTerminal(ctx, p.ActionID, *p.Status)
	}

	current, err := s.store.GetActionByID(ctx, p.ActionID)
	if err != nil {
		return repository.CaseAction{}, err
	}

	update := repository.UpdateActionParams{}

	if p.HasPayload {
		decoded, decodeErr := domain.DecodePayload(current.ActionType, p.Payload)
		if decodeErr != nil {
			return repository.CaseAction{}, decodeErr
		}
		payload, encodeErr := domain.EncodePayload(current.ActionType, decoded)
		if encodeErr != nil {
			return repository.CaseAction{}, encodeErr
		}
		update.Payload = payload
		update.HasPayload = true
	}

	if p.DueInMinutes != nil {
		if *p.DueInMinutes < 0 {
			return repository.CaseAction{}, apperr.Validation("dueInMinutes must not be negative")
		}
		update.SetDueAt = true
		if *p.DueInMinutes > 0 {
			due := s.now().Add(time.Duration(*p.DueInMinutes) * time.Minute)
			update.DueAt = &due
		}
	}

	if !update.HasPayload && !update.SetDueAt {
		return repository.CaseAction{}, apperr.Validation("nothing to update")
	}

	return s.store.UpdateAction(ctx, p.ActionID, update)
}

// CompleteAction marks a pending action DONE.
func (s *Service) CompleteAction(ctx context.Context, actionID uuid.UUID) (repository.CaseAction, error) {
	return s.store.MarkActionTerminal(ctx, actionID, domain.ActionStatusDone)
}

// SkipAction marks a pending action SKIPPED.
func (s *Service) SkipAction(ctx context.Context, actionID uuid.UUID) (repository.CaseAction, error) {
	return s.store.MarkActionTerminal(ctx, actionID, domain.ActionStatusSkipped)
}

// ListActions returns a case's actions, newest first.
func (s *Service) ListActions(ctx context.Context, caseID uuid.UUID) ([]repository.CaseAction, error) {
	if _, err := s.store.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListActionsByCase(ctx, caseID)
}
