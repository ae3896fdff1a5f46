package service

import (
	"context"
	"fmt"

	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/events"

	"github.com/google/uuid"
)

// ReassignParams moves a case to another agent.
type ReassignParams struct {
	CaseID        uuid.UUID
	ToAgentID     uuid.UUID
	Reason        string
	ActingAgentID uuid.UUID
}

// Reassign records the face change and moves the case, then notifies both
// sides of the handover. Notification failures never undo the committed
// reassignment.
func (s *Service) Reassign(ctx context.Context, p ReassignParams) (repository.FaceChange, error) {
	var reason *string
	if p.Reason != "" {
		reason = &p.Reason
	}

	fc, err := s.store.Reassign(ctx, repository.ReassignParams{
		CaseID:    p.CaseID,
		ToAgentID: p.ToAgentID,
		Reason:    reason,
		ChangedBy: p.ActingAgentID,
	})
	if err != nil {
		return repository.FaceChange{}, err
	}

	s.notifyHandover(ctx, fc)

	s.bus.Publish(ctx, events.CaseReassigned{
		BaseEvent:    events.NewBaseEvent(),
		CaseID:       fc.CaseID,
		FromAgentID:  fc.FromAgentID,
		ToAgentID:    fc.ToAgentID,
		ActingUserID: p.ActingAgentID,
	})
	return fc, nil
}

// notifyHandover tells the new agent about the assignment and, when a
// different agent held the case before, tells them it moved away.
func (s *Service) notifyHandover(ctx context.Context, fc repository.FaceChange) {
	if s.notifier == nil {
		return
	}

	caseURL := fmt.Sprintf("/cases/%s", fc.CaseID)

	err := s.notifier.Notify(ctx, ports.NotifyParams{
		AgentID:  fc.ToAgentID,
		Title:    "Case assigned to you",
		Body:     "A case was handed over to you. Review it and plan the next step.",
		URL:      caseURL,
		Channels: []string{"inapp", "email"},
	})
	if err != nil {
		s.log.SideEffectError("notify incoming agent", err)
	}

	if fc.FromAgentID != nil && *fc.FromAgentID != fc.ToAgentID {
		err := s.notifier.Notify(ctx, ports.NotifyParams{
			AgentID:  *fc.FromAgentID,
			Title:    "Case reassigned",
			Body:     "One of your cases was handed over to another agent.",
			URL:      caseURL,
			Channels: []string{"inapp"},
		})
		if err != nil {
			s.log.SideEffectError("notify outgoing agent", err)
		}
	}
}

// ListFaceChanges returns a case's handover history, newest first.
func (s *Service) ListFaceChanges(ctx context.Context, caseID uuid.UUID) ([]repository.FaceChange, error) {
	if _, err := s.store.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListFaceChangesByCase(ctx, caseID)
}
