package service

import (
	"context"
	"fmt"
	"time"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/events"
)

// EnrichAfterStageChange asks the coaching advisor for next steps after a
// committed stage change and schedules the suggested actions. It is wired
// as an event handler, so it runs off the request path; any advisor
// failure degrades to the fixed fallback advice, never to an error the
// caller sees.
func (s *Service) EnrichAfterStageChange(ctx context.Context, e events.StageChanged) error {
	if s.advisor == nil {
		return nil
	}
	if domain.IsTerminalStage(e.NewStage) {
		return nil
	}

	cs, err := s.store.GetByID(ctx, e.CaseID)
	if err != nil {
		return err
	}

	advice := s.advise(ctx, ports.AdviceInput{
		Stage:        e.NewStage,
		CaseSummary:  summarizeCase(cs),
		LastFeedback: e.Feedback,
	})

	for _, rec := range advice.Recommendations {
		actionType := domain.ActionType(rec.SuggestedActionType)
		if !actionType.Valid() {
			continue
		}

		var dueAt *time.Time
		if rec.DueInMinutes > 0 {
			due := s.now().Add(time.Duration(rec.DueInMinutes) * time.Minute)
			dueAt = &due
		}

		action, insertErr := s.store.InsertAction(ctx, repository.InsertActionParams{
			CaseID:     e.CaseID,
			ActionType: actionType,
			DueAt:      dueAt,
			CreatedBy:  e.ActingUserID,
		})
		if insertErr != nil {
			s.log.SideEffectError("create advisor-suggested action", insertErr)
			continue
		}

		s.bus.Publish(ctx, events.ActionCreated{
			BaseEvent:  events.NewBaseEvent(),
			CaseID:     e.CaseID,
			ActionID:   action.ID,
			ActionType: string(action.ActionType),
		})
	}
	return nil
}

// advise calls the advisor bounded by the configured timeout and
// substitutes the fallback on any failure or empty answer.
func (s *Service) advise(ctx context.Context, input ports.AdviceInput) ports.AdviceOutput {
	timeout := s.advisorTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	adviseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.advisor.Advise(adviseCtx, input)
	if err != nil {
		s.log.SideEffectError("coaching advisor", err)
		return ports.FallbackAdvice()
	}
	if len(out.Recommendations) == 0 {
		return ports.FallbackAdvice()
	}
	return out
}

func summarizeCase(cs repository.Case) string {
	summary := fmt.Sprintf("Case in stage %q.", cs.Stage)
	if cs.TotalBudget != nil {
		summary += fmt.Sprintf(" Total budget %.0f.", *cs.TotalBudget)
	} else if cs.DownPayment != nil && cs.MonthlyInstallment != nil {
		summary += fmt.Sprintf(" Down payment %.0f with monthly installment %.0f.", *cs.DownPayment, *cs.MonthlyInstallment)
	}
	if cs.LastFeedback != nil && *cs.LastFeedback != "" {
		summary += " Last feedback: " + *cs.LastFeedback
	}
	return summary
}
