// Package domain provides core business rules for the cases bounded context.
package domain

import (
	"time"

	"caseflow_backend/platform/apperr"
)

// Pipeline stages for a lead case. Closed Deal and Non Potential are
// terminal: they have no outgoing transitions.
const (
	StageNewLead          = "New Lead"
	StageAttempted        = "Attempted"
	StageCallBack         = "Call Back"
	StagePotential        = "Potential"
	StageLowBudget        = "Low Budget"
	StageMeetingScheduled = "Meeting Scheduled"
	StageMeetingDone      = "Meeting Done"
	StageHotCase          = "Hot Case"
	StageClosedDeal       = "Closed Deal"
	StageNonPotential     = "Non Potential"
)

// stageTransitions is the allowed transition graph. Terminal stages are
// present with an empty target list so they still count as known stages.
var stageTransitions = map[string][]string{
	StageNewLead:          {StageAttempted, StagePotential, StageNonPotential},
	StageAttempted:        {StageCallBack, StagePotential, StageNonPotential},
	StageCallBack:         {StagePotential, StageNonPotential},
	StagePotential:        {StageMeetingScheduled, StageLowBudget, StageHotCase, StageNonPotential},
	StageLowBudget:        {StageMeetingScheduled, StageNonPotential},
	StageMeetingScheduled: {StageMeetingDone, StageNonPotential},
	StageMeetingDone:      {StageHotCase, StageNonPotential},
	StageHotCase:          {StageClosedDeal, StageNonPotential},
	StageClosedDeal:       {},
	StageNonPotential:     {},
}

// TransitionData carries the contextual fields a stage change may require.
type TransitionData struct {
	Feedback           string
	TotalBudget        *float64
	DownPayment        *float64
	MonthlyInstallment *float64
	MeetingDate        *time.Time
}

// IsKnownStage reports whether the stage is a declared pipeline stage.
func IsKnownStage(stage string) bool {
	_, ok := stageTransitions[stage]
	return ok
}

// IsTerminalStage reports whether the stage has no outgoing transitions.
func IsTerminalStage(stage string) bool {
	targets, ok := stageTransitions[stage]
	return ok && len(targets) == 0
}

// AllowedTargets returns the declared targets for the given stage.
func AllowedTargets(stage string) []string {
	return append([]string(nil), stageTransitions[stage]...)
}

// ValidateTransition is the sole gatekeeper for stage changes: it checks,
// in order, that the target differs from the current stage, that the
// transition is declared in the graph, and that the current stage's
// required contextual fields are supplied. It has no side effects; a nil
// return means the transition is valid.
func ValidateTransition(current, target string, data TransitionData) error {
	if !IsKnownStage(current) {
		return apperr.Validationf("unknown stage %q", current)
	}
	if !IsKnownStage(target) {
		return apperr.Validationf("unknown stage %q", target)
	}
	if current == target {
		return apperr.Validation("target stage must differ from the current stage")
	}

	if !isAllowed(current, target) {
		if IsTerminalStage(current) {
			return apperr.Validationf("%q is a terminal stage and allows no further transitions", current)
		}
		return apperr.Validationf("transition from %q to %q is not allowed", current, target)
	}

	return validateRequiredData(current, data)
}

func isAllowed(current, target string) bool {
	for _, t := range stageTransitions[current] {
		if t == target {
			return true
		}
	}
	return false
}

// validateRequiredData enforces the contextual fields that gate every
// outgoing transition of the given source stage.
func validateRequiredData(current string, data TransitionData) error {
	switch current {
	case StagePotential:
		if data.Feedback == "" {
			return apperr.Validation("feedback is required to move a case out of Potential")
		}
	case StageLowBudget:
		if data.TotalBudget == nil && (data.DownPayment == nil || data.MonthlyInstallment == nil) {
			return apperr.Validation("totalBudget, or both downPayment and monthlyInstallment, are required to move a case out of Low Budget")
		}
	case StageMeetingScheduled:
		if data.MeetingDate == nil {
			return apperr.Validation("meetingDate is required to move a case out of Meeting Scheduled")
		}
		if !data.MeetingDate.After(time.Now()) {
			return apperr.Validation("meetingDate must be in the future")
		}
	}
	return nil
}
