// Package transport defines request shapes for the cases API.
package transport

import (
	"encoding/json"
	"time"
)

// ChangeStageRequest moves a case to a new pipeline stage. Which optional
// fields are required depends on the case's current stage.
type ChangeStageRequest struct {
	Stage              string     `json:"stage" validate:"required,max=50"`
	Feedback           string     `json:"feedback" validate:"omitempty,max=2000"`
	TotalBudget        *float64   `json:"totalBudget" validate:"omitempty,gt=0"`
	DownPayment        *float64   `json:"downPayment" validate:"omitempty,gt=0"`
	MonthlyInstallment *float64   `json:"monthlyInstallment" validate:"omitempty,gt=0"`
	MeetingDate        *time.Time `json:"meetingDate"`
}

// CreateActionRequest schedules a follow-up action on a case. Payload, when
// present, must match the action type's declared shape.
type CreateActionRequest struct {
	ActionType   string          `json:"actionType" validate:"required,max=40"`
	Payload      json.RawMessage `json:"payload"`
	DueInMinutes int             `json:"dueInMinutes" validate:"omitempty,min=0,max=525600"`
}

// UpdateActionRequest partially updates a pending action. A null
// dueInMinutes leaves the due time alone; zero clears it. A status of DONE
// or SKIPPED finishes the action and cannot be combined with other fields.
type UpdateActionRequest struct {
	Payload      json.RawMessage `json:"payload"`
	DueInMinutes *int            `json:"dueInMinutes" validate:"omitempty,min=0,max=525600"`
	Status       *string         `json:"status" validate:"omitempty,oneof=DONE SKIPPED"`
}

// FaceChangeRequest hands a case over to another agent.
type FaceChangeRequest struct {
	ToAgentID string `json:"toAgentId" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"omitempty,max=1000"`
}

// InventoryMatchRequest runs the affordability matcher with optional
// overrides of the case's stored budget fields.
type InventoryMatchRequest struct {
	TotalBudget        *float64 `json:"totalBudget" validate:"omitempty,gt=0"`
	DownPayment        *float64 `json:"downPayment" validate:"omitempty,gt=0"`
	MonthlyInstallment *float64 `json:"monthlyInstallment" validate:"omitempty,gt=0"`
	Area               string   `json:"area" validate:"omitempty,max=120"`
	MinBedrooms        *int     `json:"minBedrooms" validate:"omitempty,min=0,max=20"`
}
