// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"caseflow_backend/platform/events"
	"caseflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Cases Domain Events
// =============================================================================

// StageChanged is published after a case stage change is committed.
type StageChanged struct {
	BaseEvent
	CaseID       uuid.UUID  `json:"caseId"`
	OldStage     string     `json:"oldStage"`
	NewStage     string     `json:"newStage"`
	AgentID      *uuid.UUID `json:"agentId,omitempty"`
	ActingUserID uuid.UUID  `json:"actingUserId"`
	Feedback     string     `json:"feedback,omitempty"`
}

func (e StageChanged) EventName() string { return "cases.stage.changed" }

// CaseReassigned is published after a face change is committed.
type CaseReassigned struct {
	BaseEvent
	CaseID       uuid.UUID  `json:"caseId"`
	FromAgentID  *uuid.UUID `json:"fromAgentId,omitempty"`
	ToAgentID    uuid.UUID  `json:"toAgentId"`
	ActingUserID uuid.UUID  `json:"actingUserId"`
}

func (e CaseReassigned) EventName() string { return "cases.face.changed" }

// ActionCreated is published when a follow-up action is scheduled on a case.
type ActionCreated struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	ActionID   uuid.UUID `json:"actionId"`
	ActionType string    `json:"actionType"`
}

func (e ActionCreated) EventName() string { return "cases.action.created" }
