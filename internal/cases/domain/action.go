package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"caseflow_backend/platform/apperr"
)

// ActionType identifies the kind of follow-up action scheduled on a case.
type ActionType string

const (
	ActionCallNow        ActionType = "CALL_NOW"
	ActionPushMeeting    ActionType = "PUSH_MEETING"
	ActionRemindMeeting  ActionType = "REMIND_MEETING"
	ActionChangeFace     ActionType = "CHANGE_FACE"
	ActionAskForReferral ActionType = "ASK_FOR_REFERRALS"
	ActionNurture        ActionType = "NURTURE"
	ActionCheckInventory ActionType = "CHECK_INVENTORY"
)

// ActionTypes lists every declared action type.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionCallNow,
		ActionPushMeeting,
		ActionRemindMeeting,
		ActionChangeFace,
		ActionAskForReferral,
		ActionNurture,
		ActionCheckInventory,
	}
}

// Valid reports whether the action type is declared.
func (t ActionType) Valid() bool {
	switch t {
	case ActionCallNow, ActionPushMeeting, ActionRemindMeeting, ActionChangeFace,
		ActionAskForReferral, ActionNurture, ActionCheckInventory:
		return true
	}
	return false
}

// ActionStatus is the lifecycle status of a case action.
// PENDING is the only non-terminal status.
type ActionStatus string

const (
	ActionStatusPending ActionStatus = "PENDING"
	ActionStatusDone    ActionStatus = "DONE"
	ActionStatusSkipped ActionStatus = "SKIPPED"
)

// Valid reports whether the status is declared.
func (s ActionStatus) Valid() bool {
	switch s {
	case ActionStatusPending, ActionStatusDone, ActionStatusSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (s ActionStatus) IsTerminal() bool {
	return s == ActionStatusDone || s == ActionStatusSkipped
}

// ActionPayload is the tagged union of per-type action payloads. Each
// variant is a typed struct keyed by its action type, so adding an action
// type forces the decode switch below to be extended.
type ActionPayload interface {
	PayloadType() ActionType
}

// CallNowPayload accompanies CALL_NOW actions.
type CallNowPayload struct {
	Script string `json:"script,omitempty"`
}

func (CallNowPayload) PayloadType() ActionType { return ActionCallNow }

// PushMeetingPayload accompanies PUSH_MEETING actions.
type PushMeetingPayload struct {
	ProposedAt *time.Time `json:"proposedAt,omitempty"`
	Note       string     `json:"note,omitempty"`
}

func (PushMeetingPayload) PayloadType() ActionType { return ActionPushMeeting }

// RemindMeetingPayload accompanies REMIND_MEETING actions.
type RemindMeetingPayload struct {
	MeetingAt time.Time `json:"meetingAt"`
	Location  string    `json:"location,omitempty"`
}

func (RemindMeetingPayload) PayloadType() ActionType { return ActionRemindMeeting }

// ChangeFacePayload accompanies CHANGE_FACE actions.
type ChangeFacePayload struct {
	SuggestedAgentID *uuid.UUID `json:"suggestedAgentId,omitempty"`
	Reason           string     `json:"reason,omitempty"`
}

func (ChangeFacePayload) PayloadType() ActionType { return ActionChangeFace }

// AskForReferralsPayload accompanies ASK_FOR_REFERRALS actions.
type AskForReferralsPayload struct {
	Note string `json:"note,omitempty"`
}

func (AskForReferralsPayload) PayloadType() ActionType { return ActionAskForReferral }

// NurturePayload accompanies NURTURE actions.
type NurturePayload struct {
	CadenceDays int    `json:"cadenceDays,omitempty"`
	Note        string `json:"note,omitempty"`
}

func (NurturePayload) PayloadType() ActionType { return ActionNurture }

// CheckInventoryPayload accompanies CHECK_INVENTORY actions. It mirrors
// the affordability matcher's filter inputs.
type CheckInventoryPayload struct {
	TotalBudget        *float64 `json:"totalBudget,omitempty"`
	DownPayment        *float64 `json:"downPayment,omitempty"`
	MonthlyInstallment *float64 `json:"monthlyInstallment,omitempty"`
	Area               string   `json:"area,omitempty"`
	MinBedrooms        *int     `json:"minBedrooms,omitempty"`
}

func (CheckInventoryPayload) PayloadType() ActionType { return ActionCheckInventory }

// EncodePayload serializes a payload for storage. The payload's own type
// must match actionType; a nil payload encodes as nil.
func EncodePayload(actionType ActionType, payload ActionPayload) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	if payload.PayloadType() != actionType {
		return nil, apperr.Validationf("payload type %q does not match action type %q", payload.PayloadType(), actionType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode action payload", err)
	}
	return raw, nil
}

// DecodePayload deserializes a stored payload into its typed variant.
// The switch is exhaustive over the declared action types.
func DecodePayload(actionType ActionType, raw json.RawMessage) (ActionPayload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var (
		payload ActionPayload
		err     error
	)
	switch actionType {
	case ActionCallNow:
		var p CallNowPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActionPushMeeting:
		var p PushMeetingPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActionRemindMeeting:
		var p RemindMeetingPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActionChangeFace:
		var p ChangeFacePayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActionAskForReferral:
		var p AskForReferralsPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActionNurture:
		var p NurturePayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActionCheckInventory:
		var p CheckInventoryPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, apperr.Validationf("unknown action type %q", actionType)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "malformed action payload", err)
	}
	return payload, nil
}
