package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPayloadRoundTripAllTypes(t *testing.T) {
	agentID := uuid.New()
	meetingAt := time.Date(2026, 9, 12, 14, 0, 0, 0, time.UTC)
	budget := 1_500_000.0
	bedrooms := 3

	payloads := []ActionPayload{
		CallNowPayload{Script: "introduce the new compound"},
		PushMeetingPayload{Note: "client prefers evenings"},
		RemindMeetingPayload{MeetingAt: meetingAt, Location: "sales office"},
		ChangeFacePayload{SuggestedAgentID: &agentID, Reason: "language mismatch"},
		AskForReferralsPayload{Note: "closed last month"},
		NurturePayload{CadenceDays: 14},
		CheckInventoryPayload{TotalBudget: &budget, Area: "New Cairo", MinBedrooms: &bedrooms},
	}

	seen := make(map[ActionType]bool)
	for _, p := range payloads {
		raw, err := EncodePayload(p.PayloadType(), p)
		if err != nil {
			t.Fatalf("EncodePayload(%s): %v", p.PayloadType(), err)
		}
		decoded, err := DecodePayload(p.PayloadType(), raw)
		if err != nil {
			t.Fatalf("DecodePayload(%s): %v", p.PayloadType(), err)
		}
		if decoded.PayloadType() != p.PayloadType() {
			t.Errorf("round trip changed payload type: %s -> %s", p.PayloadType(), decoded.PayloadType())
		}
		seen[p.PayloadType()] = true
	}

	// The round trip above must cover every declared action type.
	for _, at := range ActionTypes() {
		if !seen[at] {
			t.Errorf("no payload variant covered for action type %s", at)
		}
	}
}

func TestEncodePayloadTypeMismatch(t *testing.T) {
	if _, err := EncodePayload(ActionCallNow, NurturePayload{}); err == nil {
		t.Error("EncodePayload accepted a payload of the wrong type")
	}
}

func TestDecodePayloadNilAndUnknown(t *testing.T) {
	p, err := DecodePayload(ActionCallNow, nil)
	if err != nil || p != nil {
		t.Errorf("DecodePayload(nil) = (%v, %v), want (nil, nil)", p, err)
	}
	if _, err := DecodePayload("TELEPORT", []byte(`{}`)); err == nil {
		t.Error("DecodePayload accepted an unknown action type")
	}
}

func TestActionStatusTerminality(t *testing.T) {
	if ActionStatusPending.IsTerminal() {
		t.Error("PENDING must not be terminal")
	}
	if !ActionStatusDone.IsTerminal() || !ActionStatusSkipped.IsTerminal() {
		t.Error("DONE and SKIPPED must be terminal")
	}
}

func TestActionTypeValid(t *testing.T) {
	for _, at := range ActionTypes() {
		if !at.Valid() {
			t.Errorf("declared action type %s reported invalid", at)
		}
	}
	if ActionType("TELEPORT").Valid() {
		t.Error("undeclared action type reported valid")
	}
}
