package ports

import (
	"context"
)

// AdviceInput is the context handed to the coaching advisor.
type AdviceInput struct {
	Stage        string   `json:"stage"`
	CaseSummary  string   `json:"caseSummary"`
	LastFeedback string   `json:"lastFeedback,omitempty"`
	Inventory    string   `json:"inventoryContext,omitempty"`
	History      []string `json:"history,omitempty"`
}

// Recommendation is one advisor-suggested next step. SuggestedActionType,
// when set, names a declared case action type so the suggestion can be
// scheduled directly.
type Recommendation struct {
	CTA                 string `json:"cta"`
	Reason              string `json:"reason"`
	SuggestedActionType string `json:"suggestedActionType,omitempty"`
	DueInMinutes        int    `json:"dueInMinutes,omitempty"`
}

// AdviceOutput is the advisor's structured answer.
type AdviceOutput struct {
	Recommendations []Recommendation `json:"recommendations"`
	FollowupScript  string           `json:"followupScript,omitempty"`
	RiskFlags       []string         `json:"riskFlags,omitempty"`
}

// Advisor is the external coaching collaborator. Implementations may be
// slow or fail; callers bound calls with a timeout and substitute
// FallbackAdvice on any error or malformed output.
type Advisor interface {
	Advise(ctx context.Context, input AdviceInput) (AdviceOutput, error)
}

// FallbackAdvice is the fixed recommendation substituted when the advisor
// is unavailable or returns malformed output.
func FallbackAdvice() AdviceOutput {
	return AdviceOutput{
		Recommendations: []Recommendation{
			{
				CTA:                 "Schedule a meeting with the client",
				Reason:              "A direct meeting is the default next step when no tailored guidance is available",
				SuggestedActionType: "PUSH_MEETING",
				DueInMinutes:        24 * 60,
			},
		},
		FollowupScript: "Hi, I wanted to follow up on your inquiry. When would be a good time to meet?",
	}
}
