// Package gemini implements the coaching advisor on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/platform/config"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

const systemInstruction = `You are a sales coach for real estate agents working lead cases.
Given a case's pipeline stage and context, suggest the next best actions.
Answer ONLY with a JSON object of this shape:
{
  "recommendations": [
    {"cta": string, "reason": string, "suggestedActionType": one of
     "CALL_NOW","PUSH_MEETING","REMIND_MEETING","CHANGE_FACE","ASK_FOR_REFERRALS","NURTURE","CHECK_INVENTORY",
     "dueInMinutes": integer}
  ],
  "followupScript": string,
  "riskFlags": [string]
}
Keep recommendations to at most three, concrete and stage-appropriate.`

// Advisor calls Gemini in JSON response mode and parses the structured
// advice. It implements ports.Advisor.
type Advisor struct {
	client *genai.Client
	model  string
}

func NewAdvisor(ctx context.Context, cfg config.AdvisorConfig) (*Advisor, error) {
	if !cfg.IsAdvisorEnabled() {
		return nil, fmt.Errorf("advisor api key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.GetAdvisorModel()
	if model == "" {
		model = defaultModel
	}
	return &Advisor{client: client, model: model}, nil
}

func (a *Advisor) Advise(ctx context.Context, input ports.AdviceInput) (ports.AdviceOutput, error) {
	if a == nil || a.client == nil {
		return ports.AdviceOutput{}, fmt.Errorf("advisor not configured")
	}

	prompt, err := buildPrompt(input)
	if err != nil {
		return ports.AdviceOutput{}, err
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return ports.AdviceOutput{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return ports.AdviceOutput{}, fmt.Errorf("gemini returned empty response")
	}

	var out ports.AdviceOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return ports.AdviceOutput{}, fmt.Errorf("parse advisor response: %w", err)
	}
	if len(out.Recommendations) == 0 {
		return ports.AdviceOutput{}, fmt.Errorf("advisor response has no recommendations")
	}
	return out, nil
}

func buildPrompt(input ports.AdviceInput) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal advice input: %w", err)
	}
	return "Case context:\n" + string(data), nil
}

var _ ports.Advisor = (*Advisor)(nil)
