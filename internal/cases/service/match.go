package service

import (
	"context"
	"encoding/json"
	"fmt"

	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
)

// amortizationMonths is the financing horizon used to turn a down payment
// plus monthly installment into an affordable price ceiling.
const amortizationMonths = 60

// matchResultCap is how many top units a match snapshot keeps.
const matchResultCap = 10

// MatchParams runs the affordability matcher for a case. Area and
// MinBedrooms are optional refinements; budget overrides take precedence
// over the case's stored budget fields.
type MatchParams struct {
	CaseID        uuid.UUID
	ActingAgentID uuid.UUID

	TotalBudget        *float64
	DownPayment        *float64
	MonthlyInstallment *float64
	Area               string
	MinBedrooms        *int
}

// MatchResult is the matcher's answer: the price ceiling used, the top
// matching units and a coarse recommendation.
type MatchResult struct {
	MatchID        uuid.UUID    `json:"matchId"`
	MaxPrice       float64      `json:"maxPrice"`
	ResultCount    int          `json:"resultCount"`
	Units          []ports.Unit `json:"units"`
	Recommendation string       `json:"recommendation"`
}

// Recommendation buckets by match count.
const (
	recommendationNone   = "NO_MATCHES"
	recommendationNarrow = "FEW_MATCHES"
	recommendationGood   = "GOOD_SELECTION"
)

func bucketRecommendation(count int) string {
	switch {
	case count == 0:
		return recommendationNone
	case count <= 2:
		return recommendationNarrow
	default:
		return recommendationGood
	}
}

// resolveMaxPrice derives the price ceiling: an explicit total budget wins,
// otherwise the down payment plus installments over the financing horizon.
func resolveMaxPrice(totalBudget, downPayment, monthlyInstallment *float64) (float64, bool) {
	if totalBudget != nil && *totalBudget > 0 {
		return *totalBudget, true
	}
	if downPayment != nil && monthlyInstallment != nil && *downPayment > 0 && *monthlyInstallment > 0 {
		return *downPayment + *monthlyInstallment*amortizationMonths, true
	}
	return 0, false
}

// RunMatch executes an inventory search bounded by the case's affordable
// price, persists the snapshot and notifies the acting agent.
func (s *Service) RunMatch(ctx context.Context, p MatchParams) (MatchResult, error) {
	if s.catalog == nil {
		return MatchResult{}, apperr.Internal("inventory catalog not configured")
	}

	cs, err := s.store.GetByID(ctx, p.CaseID)
	if err != nil {
		return MatchResult{}, err
	}

	totalBudget := coalesceFloat(p.TotalBudget, cs.TotalBudget)
	downPayment := coalesceFloat(p.DownPayment, cs.DownPayment)
	installment := coalesceFloat(p.MonthlyInstallment, cs.MonthlyInstallment)

	maxPrice, ok := resolveMaxPrice(totalBudget, downPayment, installment)
	if !ok {
		return MatchResult{}, apperr.Validation("case has no resolvable budget: set totalBudget or downPayment with monthlyInstallment")
	}

	units, err := s.catalog.Search(ctx, ports.UnitSearchParams{
		MaxPrice:    maxPrice,
		Area:        p.Area,
		MinBedrooms: p.MinBedrooms,
		Limit:       matchResultCap,
	})
	if err != nil {
		return MatchResult{}, apperr.Dependency("inventory search failed", err)
	}

	result := MatchResult{
		MaxPrice:       maxPrice,
		ResultCount:    len(units),
		Units:          units,
		Recommendation: bucketRecommendation(len(units)),
	}

	filters, err := json.Marshal(map[string]any{
		"maxPrice":    maxPrice,
		"area":        p.Area,
		"minBedrooms": p.MinBedrooms,
	})
	if err != nil {
		return MatchResult{}, apperr.Internal(fmt.Sprintf("marshal match filters failed: %v", err))
	}
	topUnits, err := json.Marshal(units)
	if err != nil {
		return MatchResult{}, apperr.Internal(fmt.Sprintf("marshal match units failed: %v", err))
	}

	match, err := s.store.InsertMatch(ctx, repository.InsertMatchParams{
		CaseID:         p.CaseID,
		Filters:        filters,
		ResultCount:    len(units),
		TopUnits:       topUnits,
		Recommendation: result.Recommendation,
	})
	if err != nil {
		return MatchResult{}, err
	}
	result.MatchID = match.ID

	s.notifyMatchOutcome(ctx, p.ActingAgentID, cs.ID, result)
	return result, nil
}

func (s *Service) notifyMatchOutcome(ctx context.Context, agentID, caseID uuid.UUID, result MatchResult) {
	if s.notifier == nil || agentID == uuid.Nil {
		return
	}

	body := fmt.Sprintf("Inventory match found %d unit(s) within a budget of %.0f.", result.ResultCount, result.MaxPrice)
	if result.ResultCount == 0 {
		body = fmt.Sprintf("No inventory units fit a budget of %.0f. Consider adjusting expectations.", result.MaxPrice)
	}

	err := s.notifier.Notify(ctx, ports.NotifyParams{
		AgentID:  agentID,
		Title:    "Inventory match completed",
		Body:     body,
		URL:      fmt.Sprintf("/cases/%s", caseID),
		Channels: []string{"inapp"},
	})
	if err != nil {
		s.log.SideEffectError("notify inventory match", err)
	}
}

// ListMatches returns a case's match history, newest first.
func (s *Service) ListMatches(ctx context.Context, caseID uuid.UUID) ([]repository.InventoryMatch, error) {
	if _, err := s.store.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListMatchesByCase(ctx, caseID)
}

func coalesceFloat(override, fallback *float64) *float64 {
	if override != nil {
		return override
	}
	return fallback
}
