package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/internal/cases/ports"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/cases/service"
	"caseflow_backend/platform/events"
	"caseflow_backend/platform/httpkit"
	"caseflow_backend/platform/logger"
	"caseflow_backend/platform/validator"
)

// stubStore serves the single case the match endpoint reads. Handler tests
// only exercise the read and match-snapshot paths.
type stubStore struct {
	cs repository.Case
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (repository.Case, error) {
	if id != s.cs.ID {
		return repository.Case{}, nil
	}
	return s.cs, nil
}

func (s *stubStore) InsertMatch(_ context.Context, p repository.InsertMatchParams) (repository.InventoryMatch, error) {
	return repository.InventoryMatch{
		ID:             uuid.New(),
		CaseID:         p.CaseID,
		Filters:        p.Filters,
		ResultCount:    p.ResultCount,
		TopUnits:       p.TopUnits,
		Recommendation: p.Recommendation,
		CreatedAt:      time.Now(),
	}, nil
}

func (s *stubStore) ChangeStage(context.Context, repository.ChangeStageParams) (repository.Case, error) {
	panic("unexpected ChangeStage")
}

func (s *stubStore) InsertAction(context.Context, repository.InsertActionParams) (repository.CaseAction, error) {
	panic("unexpected InsertAction")
}

func (s *stubStore) GetActionByID(context.Context, uuid.UUID) (repository.CaseAction, error) {
	panic("unexpected GetActionByID")
}

func (s *stubStore) UpdateAction(context.Context, uuid.UUID, repository.UpdateActionParams) (repository.CaseAction, error) {
	panic("unexpected UpdateAction")
}

func (s *stubStore) MarkActionTerminal(context.Context, uuid.UUID, domain.ActionStatus) (repository.CaseAction, error) {
	panic("unexpected MarkActionTerminal")
}

func (s *stubStore) ListActionsByCase(context.Context, uuid.UUID) ([]repository.CaseAction, error) {
	panic("unexpected ListActionsByCase")
}

func (s *stubStore) Reassign(context.Context, repository.ReassignParams) (repository.FaceChange, error) {
	panic("unexpected Reassign")
}

func (s *stubStore) ListFaceChangesByCase(context.Context, uuid.UUID) ([]repository.FaceChange, error) {
	panic("unexpected ListFaceChangesByCase")
}

func (s *stubStore) ListMatchesByCase(context.Context, uuid.UUID) ([]repository.InventoryMatch, error) {
	panic("unexpected ListMatchesByCase")
}

type stubCatalog struct {
	units []ports.Unit
}

func (c *stubCatalog) Search(context.Context, ports.UnitSearchParams) ([]ports.Unit, error) {
	return c.units, nil
}

func matchRouter(t *testing.T, cs repository.Case, catalog ports.CatalogReader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("test")
	svc := service.New(&stubStore{cs: cs}, events.NewInMemoryBus(log), log)
	svc.SetCatalogReader(catalog)
	h := New(svc, validator.New())

	agentID := uuid.New()
	r := gin.New()
	r.POST("/api/v1/cases/:id/inventory-match", func(c *gin.Context) {
		c.Set(httpkit.ContextAgentIDKey, agentID)
		c.Set(httpkit.ContextRolesKey, []string{"agent"})
	}, h.RunInventoryMatch)
	return r
}

func TestRunInventoryMatchAcceptsEmptyBody(t *testing.T) {
	budget := 3_000_000.0
	cs := repository.Case{
		ID:          uuid.New(),
		Stage:       domain.StagePotential,
		TotalBudget: &budget,
	}
	catalog := &stubCatalog{units: []ports.Unit{
		{ID: "u-1", Compound: "Palm Hills", Area: "October", Bedrooms: 3, Price: 2_500_000, Currency: "EGP"},
	}}
	r := matchRouter(t, cs, catalog)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/"+cs.ID.String()+"/inventory-match", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result service.MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.MaxPrice != budget {
		t.Errorf("maxPrice = %v, want %v", result.MaxPrice, budget)
	}
	if result.ResultCount != 1 {
		t.Errorf("resultCount = %d, want 1", result.ResultCount)
	}
}

func TestRunInventoryMatchRejectsMalformedBody(t *testing.T) {
	budget := 3_000_000.0
	cs := repository.Case{
		ID:          uuid.New(),
		Stage:       domain.StagePotential,
		TotalBudget: &budget,
	}
	r := matchRouter(t, cs, &stubCatalog{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/"+cs.ID.String()+"/inventory-match", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
