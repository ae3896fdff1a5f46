// Package adapters bridges the cases module's ports to other bounded contexts.
package adapters

import (
	"context"
	"fmt"
	"strings"

	"caseflow_backend/internal/cases/ports"
	invrepo "caseflow_backend/internal/inventory/repository"
)

// CatalogReaderAdapter implements ports.CatalogReader using the inventory
// repository. The cases module never touches inventory tables directly.
type CatalogReaderAdapter struct {
	repo *invrepo.Repository
}

func NewCatalogReaderAdapter(repo *invrepo.Repository) *CatalogReaderAdapter {
	return &CatalogReaderAdapter{repo: repo}
}

func (a *CatalogReaderAdapter) Search(ctx context.Context, params ports.UnitSearchParams) ([]ports.Unit, error) {
	if a == nil || a.repo == nil {
		return nil, fmt.Errorf("catalog reader not configured")
	}

	search := invrepo.SearchParams{
		MaxPrice:    &params.MaxPrice,
		MinBedrooms: params.MinBedrooms,
		Limit:       params.Limit,
	}
	if area := strings.TrimSpace(params.Area); area != "" {
		search.Area = &area
	}

	units, err := a.repo.Search(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("search inventory units: %w", err)
	}

	out := make([]ports.Unit, 0, len(units))
	for _, u := range units {
		out = append(out, ports.Unit{
			ID:        u.ID.String(),
			Compound:  u.Compound,
			Area:      u.Area,
			Developer: u.Developer,
			Bedrooms:  u.Bedrooms,
			AreaSqm:   u.AreaSqm,
			Price:     u.Price,
			Currency:  u.Currency,
		})
	}
	return out, nil
}

var _ ports.CatalogReader = (*CatalogReaderAdapter)(nil)
