package ports

import "context"

// Unit is one inventory catalog entry as seen by the affordability matcher.
type Unit struct {
	ID        string  `json:"id"`
	Compound  string  `json:"compound"`
	Area      string  `json:"area"`
	Developer string  `json:"developer"`
	Bedrooms  int     `json:"bedrooms"`
	AreaSqm   float64 `json:"areaSqm"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}

// UnitSearchParams bound an affordability query. MaxPrice is mandatory;
// Area filters by substring, MinBedrooms by minimum count.
type UnitSearchParams struct {
	MaxPrice    float64
	Area        string
	MinBedrooms *int
	Limit       int
}

// CatalogReader exposes the inventory catalog to the matcher. Results are
// ordered ascending by price and capped at Limit.
type CatalogReader interface {
	Search(ctx context.Context, p UnitSearchParams) ([]Unit, error)
}
