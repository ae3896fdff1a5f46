// Package repository provides pgx-backed access to the inventory catalog.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opSearchUnits = "inventory.repository.search_units"
	opGetUnit     = "inventory.repository.get_unit"

	errRepoNotConfigured = "inventory repository not configured"

	// maxSearchLimit caps how many units a single search can return.
	maxSearchLimit = 50
	defaultLimit   = 10
)

// Unit is a sellable inventory unit.
type Unit struct {
	ID        uuid.UUID `json:"id"`
	Compound  string    `json:"compound"`
	Area      string    `json:"area"`
	Developer string    `json:"developer"`
	Bedrooms  int       `json:"bedrooms"`
	AreaSqm   float64   `json:"areaSqm"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchParams filters the unit search. Nil fields are not applied.
type SearchParams struct {
	MaxPrice    *float64
	Area        *string
	MinBedrooms *int
	Limit       int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const unitColumns = `id, compound, area, developer, bedrooms, area_sqm, price, currency, created_at`

func scanUnit(row pgx.Row) (Unit, error) {
	var u Unit
	err := row.Scan(&u.ID, &u.Compound, &u.Area, &u.Developer, &u.Bedrooms, &u.AreaSqm, &u.Price, &u.Currency, &u.CreatedAt)
	return u, err
}

// Search returns units matching the filters ordered by price ascending.
// The result set is always capped, even when the caller asks for more.
func (r *Repository) Search(ctx context.Context, p SearchParams) ([]Unit, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opSearchUnits)
	}

	limit := p.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	conditions := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.MaxPrice != nil {
		conditions = append(conditions, "price <= "+arg(*p.MaxPrice))
	}
	if p.Area != nil && strings.TrimSpace(*p.Area) != "" {
		conditions = append(conditions, "area ILIKE "+arg("%"+strings.TrimSpace(*p.Area)+"%"))
	}
	if p.MinBedrooms != nil {
		conditions = append(conditions, "bedrooms >= "+arg(*p.MinBedrooms))
	}

	query := `SELECT ` + unitColumns + ` FROM inventory_units WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY price ASC LIMIT ` + arg(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("search inventory units failed: %v", err)).WithOp(opSearchUnits)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		u, scanErr := scanUnit(rows)
		if scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan inventory unit failed: %v", scanErr)).WithOp(opSearchUnits)
		}
		units = append(units, u)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate inventory units failed: %v", rowsErr)).WithOp(opSearchUnits)
	}
	return units, nil
}

// GetByID fetches a single unit.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Unit, error) {
	if r == nil || r.pool == nil {
		return Unit{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetUnit)
	}

	u, err := scanUnit(r.pool.QueryRow(ctx,
		`SELECT `+unitColumns+` FROM inventory_units WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, apperr.NotFound("inventory unit not found").WithOp(opGetUnit)
		}
		return Unit{}, apperr.Internal(fmt.Sprintf("scan inventory unit failed: %v", err)).WithOp(opGetUnit)
	}
	return u, nil
}
