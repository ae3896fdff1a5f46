// Package inventory provides the inventory bounded context module.
package inventory

import (
	apphttp "caseflow_backend/internal/http"
	"caseflow_backend/internal/inventory/handler"
	"caseflow_backend/internal/inventory/repository"
	"caseflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the inventory bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

// NewModule creates and initializes the inventory module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	h := handler.New(repo, val)
	return &Module{handler: h, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "inventory"
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts inventory routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/inventory/units", m.handler.ListUnits)
	ctx.Protected.GET("/inventory/units/:id", m.handler.GetUnitByID)
}

var _ apphttp.Module = (*Module)(nil)
