// Package cases provides the case lifecycle bounded context module.
package cases

import (
	"context"

	"caseflow_backend/internal/cases/handler"
	"caseflow_backend/internal/cases/repository"
	"caseflow_backend/internal/cases/service"
	"caseflow_backend/internal/events"
	apphttp "caseflow_backend/internal/http"
	"caseflow_backend/platform/logger"
	"caseflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the cases bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the cases module. Collaborators that
// live in other modules (notifier, catalog, advisor) are injected via the
// service setters from the composition root.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "cases"
}

// Service returns the service layer for external wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for infrastructure callers such as the
// reminder dispatcher.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts cases routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/cases/:id", m.handler.GetCase)
	ctx.Protected.POST("/cases/:id/stage", m.handler.ChangeStage)
	ctx.Protected.POST("/cases/:id/actions", m.handler.CreateAction)
	ctx.Protected.GET("/cases/:id/actions", m.handler.ListActions)
	ctx.Protected.POST("/cases/:id/face-change", m.handler.FaceChange)
	ctx.Protected.GET("/cases/:id/face-changes", m.handler.ListFaceChanges)
	ctx.Protected.POST("/cases/:id/inventory-match", m.handler.RunInventoryMatch)

	ctx.Protected.PATCH("/actions/:id", m.handler.UpdateAction)
	ctx.Protected.POST("/actions/:id/complete", m.handler.CompleteAction)
	ctx.Protected.POST("/actions/:id/skip", m.handler.SkipAction)
}

// RegisterHandlers subscribes the advisor enrichment to stage changes.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.StageChanged{}.EventName(), m)
}

// Handle routes events to the appropriate service method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.StageChanged:
		return m.service.EnrichAfterStageChange(ctx, e)
	default:
		return nil
	}
}

var _ apphttp.Module = (*Module)(nil)
