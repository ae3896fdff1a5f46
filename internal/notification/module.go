// Package notification provides the notification bounded context module.
package notification

import (
	apphttp "caseflow_backend/internal/http"
	"caseflow_backend/internal/notification/email"
	"caseflow_backend/internal/notification/handler"
	"caseflow_backend/internal/notification/repository"
	"caseflow_backend/internal/notification/service"
	"caseflow_backend/platform/config"
	"caseflow_backend/platform/logger"
	"caseflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config combines the config interfaces the notification module needs.
type Config interface {
	config.EmailConfig
	config.NotificationConfig
}

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the notification module. The email
// channel is enabled only when SMTP settings are present.
func NewModule(pool *pgxpool.Pool, cfg Config, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	svc.SetAppBaseURL(cfg.GetAppBaseURL())
	if sender := email.NewSender(cfg); sender != nil {
		svc.SetEmailSender(sender)
		log.Info("notification email channel enabled")
	}

	h := handler.New(svc, val)
	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Service returns the service layer for adapters in other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts notification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications", m.handler.List)
	ctx.Protected.GET("/notifications/unread-count", m.handler.CountUnread)
	ctx.Protected.PATCH("/notifications/:id/read", m.handler.MarkRead)
	ctx.Protected.POST("/notifications/read-all", m.handler.MarkAllRead)

	ctx.Internal.POST("/notify", m.handler.Notify)
}

var _ apphttp.Module = (*Module)(nil)
