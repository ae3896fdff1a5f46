package adapters

import (
	"context"
	"fmt"

	"caseflow_backend/internal/cases/ports"
	notifsvc "caseflow_backend/internal/notification/service"
)

// NotifierAdapter implements ports.Notifier on top of the notification
// service.
type NotifierAdapter struct {
	svc *notifsvc.Service
}

func NewNotifierAdapter(svc *notifsvc.Service) *NotifierAdapter {
	return &NotifierAdapter{svc: svc}
}

func (a *NotifierAdapter) Notify(ctx context.Context, p ports.NotifyParams) error {
	if a == nil || a.svc == nil {
		return fmt.Errorf("notifier not configured")
	}

	_, err := a.svc.Send(ctx, notifsvc.SendParams{
		AgentID:  p.AgentID,
		Title:    p.Title,
		Body:     p.Body,
		URL:      p.URL,
		Channels: p.Channels,
	})
	return err
}

var _ ports.Notifier = (*NotifierAdapter)(nil)
