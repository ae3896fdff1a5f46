// Package service coordinates notification persistence and channel delivery.
package service

import (
	"context"
	"strings"

	"caseflow_backend/internal/notification/repository"
	"caseflow_backend/platform/apperr"
	"caseflow_backend/platform/logger"

	"github.com/google/uuid"
)

// EmailSender is the optional email channel.
type EmailSender interface {
	SendNotification(ctx context.Context, toEmail, title, body, url string) error
}

type Service struct {
	repo   *repository.Repository
	email  EmailSender
	appURL string
	log    *logger.Logger
}

func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// SetEmailSender injects the email channel. A nil sender disables it.
func (s *Service) SetEmailSender(sender EmailSender) {
	s.email = sender
}

// SetAppBaseURL sets the base used to absolutize relative notification URLs.
func (s *Service) SetAppBaseURL(base string) {
	s.appURL = strings.TrimRight(base, "/")
}

type SendParams struct {
	AgentID  uuid.UUID
	Title    string
	Body     string
	URL      string
	Channels []string
}

// Send persists the notification (the in-app delivery) and fans out to the
// email channel when requested. Email failures are logged, never returned:
// the persisted row is the source of truth.
func (s *Service) Send(ctx context.Context, p SendParams) (repository.Notification, error) {
	if s == nil || s.repo == nil {
		return repository.Notification{}, apperr.Internal("notification service not configured")
	}

	var url *string
	if p.URL != "" {
		full := p.URL
		if s.appURL != "" && strings.HasPrefix(full, "/") {
			full = s.appURL + full
		}
		url = &full
	}

	n, err := s.repo.Create(ctx, repository.CreateParams{
		AgentID:  p.AgentID,
		Title:    p.Title,
		Body:     p.Body,
		URL:      url,
		Channels: p.Channels,
	})
	if err != nil {
		return repository.Notification{}, err
	}

	if s.email != nil && hasChannel(n.Channels, "email") {
		s.sendEmail(ctx, n)
	}
	return n, nil
}

func (s *Service) sendEmail(ctx context.Context, n repository.Notification) {
	addr, err := s.repo.GetAgentEmail(ctx, n.AgentID)
	if err != nil {
		s.log.SideEffectError("resolve agent email", err)
		return
	}

	url := ""
	if n.URL != nil {
		url = *n.URL
	}
	if err := s.email.SendNotification(ctx, addr, n.Title, n.Body, url); err != nil {
		s.log.SideEffectError("send notification email", err)
	}
}

func hasChannel(channels []string, name string) bool {
	for _, c := range channels {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func (s *Service) List(ctx context.Context, agentID uuid.UUID, page, limit int) ([]repository.Notification, int, error) {
	offset := (page - 1) * limit
	return s.repo.List(ctx, agentID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, agentID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, agentID)
}

func (s *Service) MarkRead(ctx context.Context, agentID, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, agentID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, agentID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, agentID)
}
