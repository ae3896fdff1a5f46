// Package repository provides pgx-backed persistence for agent notifications.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate        = "notification.repository.create"
	opList          = "notification.repository.list"
	opCountUnread   = "notification.repository.count_unread"
	opMarkRead      = "notification.repository.mark_read"
	opMarkAllRead   = "notification.repository.mark_all_read"
	opGetAgentEmail = "notification.repository.get_agent_email"

	errRepoNotConfigured = "notification repository not configured"
	errAgentIDRequired   = "agentId is required"
)

// Notification statuses. A row is born sent (the in-app channel delivers
// on insert commit) and becomes read on acknowledgement.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusRead    = "read"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	AgentID   uuid.UUID  `json:"agentId"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	URL       *string    `json:"url,omitempty"`
	Channels  []string   `json:"channels"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type CreateParams struct {
	AgentID  uuid.UUID
	Title    string
	Body     string
	URL      *string
	Channels []string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, agent_id, title, body, url, channels, status, sent_at, read_at, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.AgentID, &n.Title, &n.Body, &n.URL, &n.Channels, &n.Status, &n.SentAt, &n.ReadAt, &n.CreatedAt)
	return n, err
}

// Create inserts a notification already marked sent: commit of the insert
// is the in-app delivery.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.AgentID == uuid.Nil {
		return Notification{}, apperr.Validation(errAgentIDRequired).WithOp(opCreate)
	}
	if p.Title == "" || p.Body == "" {
		return Notification{}, apperr.Validation("title and body are required").WithOp(opCreate)
	}

	channels := p.Channels
	if len(channels) == 0 {
		channels = []string{"inapp"}
	}

	n, err := scanNotification(r.pool.QueryRow(ctx, `
		INSERT INTO notifications (agent_id, title, body, url, channels, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, 'sent', now())
		RETURNING `+notificationColumns,
		p.AgentID, p.Title, p.Body, p.URL, channels,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Notification{}, apperr.Validation("unknown agentId").WithOp(opCreate)
		}
		return Notification{}, apperr.Internal(fmt.Sprintf("create notification failed: %v", err)).WithOp(opCreate)
	}
	return n, nil
}

// List returns an agent's notifications, newest first, with the total count.
func (r *Repository) List(ctx context.Context, agentID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if agentID == uuid.Nil {
		return nil, 0, apperr.Validation(errAgentIDRequired).WithOp(opList)
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE agent_id = $1`, agentID).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, agentID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notification failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}
	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, agentID uuid.UUID) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if agentID == uuid.Nil {
		return 0, apperr.Validation(errAgentIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE agent_id = $1 AND status <> 'read'`, agentID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}
	return count, nil
}

// MarkRead acknowledges a single notification. Scoped by agent so one
// agent cannot acknowledge another's notifications.
func (r *Repository) MarkRead(ctx context.Context, agentID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	if agentID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("agentId and notificationId are required").WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'read', read_at = now()
		WHERE id = $1 AND agent_id = $2 AND status <> 'read'`, notificationID, agentID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found or already read").WithOp(opMarkRead)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, agentID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}
	if agentID == uuid.Nil {
		return apperr.Validation(errAgentIDRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'read', read_at = now()
		WHERE agent_id = $1 AND status <> 'read'`, agentID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}
	return nil
}

// GetAgentEmail resolves an agent's email address for the email channel.
func (r *Repository) GetAgentEmail(ctx context.Context, agentID uuid.UUID) (string, error) {
	if r == nil || r.pool == nil {
		return "", apperr.Internal(errRepoNotConfigured).WithOp(opGetAgentEmail)
	}

	var email string
	err := r.pool.QueryRow(ctx,
		`SELECT email FROM agents WHERE id = $1`, agentID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("agent not found").WithOp(opGetAgentEmail)
		}
		return "", apperr.Internal(fmt.Sprintf("get agent email failed: %v", err)).WithOp(opGetAgentEmail)
	}
	return email, nil
}
