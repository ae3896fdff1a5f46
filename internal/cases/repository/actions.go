package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	opInsertAction  = "cases.repository.insert_action"
	opGetAction     = "cases.repository.get_action"
	opUpdateAction  = "cases.repository.update_action"
	opMarkTerminal  = "cases.repository.mark_action_terminal"
	opListActions   = "cases.repository.list_actions"
	opClaimDue      = "cases.repository.claim_due_actions"
	opResetClaim    = "cases.repository.reset_action_claim"
	errActionScan   = "scan case action failed: %v"
	fkViolationCode = "23503"
)

// CaseAction is a scheduled, time-bound follow-up task tied to a case.
// Rows are never physically deleted; the status field carries the soft
// lifecycle.
type CaseAction struct {
	ID          uuid.UUID           `json:"id"`
	CaseID      uuid.UUID           `json:"caseId"`
	ActionType  domain.ActionType   `json:"actionType"`
	Payload     json.RawMessage     `json:"payload,omitempty"`
	Status      domain.ActionStatus `json:"status"`
	DueAt       *time.Time          `json:"dueAt,omitempty"`
	NotifiedAt  *time.Time          `json:"notifiedAt,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	CreatedBy   uuid.UUID           `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// InsertActionParams creates a new PENDING action.
type InsertActionParams struct {
	CaseID     uuid.UUID
	ActionType domain.ActionType
	Payload    json.RawMessage
	DueAt      *time.Time
	CreatedBy  uuid.UUID
}

// UpdateActionParams is a partial mutation of a PENDING action. Nil fields
// are left untouched; SetDueAt distinguishes "clear dueAt" from "leave it".
type UpdateActionParams struct {
	Payload    json.RawMessage
	HasPayload bool
	DueAt      *time.Time
	SetDueAt   bool
}

// ClaimedAction is a due, previously unnotified action claimed by the
// dispatcher together with its resolved notification context.
type ClaimedAction struct {
	ActionID    uuid.UUID
	CaseID      uuid.UUID
	ActionType  domain.ActionType
	DueAt       time.Time
	CreatedBy   uuid.UUID
	CaseAgentID *uuid.UUID
}

// Target returns the agent to notify: the case's assigned agent, falling
// back to the action's creator when the case is unassigned.
func (c ClaimedAction) Target() uuid.UUID {
	if c.CaseAgentID != nil {
		return *c.CaseAgentID
	}
	return c.CreatedBy
}

const actionColumns = `id, case_id, action_type, payload, status, due_at, notified_at, completed_at, created_by, created_at, updated_at`

func scanAction(row pgx.Row) (CaseAction, error) {
	var a CaseAction
	err := row.Scan(
		&a.ID, &a.CaseID, &a.ActionType, &a.Payload, &a.Status,
		&a.DueAt, &a.NotifiedAt, &a.CompletedAt,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// InsertAction inserts a new PENDING action.
func (r *Repository) InsertAction(ctx context.Context, p InsertActionParams) (CaseAction, error) {
	if r == nil || r.pool == nil {
		return CaseAction{}, apperr.Internal(errRepoNotConfigured).WithOp(opInsertAction)
	}

	a, err := scanAction(r.pool.QueryRow(ctx, `
		INSERT INTO case_actions (case_id, action_type, payload, status, due_at, created_by)
		VALUES ($1, $2, $3, 'PENDING', $4, $5)
		RETURNING `+actionColumns,
		p.CaseID, string(p.ActionType), p.Payload, p.DueAt, p.CreatedBy,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolationCode {
			return CaseAction{}, apperr.Validation("unknown caseId or creator").WithOp(opInsertAction)
		}
		return CaseAction{}, apperr.Internal(fmt.Sprintf("insert case action failed: %v", err)).WithOp(opInsertAction)
	}
	return a, nil
}

// GetActionByID fetches a single action.
func (r *Repository) GetActionByID(ctx context.Context, id uuid.UUID) (CaseAction, error) {
	if r == nil || r.pool == nil {
		return CaseAction{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetAction)
	}

	a, err := scanAction(r.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM case_actions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CaseAction{}, apperr.NotFound("case action not found").WithOp(opGetAction)
		}
		return CaseAction{}, apperr.Internal(fmt.Sprintf(errActionScan, err)).WithOp(opGetAction)
	}
	return a, nil
}

// UpdateAction applies a partial mutation to a PENDING action. Updating a
// terminal action is a conflict.
func (r *Repository) UpdateAction(ctx context.Context, id uuid.UUID, p UpdateActionParams) (CaseAction, error) {
	if r == nil || r.pool == nil {
		return CaseAction{}, apperr.Internal(errRepoNotConfigured).WithOp(opUpdateAction)
	}

	a, err := scanAction(r.pool.QueryRow(ctx, `
		UPDATE case_actions
		SET payload = CASE WHEN $2 THEN $3 ELSE payload END,
		    due_at = CASE WHEN $4 THEN $5 ELSE due_at END,
		    updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+actionColumns,
		id, p.HasPayload, p.Payload, p.SetDueAt, p.DueAt,
	))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return CaseAction{}, apperr.Internal(fmt.Sprintf("update case action failed: %v", err)).WithOp(opUpdateAction)
	}
	return CaseAction{}, r.actionWriteConflict(ctx, id, opUpdateAction)
}

// MarkActionTerminal transitions a PENDING action to DONE or SKIPPED.
// DONE stamps completedAt. The guard on the current status makes the
// transition race-free: a second complete/skip observes zero rows and
// surfaces a conflict.
func (r *Repository) MarkActionTerminal(ctx context.Context, id uuid.UUID, status domain.ActionStatus) (CaseAction, error) {
	if r == nil || r.pool == nil {
		return CaseAction{}, apperr.Internal(errRepoNotConfigured).WithOp(opMarkTerminal)
	}
	if !status.IsTerminal() {
		return CaseAction{}, apperr.Validationf("status %q is not terminal", status).WithOp(opMarkTerminal)
	}

	a, err := scanAction(r.pool.QueryRow(ctx, `
		UPDATE case_actions
		SET status = $2,
		    completed_at = CASE WHEN $2 = 'DONE' THEN now() ELSE completed_at END,
		    updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+actionColumns,
		id, string(status),
	))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return CaseAction{}, apperr.Internal(fmt.Sprintf("mark case action %s failed: %v", status, err)).WithOp(opMarkTerminal)
	}
	return CaseAction{}, r.actionWriteConflict(ctx, id, opMarkTerminal)
}

// actionWriteConflict distinguishes "not found" from "already terminal"
// after a guarded write matched zero rows.
func (r *Repository) actionWriteConflict(ctx context.Context, id uuid.UUID, op string) error {
	current, err := r.GetActionByID(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Conflict(
		fmt.Sprintf("case action is already %s and cannot change", current.Status),
	).WithOp(op)
}

// ListActionsByCase returns all actions for a case, newest first.
func (r *Repository) ListActionsByCase(ctx context.Context, caseID uuid.UUID) ([]CaseAction, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListActions)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+actionColumns+` FROM case_actions WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list case actions failed: %v", err)).WithOp(opListActions)
	}
	defer rows.Close()

	var items []CaseAction
	for rows.Next() {
		a, scanErr := scanAction(rows)
		if scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf(errActionScan, scanErr)).WithOp(opListActions)
		}
		items = append(items, a)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate case actions failed: %v", rowsErr)).WithOp(opListActions)
	}
	return items, nil
}

// ClaimDue atomically claims due, unnotified PENDING actions by stamping
// notified_at in the same statement that selects them. Two overlapping
// dispatcher runs therefore never claim the same row: the row-level lock
// plus the notified_at IS NULL predicate make the claim exclusive.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]ClaimedAction, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opClaimDue)
	}
	if limit < 1 {
		limit = 100
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("begin claim tx failed: %v", err)).WithOp(opClaimDue)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH due AS (
		SELECT id
		FROM case_actions
		WHERE status = 'PENDING'
		  AND due_at IS NOT NULL
		  AND due_at <= $1
		  AND notified_at IS NULL
		ORDER BY due_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	UPDATE case_actions a
	SET notified_at = $1, updated_at = now()
	FROM due, cases c
	WHERE a.id = due.id AND c.id = a.case_id
	RETURNING a.id, a.case_id, a.action_type, a.due_at, a.created_by, c.assigned_agent_id`,
		now, limit)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("claim due actions failed: %v", err)).WithOp(opClaimDue)
	}
	defer rows.Close()

	var claimed []ClaimedAction
	for rows.Next() {
		var c ClaimedAction
		if scanErr := rows.Scan(&c.ActionID, &c.CaseID, &c.ActionType, &c.DueAt, &c.CreatedBy, &c.CaseAgentID); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan claimed action failed: %v", scanErr)).WithOp(opClaimDue)
		}
		claimed = append(claimed, c)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate claimed actions failed: %v", rowsErr)).WithOp(opClaimDue)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("commit claim tx failed: %v", err)).WithOp(opClaimDue)
	}
	return claimed, nil
}

// ResetClaim clears notified_at after a failed delivery so a later
// dispatcher run retries the reminder.
func (r *Repository) ResetClaim(ctx context.Context, actionID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opResetClaim)
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE case_actions SET notified_at = NULL, updated_at = now() WHERE id = $1`, actionID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("reset action claim failed: %v", err)).WithOp(opResetClaim)
	}
	return nil
}
