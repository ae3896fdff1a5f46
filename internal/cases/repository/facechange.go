package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	opReassign        = "cases.repository.reassign"
	opListFaceChanges = "cases.repository.list_face_changes"
)

// FaceChange is an audit record of a case handover between agents.
type FaceChange struct {
	ID          uuid.UUID  `json:"id"`
	CaseID      uuid.UUID  `json:"caseId"`
	FromAgentID *uuid.UUID `json:"fromAgentId,omitempty"`
	ToAgentID   uuid.UUID  `json:"toAgentId"`
	Reason      *string    `json:"reason,omitempty"`
	ChangedBy   uuid.UUID  `json:"changedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ReassignParams moves a case to a new agent.
type ReassignParams struct {
	CaseID    uuid.UUID
	ToAgentID uuid.UUID
	Reason    *string
	ChangedBy uuid.UUID
}

// Reassign moves a case to a new agent and records the handover in the
// same transaction. The case row is locked first so the recorded
// fromAgentId is exactly the assignment the update replaced.
func (r *Repository) Reassign(ctx context.Context, p ReassignParams) (FaceChange, error) {
	if r == nil || r.pool == nil {
		return FaceChange{}, apperr.Internal(errRepoNotConfigured).WithOp(opReassign)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return FaceChange{}, apperr.Internal(fmt.Sprintf("begin reassign tx failed: %v", err)).WithOp(opReassign)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var fromAgentID *uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT assigned_agent_id FROM cases WHERE id = $1 FOR UPDATE`, p.CaseID,
	).Scan(&fromAgentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FaceChange{}, apperr.NotFound("case not found").WithOp(opReassign)
		}
		return FaceChange{}, apperr.Internal(fmt.Sprintf("lock case for reassign failed: %v", err)).WithOp(opReassign)
	}

	if fromAgentID != nil && *fromAgentID == p.ToAgentID {
		return FaceChange{}, apperr.Validation("case is already assigned to that agent").WithOp(opReassign)
	}

	var fc FaceChange
	err = tx.QueryRow(ctx, `
		INSERT INTO face_changes (case_id, from_agent_id, to_agent_id, reason, changed_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, case_id, from_agent_id, to_agent_id, reason, changed_by, created_at`,
		p.CaseID, fromAgentID, p.ToAgentID, p.Reason, p.ChangedBy,
	).Scan(&fc.ID, &fc.CaseID, &fc.FromAgentID, &fc.ToAgentID, &fc.Reason, &fc.ChangedBy, &fc.CreatedAt)
	if err != nil {
		return FaceChange{}, apperr.Internal(fmt.Sprintf("insert face change failed: %v", err)).WithOp(opReassign)
	}

	_, err = tx.Exec(ctx,
		`UPDATE cases SET assigned_agent_id = $2, updated_at = now() WHERE id = $1`,
		p.CaseID, p.ToAgentID)
	if err != nil {
		return FaceChange{}, apperr.Internal(fmt.Sprintf("update case assignment failed: %v", err)).WithOp(opReassign)
	}

	if err := tx.Commit(ctx); err != nil {
		return FaceChange{}, apperr.Internal(fmt.Sprintf("commit reassign tx failed: %v", err)).WithOp(opReassign)
	}
	return fc, nil
}

// ListFaceChangesByCase returns a case's handover history, newest first.
func (r *Repository) ListFaceChangesByCase(ctx context.Context, caseID uuid.UUID) ([]FaceChange, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListFaceChanges)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, from_agent_id, to_agent_id, reason, changed_by, created_at
		FROM face_changes WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list face changes failed: %v", err)).WithOp(opListFaceChanges)
	}
	defer rows.Close()

	var items []FaceChange
	for rows.Next() {
		var fc FaceChange
		if scanErr := rows.Scan(&fc.ID, &fc.CaseID, &fc.FromAgentID, &fc.ToAgentID, &fc.Reason, &fc.ChangedBy, &fc.CreatedAt); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan face change failed: %v", scanErr)).WithOp(opListFaceChanges)
		}
		items = append(items, fc)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate face changes failed: %v", rowsErr)).WithOp(opListFaceChanges)
	}
	return items, nil
}
