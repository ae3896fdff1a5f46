// Package repository provides PostgreSQL persistence for the cases
// bounded context.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opGetCase     = "cases.repository.get_case"
	opChangeStage = "cases.repository.change_stage"

	errRepoNotConfigured = "cases repository not configured"
)

// Case is a lead being worked through the sales pipeline.
type Case struct {
	ID                 uuid.UUID  `json:"id"`
	Stage              string     `json:"stage"`
	AssignedAgentID    *uuid.UUID `json:"assignedAgentId,omitempty"`
	TotalBudget        *float64   `json:"totalBudget,omitempty"`
	DownPayment        *float64   `json:"downPayment,omitempty"`
	MonthlyInstallment *float64   `json:"monthlyInstallment,omitempty"`
	LastFeedback       *string    `json:"lastFeedback,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// ChangeStageParams carries the conditional stage write. ExpectedStage is
// the stage the caller validated against; the write only succeeds if the
// persisted stage still matches it.
type ChangeStageParams struct {
	CaseID             uuid.UUID
	ExpectedStage      string
	NewStage           string
	Feedback           *string
	TotalBudget        *float64
	DownPayment        *float64
	MonthlyInstallment *float64
}

// Repository persists cases.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a cases repository backed by the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const caseColumns = `id, stage, assigned_agent_id, total_budget, down_payment, monthly_installment, last_feedback, created_at, updated_at`

func scanCase(row pgx.Row) (Case, error) {
	var cs Case
	err := row.Scan(
		&cs.ID, &cs.Stage, &cs.AssignedAgentID, &cs.TotalBudget,
		&cs.DownPayment, &cs.MonthlyInstallment, &cs.LastFeedback,
		&cs.CreatedAt, &cs.UpdatedAt,
	)
	return cs, err
}

// GetByID fetches a single case.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Case, error) {
	if r == nil || r.pool == nil {
		return Case{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetCase)
	}

	cs, err := scanCase(r.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Case{}, apperr.NotFound("case not found").WithOp(opGetCase)
		}
		return Case{}, apperr.Internal(fmt.Sprintf("get case failed: %v", err)).WithOp(opGetCase)
	}
	return cs, nil
}

// ChangeStage performs the compare-and-swap stage write: the new stage and
// accompanying fields are only persisted when the stored stage still equals
// ExpectedStage. A stale expectation surfaces as a conflict naming the
// stage the case has moved to, so two concurrent agents cannot silently
// overwrite each other.
func (r *Repository) ChangeStage(ctx context.Context, p ChangeStageParams) (Case, error) {
	if r == nil || r.pool == nil {
		return Case{}, apperr.Internal(errRepoNotConfigured).WithOp(opChangeStage)
	}

	cs, err := scanCase(r.pool.QueryRow(ctx, `
		UPDATE cases
		SET stage = $3,
		    last_feedback = COALESCE($4, last_feedback),
		    total_budget = COALESCE($5, total_budget),
		    down_payment = COALESCE($6, down_payment),
		    monthly_installment = COALESCE($7, monthly_installment),
		    updated_at = now()
		WHERE id = $1 AND stage = $2
		RETURNING `+caseColumns,
		p.CaseID, p.ExpectedStage, p.NewStage,
		p.Feedback, p.TotalBudget, p.DownPayment, p.MonthlyInstallment,
	))
	if err == nil {
		return cs, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Case{}, apperr.Internal(fmt.Sprintf("change stage failed: %v", err)).WithOp(opChangeStage)
	}

	// Zero rows: either the case is gone or the stage moved under us.
	current, getErr := r.GetByID(ctx, p.CaseID)
	if getErr != nil {
		return Case{}, getErr
	}
	return Case{}, apperr.Conflict(
		fmt.Sprintf("case stage changed concurrently: expected %q, case is now %q", p.ExpectedStage, current.Stage),
	).WithOp(opChangeStage)
}
