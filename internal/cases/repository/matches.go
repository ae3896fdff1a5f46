package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"caseflow_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	opInsertMatch = "cases.repository.insert_inventory_match"
	opListMatches = "cases.repository.list_inventory_matches"
)

// InventoryMatch is a snapshot of one inventory search run for a case:
// the filters used, how many units qualified and the top results.
type InventoryMatch struct {
	ID             uuid.UUID       `json:"id"`
	CaseID         uuid.UUID       `json:"caseId"`
	Filters        json.RawMessage `json:"filters"`
	ResultCount    int             `json:"resultCount"`
	TopUnits       json.RawMessage `json:"topUnits,omitempty"`
	Recommendation string          `json:"recommendation"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// InsertMatchParams records the outcome of an inventory search.
type InsertMatchParams struct {
	CaseID         uuid.UUID
	Filters        json.RawMessage
	ResultCount    int
	TopUnits       json.RawMessage
	Recommendation string
}

// InsertMatch stores a match snapshot.
func (r *Repository) InsertMatch(ctx context.Context, p InsertMatchParams) (InventoryMatch, error) {
	if r == nil || r.pool == nil {
		return InventoryMatch{}, apperr.Internal(errRepoNotConfigured).WithOp(opInsertMatch)
	}

	var m InventoryMatch
	err := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_matches (case_id, filters, result_count, top_units, recommendation)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, case_id, filters, result_count, top_units, recommendation, created_at`,
		p.CaseID, p.Filters, p.ResultCount, p.TopUnits, p.Recommendation,
	).Scan(&m.ID, &m.CaseID, &m.Filters, &m.ResultCount, &m.TopUnits, &m.Recommendation, &m.CreatedAt)
	if err != nil {
		return InventoryMatch{}, apperr.Internal(fmt.Sprintf("insert inventory match failed: %v", err)).WithOp(opInsertMatch)
	}
	return m, nil
}

// ListMatchesByCase returns a case's match history, newest first.
func (r *Repository) ListMatchesByCase(ctx context.Context, caseID uuid.UUID) ([]InventoryMatch, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListMatches)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, filters, result_count, top_units, recommendation, created_at
		FROM inventory_matches WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list inventory matches failed: %v", err)).WithOp(opListMatches)
	}
	defer rows.Close()

	var items []InventoryMatch
	for rows.Next() {
		var m InventoryMatch
		if scanErr := rows.Scan(&m.ID, &m.CaseID, &m.Filters, &m.ResultCount, &m.TopUnits, &m.Recommendation, &m.CreatedAt); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan inventory match failed: %v", scanErr)).WithOp(opListMatches)
		}
		items = append(items, m)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate inventory matches failed: %v", rowsErr)).WithOp(opListMatches)
	}
	return items, nil
}
