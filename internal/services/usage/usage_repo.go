package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UsageRepo handles database operations for usage records
type UsageRepo struct {
	db *sqlx.DB
}

// NewUsageRepo creates a new usage repository
func NewUsageRepo(db *sqlx.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// Insert persists one usage record
func (r *UsageRepo) Insert(ctx context.Context, req *RecordUsageRequest) (*UsageRecord, error) {
	query := `
        INSERT INTO usage_records (project_id, provider, model, prompt_tokens, completion_tokens)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, project_id, provider, model, prompt_tokens, completion_tokens, created_at
    `

	var record UsageRecord
	err := r.db.GetContext(ctx, &record, query,
		req.ProjectID, req.Provider, req.Model, req.PromptTokens, req.CompletionTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to insert usage record: %w", err)
	}

	return &record, nil
}

// ListByProject returns the most recent usage records for a project
func (r *UsageRepo) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*UsageRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
        SELECT id, project_id, provider, model, prompt_tokens, completion_tokens, created_at
        FROM usage_records
        WHERE project_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	records := []*UsageRecord{}
	err := r.db.SelectContext(ctx, &records, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	return records, nil
}

// TotalsForMonth aggregates a project's usage for the month containing the
// given instant.
func (r *UsageRepo) TotalsForMonth(ctx context.Context, projectID uuid.UUID, at time.Time) (*MonthlyTotals, error) {
	query := `
        SELECT
            $1::uuid AS project_id,
            COUNT(*) AS requests,
            COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
            COALESCE(SUM(completion_tokens), 0) AS completion_tokens
        FROM usage_records
        WHERE project_id = $1 AND date_trunc('month', created_at) = date_trunc('month', $2::timestamptz)
    `

	var totals MonthlyTotals
	err := r.db.GetContext(ctx, &totals, query, projectID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly usage: %w", err)
	}

	return &totals, nil
}
