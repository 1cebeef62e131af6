package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// UsageService persists usage records and serves aggregates. Postgres is
// the source of truth; the ClickHouse analytics sink is optional and
// best-effort.
type UsageService struct {
	repo      *UsageRepo
	analytics *Analytics
}

// NewUsageService creates a new usage service. analytics may be nil.
func NewUsageService(repo *UsageRepo, analytics *Analytics) *UsageService {
	return &UsageService{repo: repo, analytics: analytics}
}

// Record persists one usage event. Zero-token events from provider error
// payloads are stored too; they document the request without billing it.
func (s *UsageService) Record(ctx context.Context, req *RecordUsageRequest) (*UsageRecord, error) {
	record, err := s.repo.Insert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	if s.analytics != nil {
		if err := s.analytics.InsertEvent(ctx, record); err != nil {
			// Analytics must never fail billing writes.
			slog.WarnContext(ctx, "Failed to write usage event to analytics", slog.Any("error", err))
		}
	}

	return record, nil
}

// ListByProject returns the most recent usage records for a project
func (s *UsageService) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*UsageRecord, error) {
	return s.repo.ListByProject(ctx, projectID, limit)
}

// MonthlyTotals aggregates a project's usage for the current month
func (s *UsageService) MonthlyTotals(ctx context.Context, projectID uuid.UUID) (*MonthlyTotals, error) {
	return s.repo.TotalsForMonth(ctx, projectID, time.Now())
}

// DailyTotals returns per-day aggregates from the analytics sink. Returns
// an error when no analytics backend is configured.
func (s *UsageService) DailyTotals(ctx context.Context, projectID uuid.UUID, start, end time.Time) ([]DailyTotal, error) {
	if s.analytics == nil {
		return nil, fmt.Errorf("usage analytics backend is not configured")
	}

	return s.analytics.DailyTotals(ctx, projectID, start, end)
}
