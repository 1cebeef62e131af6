package usage

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one normalized token count parsed from a completed
// upstream response. Streamed responses produce no record.
type UsageRecord struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ProjectID        uuid.UUID `json:"project_id" db:"project_id"`
	Provider         string    `json:"provider" db:"provider"`
	Model            string    `json:"model" db:"model"`
	PromptTokens     int64     `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens" db:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// MonthlyTotals aggregates a project's usage for one calendar month.
type MonthlyTotals struct {
	ProjectID        uuid.UUID `json:"project_id" db:"project_id"`
	Requests         int64     `json:"requests" db:"requests"`
	PromptTokens     int64     `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens" db:"completion_tokens"`
}

// RecordUsageRequest captures one usage event before persistence.
type RecordUsageRequest struct {
	ProjectID        uuid.UUID
	Provider         string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}
