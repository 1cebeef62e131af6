package adapters

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/apiguardian/apiguardian/internal/services/usage"
	"github.com/apiguardian/apiguardian/pkg/gateway/providers"
)

// ServiceUsageRecorder implements gateway.UsageRecorder on top of the usage
// service. The gateway calls it from a detached goroutine after the relay
// completes; failures are logged, never surfaced to the caller.
type ServiceUsageRecorder struct {
	usage *usage.UsageService
}

// NewServiceUsageRecorder creates a usage recorder backed by the usage service.
func NewServiceUsageRecorder(svc *usage.UsageService) *ServiceUsageRecorder {
	return &ServiceUsageRecorder{usage: svc}
}

func (r *ServiceUsageRecorder) Record(ctx context.Context, projectID uuid.UUID, provider string, u *providers.Usage) {
	_, err := r.usage.Record(ctx, &usage.RecordUsageRequest{
		ProjectID:        projectID,
		Provider:         provider,
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record usage",
			slog.String("project_id", projectID.String()),
			slog.Any("error", err))
	}
}
