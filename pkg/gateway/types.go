package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/apiguardian/apiguardian/pkg/gateway/providers"
)

// ErrKeyNotFound is returned by Directory implementations when no project
// holds the given gateway key.
var ErrKeyNotFound = errors.New("gateway key not found")

// ProjectRecord is the read-only slice of a project the gateway needs to
// authenticate and forward a request. The directory owns the full record.
type ProjectRecord struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	EncryptedSecret *string
	MonthlyBudget   float64
	RateLimits      []RateLimit
}

// Directory maps a gateway key to its project record.
// Implementations:
// - ServiceDirectory (in internal/adapters): database-backed, with an
// in-process cache invalidated over Postgres LISTEN/NOTIFY.
type Directory interface {
	FindByGatewayKey(ctx context.Context, key string) (*ProjectRecord, error)
}

// AuthContext is the per-request result of successful authentication. It
// carries the decrypted provider secret and nothing else that could widen
// the blast radius of a leak; in particular it never holds the gateway key.
// It lives for a single request and must never be persisted or logged.
type AuthContext struct {
	ProjectID     uuid.UUID
	OwnerID       uuid.UUID
	MonthlyBudget float64
	Secret        string

	rateLimits []RateLimit
}

// RateLimit is a single request ceiling for a gateway key.
type RateLimit struct {
	Unit  string `json:"unit"`
	Limit int64  `json:"limit"`
}

// UsageRecorder receives normalized usage parsed from buffered upstream
// responses. Implementations must tolerate being called from short-lived
// goroutines after the inbound request has completed.
type UsageRecorder interface {
	Record(ctx context.Context, projectID uuid.UUID, provider string, usage *providers.Usage)
}
