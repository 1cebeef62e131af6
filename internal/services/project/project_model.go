package project

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// RateLimit represents a single rate limit configuration
type RateLimit struct {
	Unit  string `json:"unit" validate:"required,oneof=1min 1h 6h 12h 1d 1w 1mo"`
	Limit int64  `json:"limit" validate:"required,min=1"`
}

// RateLimits represents a list of rate limits that can be stored in JSONB
type RateLimits []RateLimit

// Scan implements the sql.Scanner interface for database/sql
func (r *RateLimits) Scan(value interface{}) error {
	if value == nil {
		*r = []RateLimit{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RateLimits", value)
	}

	return json.Unmarshal(bytes, r)
}

// Value implements the driver.Valuer interface for database/sql
func (r RateLimits) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Project represents one proxied application. The gateway key is the
// caller-facing credential; the provider secret is stored only as an
// encrypted envelope and is never returned by the API.
type Project struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	OwnerID         uuid.UUID  `json:"owner_id" db:"owner_id"`
	Name            string     `json:"name" db:"name"`
	GatewayKey      string     `json:"gateway_key" db:"gateway_key"`
	EncryptedSecret *string    `json:"-" db:"encrypted_secret"`
	MonthlyBudget   float64    `json:"monthly_budget" db:"monthly_budget"`
	RateLimits      RateLimits `json:"rate_limits" db:"rate_limits"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	// SecretConfigured is derived from EncryptedSecret after each read so
	// clients can tell a project is usable without ever seeing the envelope.
	SecretConfigured bool `json:"has_secret" db:"-"`
}

// HasSecret reports whether a provider secret is configured; the ciphertext
// itself stays out of API responses.
func (p *Project) HasSecret() bool {
	return p.EncryptedSecret != nil && *p.EncryptedSecret != ""
}

// CreateProjectRequest represents the request to create a new project
type CreateProjectRequest struct {
	OwnerID       uuid.UUID   `json:"owner_id" validate:"required"`
	Name          string      `json:"name" validate:"required,min=1,max=255"`
	MonthlyBudget float64     `json:"monthly_budget,omitempty"`
	RateLimits    *RateLimits `json:"rate_limits,omitempty"`
}

// UpdateProjectRequest represents the request to update a project
type UpdateProjectRequest struct {
	Name          *string     `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	MonthlyBudget *float64    `json:"monthly_budget,omitempty"`
	RateLimits    *RateLimits `json:"rate_limits,omitempty"`
}

// SetSecretRequest carries a plaintext provider key to be encrypted and
// stored. The plaintext never touches persistent storage or logs.
type SetSecretRequest struct {
	ProviderKey string `json:"provider_key" validate:"required,min=1"`
}
