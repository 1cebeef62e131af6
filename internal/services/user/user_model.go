package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an account owning projects. Accounts are provisioned out-of-band
// (sign-up lives outside the gateway); the gateway only reads them.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateUserRequest captures payload for provisioning a user
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}
