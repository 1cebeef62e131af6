package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UserService handles business logic for users
type UserService struct {
	repo *UserRepo
}

// NewUserService creates a new user service
func NewUserService(repo *UserRepo) *UserService {
	return &UserService{repo: repo}
}

// Create provisions a new user account
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if existing, err := s.repo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("user with email '%s' already exists", req.Email)
	}

	user, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
