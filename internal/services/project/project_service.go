package project

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/apiguardian/apiguardian/pkg/gateway"
	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

var ErrProjectAlreadyExists = errors.New("project already exists")

// ProjectService contains business logic for projects: gateway-key issuance
// and encryption of provider secrets before they reach the repository.
type ProjectService struct {
	repo   *ProjectRepo
	cipher *secretcipher.Cipher
}

// NewProjectService constructs a new ProjectService
func NewProjectService(repo *ProjectRepo, cipher *secretcipher.Cipher) *ProjectService {
	return &ProjectService{repo: repo, cipher: cipher}
}

// newGatewayKey issues a fresh ag- prefixed bearer credential. 32 random
// bytes give the key enough entropy that exact-match lookup is safe.
func newGatewayKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate gateway key: %w", err)
	}

	return gateway.KeyPrefix + hex.EncodeToString(buf), nil
}

// withSecretFlag fills the derived has_secret field on a freshly read row.
func withSecretFlag(p *Project) *Project {
	p.SecretConfigured = p.HasSecret()
	return p
}

// Create registers a new project ensuring name uniqueness per owner and
// issues its immutable gateway key.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	if _, err := s.repo.GetByName(ctx, req.OwnerID, req.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectAlreadyExists, req.Name)
	} else if !errors.Is(err, ErrProjectNotFound) {
		return nil, fmt.Errorf("failed to validate project name: %w", err)
	}

	key, err := newGatewayKey()
	if err != nil {
		return nil, err
	}

	project, err := s.repo.Create(ctx, req, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return withSecretFlag(project), nil
}

// GetByID fetches a project by its identifier
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return withSecretFlag(project), nil
}

// GetByGatewayKey fetches the project holding the given gateway key
func (s *ProjectService) GetByGatewayKey(ctx context.Context, key string) (*Project, error) {
	project, err := s.repo.GetByGatewayKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by gateway key: %w", err)
	}

	return withSecretFlag(project), nil
}

// List returns all projects of an owner ordered by creation time
func (s *ProjectService) List(ctx context.Context, ownerID uuid.UUID) ([]*Project, error) {
	projects, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	for _, p := range projects {
		withSecretFlag(p)
	}

	return projects, nil
}

// Update modifies mutable project fields
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if req.Name != nil && *req.Name != existing.Name {
		if _, err := s.repo.GetByName(ctx, existing.OwnerID, *req.Name); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrProjectAlreadyExists, *req.Name)
		} else if !errors.Is(err, ErrProjectNotFound) {
			return nil, fmt.Errorf("failed to validate project name: %w", err)
		}
	}

	project, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return withSecretFlag(project), nil
}

// SetProviderSecret encrypts the plaintext provider key and stores the
// resulting envelope. The plaintext is discarded as soon as this returns.
func (s *ProjectService) SetProviderSecret(ctx context.Context, id uuid.UUID, providerKey string) error {
	if providerKey == "" {
		return fmt.Errorf("provider key is required")
	}

	envelope, err := s.cipher.Encrypt(providerKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt provider key: %w", err)
	}

	if err := s.repo.UpdateSecret(ctx, id, envelope); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to store provider secret: %w", err)
	}

	return nil
}

// Delete removes a project by ID
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}
