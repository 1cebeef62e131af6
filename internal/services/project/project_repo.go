package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectRepo handles database operations for projects
type ProjectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = "id, owner_id, name, gateway_key, encrypted_secret, monthly_budget, rate_limits, created_at, updated_at"

// Create creates a new project with its freshly issued gateway key
func (r *ProjectRepo) Create(ctx context.Context, req *CreateProjectRequest, gatewayKey string) (*Project, error) {
	query := `
        INSERT INTO projects (owner_id, name, gateway_key, monthly_budget, rate_limits)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + projectColumns

	var limits RateLimits
	if req.RateLimits != nil {
		limits = *req.RateLimits
	}

	var project Project
	err := r.db.GetContext(ctx, &project, query, req.OwnerID, req.Name, gatewayKey, req.MonthlyBudget, limits)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	var project Project
	err := r.db.GetContext(ctx, &project, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// GetByGatewayKey retrieves a project by its gateway key. The match is
// exact and case-sensitive.
func (r *ProjectRepo) GetByGatewayKey(ctx context.Context, gatewayKey string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE gateway_key = $1`

	var project Project
	err := r.db.GetContext(ctx, &project, query, gatewayKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by gateway key: %w", err)
	}

	return &project, nil
}

// GetByName retrieves a project by owner and name
func (r *ProjectRepo) GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 AND name = $2`

	var project Project
	err := r.db.GetContext(ctx, &project, query, ownerID, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// List retrieves all projects for an owner ordered by creation date
func (r *ProjectRepo) List(ctx context.Context, ownerID uuid.UUID) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`

	projects := []*Project{}
	err := r.db.SelectContext(ctx, &projects, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update modifies mutable project fields. The gateway key and the owner are
// immutable once issued.
func (r *ProjectRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argIdx := 1

	if req.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *req.Name)
		argIdx++
	}
	if req.MonthlyBudget != nil {
		sets = append(sets, fmt.Sprintf("monthly_budget = $%d", argIdx))
		args = append(args, *req.MonthlyBudget)
		argIdx++
	}
	if req.RateLimits != nil {
		sets = append(sets, fmt.Sprintf("rate_limits = $%d", argIdx))
		args = append(args, *req.RateLimits)
		argIdx++
	}

	query := fmt.Sprintf(`
        UPDATE projects SET %s
        WHERE id = $%d
        RETURNING `+projectColumns, strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	var project Project
	err := r.db.GetContext(ctx, &project, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return &project, nil
}

// UpdateSecret stores a new encrypted secret envelope for the project
func (r *ProjectRepo) UpdateSecret(ctx context.Context, id uuid.UUID, envelope string) error {
	query := `
        UPDATE projects
        SET encrypted_secret = $1, updated_at = NOW()
        WHERE id = $2
    `

	res, err := r.db.ExecContext(ctx, query, envelope, id)
	if err != nil {
		return fmt.Errorf("failed to update project secret: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update project secret: %w", err)
	}
	if rows == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// Delete removes a project by ID
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if rows == 0 {
		return ErrProjectNotFound
	}

	return nil
}
