package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
)

type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

func (s *TenantStore) Create(ctx context.Context, name, slug string) (*models.Tenant, error) {
	query := `
		INSERT INTO tenants (name, slug, created_at)
		VALUES ($1, $2, now())
		RETURNING id, name, slug, created_at`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, name, slug).Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.CreatedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	return &t, nil
}

func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM tenants
		WHERE id = $1`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *TenantStore) FindBySlugOrName(ctx context.Context, sq string) (*models.Tenant, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM tenants
		WHERE slug = $1 OR name = $1`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, sq).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return &t, nil
}
