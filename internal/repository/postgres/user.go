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

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, tenant_id, username, password_hash, role, permissions, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.Permissions,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.Permissions == nil {
		u.Permissions = map[string]bool{}
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, tenantID uuid.UUID, username, passwordHash, role string) (*models.User, error) {
	query := `
		INSERT INTO users (tenant_id, username, password_hash, role, permissions, created_at)
		VALUES ($1, $2, $3, $4, '{}'::jsonb, now())
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, tenantID, username, passwordHash, role))
	if err != nil {
		if uniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND tenant_id = $2`

	u, err := scanUser(s.pool.QueryRow(ctx, query, userID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND username = $2`

	u, err := scanUser(s.pool.QueryRow(ctx, query, tenantID, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// FindByUsername resolves a login name across tenants. Usernames are
// unique per tenant only, so the oldest account wins a cross-tenant tie.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1
		ORDER BY created_at
		LIMIT 1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (s *UserStore) ListByRole(ctx context.Context, tenantID uuid.UUID, role string) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND role = $2
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, tenantID, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Delete(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM users WHERE id = $1 AND tenant_id = $2`, userID, tenantID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *UserStore) UpdateCredentials(ctx context.Context, userID uuid.UUID, username, passwordHash *string) error {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
		    password_hash = COALESCE($3, password_hash)
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, userID, username, passwordHash)
	if err != nil {
		if uniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *UserStore) UpdatePermissions(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID, perms map[string]bool) error {
	if perms == nil {
		perms = map[string]bool{}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET permissions = $3 WHERE id = $1 AND tenant_id = $2`,
		userID, tenantID, perms)
	if err != nil {
		return fmt.Errorf("update permissions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
