package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
)

type ChildStore struct {
	pool *pgxpool.Pool
}

func NewChildStore(pool *pgxpool.Pool) *ChildStore {
	return &ChildStore{pool: pool}
}

const childColumns = `id, tenant_id, name, id_number, birth_date, age, phone, gender, benefit_type, benefit_count`

func scanChild(row pgx.Row) (*models.Child, error) {
	var c models.Child
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.IDNumber,
		&c.BirthDate,
		&c.Age,
		&c.Phone,
		&c.Gender,
		&c.BenefitType,
		&c.BenefitCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChildStore) List(ctx context.Context, tenantID uuid.UUID) ([]models.Child, error) {
	query := `
		SELECT ` + childColumns + `
		FROM children
		WHERE tenant_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	children := make([]models.Child, 0)
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return children, nil
}

func (s *ChildStore) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Child, error) {
	query := `
		SELECT ` + childColumns + `
		FROM children
		WHERE id = $1 AND tenant_id = $2`

	c, err := scanChild(s.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) Create(ctx context.Context, tenantID uuid.UUID, c *models.Child) (*models.Child, error) {
	query := `
		INSERT INTO children (tenant_id, name, id_number, birth_date, age, phone, gender, benefit_type, benefit_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + childColumns

	created, err := scanChild(s.pool.QueryRow(ctx, query,
		tenantID, c.Name, c.IDNumber, c.BirthDate, c.Age, c.Phone, c.Gender,
		c.BenefitType, c.BenefitCount))
	if err != nil {
		if uniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert child: %w", err)
	}
	return created, nil
}

func (s *ChildStore) Update(ctx context.Context, tenantID uuid.UUID, id int64, upd repository.ChildUpdate) (*models.Child, error) {
	query := `
		UPDATE children
		SET name = COALESCE($3, name),
		    id_number = COALESCE($4, id_number),
		    birth_date = COALESCE($5, birth_date),
		    age = COALESCE($6, age),
		    phone = COALESCE($7, phone),
		    gender = COALESCE($8, gender),
		    benefit_type = COALESCE($9, benefit_type),
		    benefit_count = COALESCE($10, benefit_count)
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + childColumns

	c, err := scanChild(s.pool.QueryRow(ctx, query, id, tenantID,
		upd.Name, upd.IDNumber, upd.BirthDate, upd.Age, upd.Phone, upd.Gender,
		upd.BenefitType, upd.BenefitCount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if uniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("update child: %w", err)
	}
	return c, nil
}

// DeleteByIDNumber removes a child addressed by national ID number and
// returns the removed record for audit logging.
func (s *ChildStore) DeleteByIDNumber(ctx context.Context, tenantID uuid.UUID, idNumber string) (*models.Child, error) {
	query := `
		DELETE FROM children
		WHERE id_number = $1 AND tenant_id = $2
		RETURNING ` + childColumns

	c, err := scanChild(s.pool.QueryRow(ctx, query, idNumber, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("delete child: %w", err)
	}
	return c, nil
}

// AddAssistance inserts the help event and bumps benefit_count in the
// same transaction. The counter only ever goes up; there is no
// assistance delete path.
func (s *ChildStore) AddAssistance(ctx context.Context, tenantID uuid.UUID, childID int64, helpType, otherHelp string) (*models.Assistance, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add assistance: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE children SET benefit_count = benefit_count + 1 WHERE id = $1 AND tenant_id = $2`,
		childID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("increment benefit count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}

	var a models.Assistance
	err = tx.QueryRow(ctx, `
		INSERT INTO assistances (tenant_id, child_id, help_type, other_help, date_added)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, tenant_id, child_id, help_type, other_help, date_added`,
		tenantID, childID, helpType, otherHelp).Scan(
		&a.ID, &a.TenantID, &a.ChildID, &a.HelpType, &a.OtherHelp, &a.DateAdded)
	if err != nil {
		return nil, fmt.Errorf("insert assistance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit add assistance: %w", err)
	}
	return &a, nil
}

func (s *ChildStore) LastAssistance(ctx context.Context, tenantID uuid.UUID, childID int64) (*models.Assistance, error) {
	query := `
		SELECT id, tenant_id, child_id, help_type, other_help, date_added
		FROM assistances
		WHERE child_id = $1 AND tenant_id = $2
		ORDER BY date_added DESC
		LIMIT 1`

	var a models.Assistance
	err := s.pool.QueryRow(ctx, query, childID, tenantID).Scan(
		&a.ID, &a.TenantID, &a.ChildID, &a.HelpType, &a.OtherHelp, &a.DateAdded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last assistance: %w", err)
	}
	return &a, nil
}

// IDNumbers snapshots the tenant's child ID numbers for import
// deduplication.
func (s *ChildStore) IDNumbers(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id_number FROM children WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("child id numbers: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var idNumber string
		if err := rows.Scan(&idNumber); err != nil {
			return nil, fmt.Errorf("scan child id number: %w", err)
		}
		if k := strings.TrimSpace(idNumber); k != "" {
			keys[k] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate child id numbers: %w", err)
	}
	return keys, nil
}

func (s *ChildStore) BulkCreate(ctx context.Context, tenantID uuid.UUID, children []models.Child) error {
	if len(children) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk create children: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO children (tenant_id, name, id_number, birth_date, age, phone, gender, benefit_type, benefit_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i := range children {
		c := &children[i]
		if _, err := tx.Exec(ctx, query,
			tenantID, c.Name, c.IDNumber, c.BirthDate, c.Age, c.Phone, c.Gender,
			c.BenefitType, c.BenefitCount); err != nil {
			if uniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("bulk insert child: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk create children: %w", err)
	}
	return nil
}
