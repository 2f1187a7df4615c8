package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/takaful-app/takaful/internal/models"
)

// FinanceStore is the append-only income/expense ledger. No derived
// state, no balances.
type FinanceStore struct {
	pool *pgxpool.Pool
}

func NewFinanceStore(pool *pgxpool.Pool) *FinanceStore {
	return &FinanceStore{pool: pool}
}

func (s *FinanceStore) AddImport(ctx context.Context, tenantID uuid.UUID, imp *models.Import) (*models.Import, error) {
	query := `
		INSERT INTO imports (tenant_id, source, name, date, type, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, source, name, date, type, amount`

	var created models.Import
	err := s.pool.QueryRow(ctx, query,
		tenantID, imp.Source, imp.Name, imp.Date, imp.Type, imp.Amount).Scan(
		&created.ID, &created.TenantID, &created.Source, &created.Name,
		&created.Date, &created.Type, &created.Amount)
	if err != nil {
		return nil, fmt.Errorf("insert import: %w", err)
	}
	return &created, nil
}

func (s *FinanceStore) ListImports(ctx context.Context, tenantID uuid.UUID) ([]models.Import, error) {
	query := `
		SELECT id, tenant_id, source, name, date, type, amount
		FROM imports
		WHERE tenant_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	imports := make([]models.Import, 0)
	for rows.Next() {
		var imp models.Import
		if err := rows.Scan(&imp.ID, &imp.TenantID, &imp.Source, &imp.Name,
			&imp.Date, &imp.Type, &imp.Amount); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return imports, nil
}

func (s *FinanceStore) AddExport(ctx context.Context, tenantID uuid.UUID, exp *models.Export) (*models.Export, error) {
	query := `
		INSERT INTO exports (tenant_id, description, amount, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, description, amount, date`

	var created models.Export
	err := s.pool.QueryRow(ctx, query,
		tenantID, exp.Description, exp.Amount, exp.Date).Scan(
		&created.ID, &created.TenantID, &created.Description, &created.Amount, &created.Date)
	if err != nil {
		return nil, fmt.Errorf("insert export: %w", err)
	}
	return &created, nil
}

func (s *FinanceStore) ListExports(ctx context.Context, tenantID uuid.UUID) ([]models.Export, error) {
	query := `
		SELECT id, tenant_id, description, amount, date
		FROM exports
		WHERE tenant_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	exports := make([]models.Export, 0)
	for rows.Next() {
		var exp models.Export
		if err := rows.Scan(&exp.ID, &exp.TenantID, &exp.Description,
			&exp.Amount, &exp.Date); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		exports = append(exports, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return exports, nil
}
