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

type AidStore struct {
	pool *pgxpool.Pool
}

func NewAidStore(pool *pgxpool.Pool) *AidStore {
	return &AidStore{pool: pool}
}

func (s *AidStore) List(ctx context.Context, tenantID uuid.UUID) ([]models.Aid, error) {
	query := `
		SELECT a.id, a.tenant_id, a.resident_id, a.aid_type, a.date,
		       r.husband_name, r.husband_id_number
		FROM aids a
		JOIN residents r ON r.id = a.resident_id
		WHERE a.tenant_id = $1
		ORDER BY a.id`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list aids: %w", err)
	}
	defer rows.Close()

	aids := make([]models.Aid, 0)
	for rows.Next() {
		var a models.Aid
		var res models.AidResident
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ResidentID, &a.AidType, &a.Date,
			&res.HusbandName, &res.HusbandIDNumber); err != nil {
			return nil, fmt.Errorf("scan aid: %w", err)
		}
		a.Resident = &res
		aids = append(aids, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aids: %w", err)
	}
	return aids, nil
}

// Add inserts an aid row and flips the owning resident's
// has_received_aid in the same transaction, keeping the derived flag
// consistent with the ledger.
func (s *AidStore) Add(ctx context.Context, tenantID uuid.UUID, residentID int64, aidType, date string) (*models.Aid, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add aid: %w", err)
	}
	defer tx.Rollback(ctx)

	var res models.AidResident
	err = tx.QueryRow(ctx,
		`SELECT husband_name, husband_id_number FROM residents WHERE id = $1 AND tenant_id = $2`,
		residentID, tenantID).Scan(&res.HusbandName, &res.HusbandIDNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lookup resident for aid: %w", err)
	}

	var a models.Aid
	err = tx.QueryRow(ctx, `
		INSERT INTO aids (tenant_id, resident_id, aid_type, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, resident_id, aid_type, date`,
		tenantID, residentID, aidType, date).Scan(
		&a.ID, &a.TenantID, &a.ResidentID, &a.AidType, &a.Date)
	if err != nil {
		return nil, fmt.Errorf("insert aid: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE residents SET has_received_aid = true WHERE id = $1 AND tenant_id = $2`,
		residentID, tenantID); err != nil {
		return nil, fmt.Errorf("mark resident aided: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit add aid: %w", err)
	}
	a.Resident = &res
	return &a, nil
}

// tenantOf reports which tenant owns an aid row, distinguishing
// "no such row" from "someone else's row".
func (s *AidStore) tenantOf(ctx context.Context, tx pgx.Tx, aidID int64, tenantID uuid.UUID) error {
	var owner uuid.UUID
	err := tx.QueryRow(ctx, `SELECT tenant_id FROM aids WHERE id = $1`, aidID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("lookup aid tenant: %w", err)
	}
	if owner != tenantID {
		return repository.ErrForbidden
	}
	return nil
}

func (s *AidStore) Update(ctx context.Context, tenantID uuid.UUID, aidID int64, upd repository.AidUpdate) (*models.Aid, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update aid: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.tenantOf(ctx, tx, aidID, tenantID); err != nil {
		return nil, err
	}

	var a models.Aid
	err = tx.QueryRow(ctx, `
		UPDATE aids
		SET aid_type = COALESCE($3, aid_type),
		    date = COALESCE($4, date)
		WHERE id = $1 AND tenant_id = $2
		RETURNING id, tenant_id, resident_id, aid_type, date`,
		aidID, tenantID, upd.AidType, upd.Date).Scan(
		&a.ID, &a.TenantID, &a.ResidentID, &a.AidType, &a.Date)
	if err != nil {
		return nil, fmt.Errorf("update aid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update aid: %w", err)
	}
	return &a, nil
}

// Delete removes the aid row and then recounts what is left for the
// resident: the flag reflects the post-delete ledger, not a guess made
// from the pre-delete count.
func (s *AidStore) Delete(ctx context.Context, tenantID uuid.UUID, aidID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete aid: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.tenantOf(ctx, tx, aidID, tenantID); err != nil {
		return err
	}

	var residentID int64
	err = tx.QueryRow(ctx,
		`DELETE FROM aids WHERE id = $1 AND tenant_id = $2 RETURNING resident_id`,
		aidID, tenantID).Scan(&residentID)
	if err != nil {
		return fmt.Errorf("delete aid: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE residents
		SET has_received_aid = EXISTS (
			SELECT 1 FROM aids WHERE resident_id = $1 AND tenant_id = $2
		)
		WHERE id = $1 AND tenant_id = $2`,
		residentID, tenantID); err != nil {
		return fmt.Errorf("recompute resident flag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete aid: %w", err)
	}
	return nil
}

// Keys snapshots the tenant's aid rows as "resident|type|date" keys for
// import deduplication.
func (s *AidStore) Keys(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT resident_id, aid_type, date FROM aids WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("aid keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var residentID int64
		var aidType, date string
		if err := rows.Scan(&residentID, &aidType, &date); err != nil {
			return nil, fmt.Errorf("scan aid key: %w", err)
		}
		keys[repository.AidKey(residentID, aidType, date)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aid keys: %w", err)
	}
	return keys, nil
}

// BulkAdd inserts an imported aid batch in one transaction and marks
// every receiving resident in a single statement.
func (s *AidStore) BulkAdd(ctx context.Context, tenantID uuid.UUID, aids []models.Aid) error {
	if len(aids) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk add aids: %w", err)
	}
	defer tx.Rollback(ctx)

	seen := make(map[int64]struct{}, len(aids))
	residentIDs := make([]int64, 0, len(aids))
	for i := range aids {
		a := &aids[i]
		if _, err := tx.Exec(ctx,
			`INSERT INTO aids (tenant_id, resident_id, aid_type, date) VALUES ($1, $2, $3, $4)`,
			tenantID, a.ResidentID, a.AidType, a.Date); err != nil {
			return fmt.Errorf("bulk insert aid: %w", err)
		}
		if _, ok := seen[a.ResidentID]; !ok {
			seen[a.ResidentID] = struct{}{}
			residentIDs = append(residentIDs, a.ResidentID)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE residents SET has_received_aid = true WHERE tenant_id = $1 AND id = ANY($2)`,
		tenantID, residentIDs); err != nil {
		return fmt.Errorf("mark imported residents aided: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk add aids: %w", err)
	}
	return nil
}
