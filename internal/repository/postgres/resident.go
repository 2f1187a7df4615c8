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

// Damage-level labels as they appear in the field data (Arabic:
// total, severe partial, minor). Stats match on exact equality;
// anything else falls into the no-damage remainder.
const (
	damageFull          = "كلي"
	damageSeverePartial = "جزئي بليغ"
	damagePartial       = "طفيف"
)

type ResidentStore struct {
	pool *pgxpool.Pool
}

func NewResidentStore(pool *pgxpool.Pool) *ResidentStore {
	return &ResidentStore{pool: pool}
}

const residentColumns = `id, tenant_id, husband_name, husband_id_number, wife_name, wife_id_number,
	phone_number, num_family_members, injuries, diseases, damage_level, neighborhood,
	notes, has_received_aid, residence_status`

func scanResident(row pgx.Row) (*models.Resident, error) {
	var r models.Resident
	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.HusbandName,
		&r.HusbandIDNumber,
		&r.WifeName,
		&r.WifeIDNumber,
		&r.PhoneNumber,
		&r.NumFamilyMembers,
		&r.Injuries,
		&r.Diseases,
		&r.DamageLevel,
		&r.Neighborhood,
		&r.Notes,
		&r.HasReceivedAid,
		&r.ResidenceStatus,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ResidentStore) List(ctx context.Context, tenantID uuid.UUID) ([]models.Resident, error) {
	query := `
		SELECT ` + residentColumns + `
		FROM residents
		WHERE tenant_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	defer rows.Close()

	residents := make([]models.Resident, 0)
	for rows.Next() {
		r, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resident: %w", err)
		}
		residents = append(residents, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate residents: %w", err)
	}
	return residents, nil
}

func (s *ResidentStore) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Resident, error) {
	query := `
		SELECT ` + residentColumns + `
		FROM residents
		WHERE id = $1 AND tenant_id = $2`

	r, err := scanResident(s.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resident: %w", err)
	}
	return r, nil
}

// Create inserts a resident after checking the tenant for an existing
// record sharing any identifying field. The pre-check gives a clean
// conflict answer; the partial unique indexes close the race it leaves.
func (s *ResidentStore) Create(ctx context.Context, tenantID uuid.UUID, r *models.Resident) (*models.Resident, error) {
	dupQuery := `
		SELECT EXISTS (
			SELECT 1 FROM residents
			WHERE tenant_id = $1
			  AND ((husband_id_number <> '' AND husband_id_number = $2)
			    OR (wife_id_number <> '' AND wife_id_number = $3)
			    OR (phone_number <> '' AND phone_number = $4))
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, dupQuery, tenantID,
		r.HusbandIDNumber, r.WifeIDNumber, r.PhoneNumber).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check duplicate resident: %w", err)
	}
	if exists {
		return nil, repository.ErrConflict
	}

	query := `
		INSERT INTO residents (tenant_id, husband_name, husband_id_number, wife_name,
			wife_id_number, phone_number, num_family_members, injuries, diseases,
			damage_level, neighborhood, notes, has_received_aid, residence_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + residentColumns

	created, err := scanResident(s.pool.QueryRow(ctx, query,
		tenantID, r.HusbandName, r.HusbandIDNumber, r.WifeName, r.WifeIDNumber,
		r.PhoneNumber, r.NumFamilyMembers, r.Injuries, r.Diseases, r.DamageLevel,
		r.Neighborhood, r.Notes, r.HasReceivedAid, r.ResidenceStatus))
	if err != nil {
		if uniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert resident: %w", err)
	}
	return created, nil
}

func (s *ResidentStore) Update(ctx context.Context, tenantID uuid.UUID, id int64, upd repository.ResidentUpdate) (*models.Resident, error) {
	query := `
		UPDATE residents
		SET husband_name = COALESCE($3, husband_name),
		    husband_id_number = COALESCE($4, husband_id_number),
		    wife_name = COALESCE($5, wife_name),
		    wife_id_number = COALESCE($6, wife_id_number),
		    phone_number = COALESCE($7, phone_number),
		    num_family_members = COALESCE($8, num_family_members),
		    injuries = COALESCE($9, injuries),
		    diseases = COALESCE($10, diseases),
		    damage_level = COALESCE($11, damage_level),
		    neighborhood = COALESCE($12, neighborhood),
		    notes = COALESCE($13, notes),
		    residence_status = COALESCE($14, residence_status)
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + residentColumns

	r, err := scanResident(s.pool.QueryRow(ctx, query, id, tenantID,
		upd.HusbandName, upd.HusbandIDNumber, upd.WifeName, upd.WifeIDNumber,
		upd.PhoneNumber, upd.NumFamilyMembers, upd.Injuries, upd.Diseases,
		upd.DamageLevel, upd.Neighborhood, upd.Notes, upd.ResidenceStatus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if uniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("update resident: %w", err)
	}
	return r, nil
}

// Delete removes the resident and every aid row it owns, in one
// transaction. No orphaned aid rows are permitted.
func (s *ResidentStore) Delete(ctx context.Context, tenantID uuid.UUID, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete resident: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM aids WHERE resident_id = $1 AND tenant_id = $2`, id, tenantID); err != nil {
		return fmt.Errorf("delete resident aids: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM residents WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete resident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete resident: %w", err)
	}
	return nil
}

func (s *ResidentStore) DeleteAll(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete all residents: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM aids WHERE tenant_id = $1`, tenantID); err != nil {
		return 0, fmt.Errorf("delete tenant aids: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM residents WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("delete tenant residents: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete all residents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *ResidentStore) Stats(ctx context.Context, tenantID uuid.UUID) (*models.ResidentStats, error) {
	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE has_received_aid),
		       count(*) FILTER (WHERE NOT has_received_aid),
		       count(*) FILTER (WHERE damage_level = $2),
		       count(*) FILTER (WHERE damage_level = $3),
		       count(*) FILTER (WHERE damage_level = $4)
		FROM residents
		WHERE tenant_id = $1`

	var st models.ResidentStats
	err := s.pool.QueryRow(ctx, query, tenantID,
		damageFull, damageSeverePartial, damagePartial).Scan(
		&st.TotalResidents,
		&st.Beneficiaries,
		&st.NonBeneficiaries,
		&st.FullDamage,
		&st.SeverePartialDamage,
		&st.PartialDamage,
	)
	if err != nil {
		return nil, fmt.Errorf("resident stats: %w", err)
	}
	st.TotalAids = st.Beneficiaries
	st.NoDamage = st.TotalResidents - (st.FullDamage + st.SeverePartialDamage + st.PartialDamage)
	return &st, nil
}

func (s *ResidentStore) Search(ctx context.Context, tenantID uuid.UUID, name, idNumber string) (*models.Resident, error) {
	query := `
		SELECT ` + residentColumns + `
		FROM residents
		WHERE tenant_id = $1 AND husband_name = $2 AND husband_id_number = $3`

	r, err := scanResident(s.pool.QueryRow(ctx, query, tenantID, name, idNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("search resident: %w", err)
	}
	return r, nil
}

// IdentityKeys snapshots every identifying ID number in the tenant.
// Bulk import checks rows against this set instead of querying per row.
func (s *ResidentStore) IdentityKeys(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	query := `
		SELECT husband_id_number, wife_id_number
		FROM residents
		WHERE tenant_id = $1`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resident identity keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var husbandID, wifeID string
		if err := rows.Scan(&husbandID, &wifeID); err != nil {
			return nil, fmt.Errorf("scan identity keys: %w", err)
		}
		if k := strings.TrimSpace(husbandID); k != "" {
			keys[k] = struct{}{}
		}
		if k := strings.TrimSpace(wifeID); k != "" {
			keys[k] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity keys: %w", err)
	}
	return keys, nil
}

// BulkCreate inserts an accepted import batch in one transaction.
// A failure anywhere rolls the whole batch back.
func (s *ResidentStore) BulkCreate(ctx context.Context, tenantID uuid.UUID, residents []models.Resident) error {
	if len(residents) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk create residents: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO residents (tenant_id, husband_name, husband_id_number, wife_name,
			wife_id_number, phone_number, num_family_members, injuries, diseases,
			damage_level, neighborhood, notes, has_received_aid, residence_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for i := range residents {
		r := &residents[i]
		if _, err := tx.Exec(ctx, query,
			tenantID, r.HusbandName, r.HusbandIDNumber, r.WifeName, r.WifeIDNumber,
			r.PhoneNumber, r.NumFamilyMembers, r.Injuries, r.Diseases, r.DamageLevel,
			r.Neighborhood, r.Notes, r.HasReceivedAid, r.ResidenceStatus); err != nil {
			if uniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("bulk insert resident: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk create residents: %w", err)
	}
	return nil
}
