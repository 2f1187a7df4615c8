package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/takaful-app/takaful/internal/models"
)

// Every method takes ctx first and a tenant scope next. The tenant ID
// comes from verified JWT claims, never from the request body; the
// stores always filter by it, so a forgotten filter is impossible at
// the call site rather than merely discouraged.

// TenantRepository manages organization records. Tenants are created
// once and never deleted in normal operation.
type TenantRepository interface {
	// Create inserts a tenant. Returns ErrConflict if the slug is taken.
	Create(ctx context.Context, name, slug string) (*models.Tenant, error)

	// GetByID returns a tenant. Returns nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)

	// FindBySlugOrName matches either the slug or the display name.
	// Returns nil, nil if no tenant matches.
	FindBySlugOrName(ctx context.Context, s string) (*models.Tenant, error)
}

// UserRepository manages operator accounts.
type UserRepository interface {
	// Create inserts a user. Returns ErrConflict if the username is
	// already used within the tenant.
	Create(ctx context.Context, tenantID uuid.UUID, username, passwordHash, role string) (*models.User, error)

	// GetByID returns a user scoped to the tenant. nil, nil if not found.
	GetByID(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error)

	// GetByUsername returns a user by name within a tenant. nil, nil if
	// not found.
	GetByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*models.User, error)

	// FindByUsername resolves a login name across tenants. Usernames
	// are only unique per tenant, so ties go to the oldest account.
	// nil, nil if no user matches.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// ListByRole returns the tenant's users with the given role.
	ListByRole(ctx context.Context, tenantID uuid.UUID, role string) ([]models.User, error)

	// Delete removes a user within the tenant. Returns ErrNotFound if
	// absent.
	Delete(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) error

	// UpdateCredentials changes the caller's own username and/or
	// password hash. Nil pointers leave the field unchanged.
	UpdateCredentials(ctx context.Context, userID uuid.UUID, username, passwordHash *string) error

	// UpdatePermissions replaces the stored capability map wholesale.
	UpdatePermissions(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID, perms map[string]bool) error
}

// ResidentUpdate carries a partial update; nil fields keep their
// current value. HasReceivedAid is absent on purpose — it is derived
// from the aid ledger and not independently settable.
type ResidentUpdate struct {
	HusbandName      *string
	HusbandIDNumber  *string
	WifeName         *string
	WifeIDNumber     *string
	PhoneNumber      *string
	NumFamilyMembers *int
	Injuries         *string
	Diseases         *string
	DamageLevel      *string
	Neighborhood     *string
	Notes            *string
	ResidenceStatus  *string
}

// ResidentRepository manages household records and their derived
// aid-received flag.
type ResidentRepository interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Resident, error)

	// GetByID returns a resident scoped to the tenant. nil, nil if absent.
	GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Resident, error)

	// Create inserts a resident. Returns ErrConflict when another
	// resident in the tenant shares the husband ID number, wife ID
	// number or phone number.
	Create(ctx context.Context, tenantID uuid.UUID, r *models.Resident) (*models.Resident, error)

	// Update applies a partial update. Returns ErrNotFound if the
	// resident is not in the tenant.
	Update(ctx context.Context, tenantID uuid.UUID, id int64, upd ResidentUpdate) (*models.Resident, error)

	// Delete removes a resident and all aid rows it owns.
	Delete(ctx context.Context, tenantID uuid.UUID, id int64) error

	// DeleteAll removes every resident (and cascaded aid rows) for the
	// tenant and reports how many residents were removed.
	DeleteAll(ctx context.Context, tenantID uuid.UUID) (int64, error)

	Stats(ctx context.Context, tenantID uuid.UUID) (*models.ResidentStats, error)

	// Search finds a resident by exact husband name and ID number.
	// nil, nil if no match.
	Search(ctx context.Context, tenantID uuid.UUID, name, idNumber string) (*models.Resident, error)

	// IdentityKeys returns every non-empty husband and wife ID number
	// in the tenant, as one snapshot set for import deduplication.
	IdentityKeys(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error)

	// BulkCreate inserts a batch in a single transaction. All rows are
	// inserted or none.
	BulkCreate(ctx context.Context, tenantID uuid.UUID, residents []models.Resident) error
}

// AidUpdate carries a partial aid update; nil fields are unchanged.
type AidUpdate struct {
	AidType *string
	Date    *string
}

// AidRepository manages aid events. Mutations keep the owning
// resident's has_received_aid flag consistent within the same
// transaction.
type AidRepository interface {
	// List returns the tenant's aid rows joined with the owning
	// resident's identity fields, for display.
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Aid, error)

	// Add records an aid event and marks the resident as having
	// received aid. Returns ErrNotFound if the resident is not in the
	// tenant.
	Add(ctx context.Context, tenantID uuid.UUID, residentID int64, aidType, date string) (*models.Aid, error)

	// Update applies a partial update. Returns ErrNotFound if the aid
	// row does not exist and ErrForbidden if it belongs to another
	// tenant.
	Update(ctx context.Context, tenantID uuid.UUID, aidID int64, upd AidUpdate) (*models.Aid, error)

	// Delete removes an aid row, then recounts the resident's
	// remaining aid and clears has_received_aid when none is left.
	// Cross-tenant IDs return ErrForbidden.
	Delete(ctx context.Context, tenantID uuid.UUID, aidID int64) error

	// Keys returns "residentID|aidType|date" strings for every aid row
	// in the tenant, as one snapshot set for import deduplication.
	Keys(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error)

	// BulkAdd inserts a batch in one transaction and marks every
	// receiving resident's flag.
	BulkAdd(ctx context.Context, tenantID uuid.UUID, aids []models.Aid) error
}

// ChildUpdate carries a partial child update; nil fields are unchanged.
type ChildUpdate struct {
	Name         *string
	IDNumber     *string
	BirthDate    *string
	Age          *int
	Phone        *string
	Gender       *string
	BenefitType  *string
	BenefitCount *int
}

// ChildRepository manages child beneficiaries and their assistance
// history.
type ChildRepository interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Child, error)

	// GetByID returns a child scoped to the tenant. nil, nil if absent.
	GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Child, error)

	// Create inserts a child. Returns ErrConflict if the id_number is
	// already used within the tenant.
	Create(ctx context.Context, tenantID uuid.UUID, c *models.Child) (*models.Child, error)

	// Update applies a partial update. Returns ErrNotFound if the
	// child is not in the tenant.
	Update(ctx context.Context, tenantID uuid.UUID, id int64, upd ChildUpdate) (*models.Child, error)

	// DeleteByIDNumber removes a child by national ID number.
	DeleteByIDNumber(ctx context.Context, tenantID uuid.UUID, idNumber string) (*models.Child, error)

	// AddAssistance records a help event and increments the child's
	// benefit_count by one, atomically. Returns ErrNotFound if the
	// child is not in the tenant.
	AddAssistance(ctx context.Context, tenantID uuid.UUID, childID int64, helpType, otherHelp string) (*models.Assistance, error)

	// LastAssistance returns the child's most recent assistance row.
	// nil, nil if the child has never received assistance.
	LastAssistance(ctx context.Context, tenantID uuid.UUID, childID int64) (*models.Assistance, error)

	// IDNumbers returns every child id_number in the tenant, as one
	// snapshot set for import deduplication.
	IDNumbers(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error)

	// BulkCreate inserts a batch in a single transaction.
	BulkCreate(ctx context.Context, tenantID uuid.UUID, children []models.Child) error
}

// FinanceRepository is the append-only income/expense ledger. No
// reconciliation, no balance computation.
type FinanceRepository interface {
	AddImport(ctx context.Context, tenantID uuid.UUID, imp *models.Import) (*models.Import, error)
	ListImports(ctx context.Context, tenantID uuid.UUID) ([]models.Import, error)
	AddExport(ctx context.Context, tenantID uuid.UUID, exp *models.Export) (*models.Export, error)
	ListExports(ctx context.Context, tenantID uuid.UUID) ([]models.Export, error)
}

// NotificationRepository is the tenant-scoped audit trail.
type NotificationRepository interface {
	// Record appends an entry with is_new=true.
	Record(ctx context.Context, n *models.Notification) error

	// List first purges the tenant's entries older than seven days,
	// then returns up to the 5000 most recent, newest first.
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Notification, error)

	// MarkAllRead flips is_new to false on every unread entry in the
	// tenant.
	MarkAllRead(ctx context.Context, tenantID uuid.UUID) error
}
