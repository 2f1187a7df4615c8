package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary. Every user and every domain row
// belongs to exactly one tenant; organization A never sees B's data.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an operator account within a tenant. Role is one of
// "admin", "supervisor" or "user"; usernames are unique per tenant,
// not globally. Permissions is a capability map owned wholesale by
// the tenant admin — updates replace it, never merge.
type User struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Role         string          `json:"role"`
	Permissions  map[string]bool `json:"permissions"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Resident is a tracked household, the primary beneficiary record.
// HasReceivedAid is derived: true iff the resident owns at least one
// aid row. It is recomputed on aid insert/delete and never set
// directly by clients.
type Resident struct {
	ID               int64     `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	HusbandName      string    `json:"husband_name"`
	HusbandIDNumber  string    `json:"husband_id_number"`
	WifeName         string    `json:"wife_name"`
	WifeIDNumber     string    `json:"wife_id_number"`
	PhoneNumber      string    `json:"phone_number"`
	NumFamilyMembers *int      `json:"num_family_members"`
	Injuries         string    `json:"injuries"`
	Diseases         string    `json:"diseases"`
	DamageLevel      string    `json:"damage_level"`
	Neighborhood     string    `json:"neighborhood"`
	Notes            string    `json:"notes"`
	HasReceivedAid   bool      `json:"has_received_aid"`
	ResidenceStatus  string    `json:"residence_status"`
}

// Aid is one distribution event owned by exactly one resident.
type Aid struct {
	ID         int64     `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	ResidentID int64     `json:"resident_id"`
	AidType    string    `json:"aid_type"`
	Date       string    `json:"date"`

	// Identity fields of the owning resident, populated by list
	// queries for display. Not stored on the aid row.
	Resident *AidResident `json:"resident,omitempty"`
}

// AidResident is the slice of resident identity joined onto aid rows.
type AidResident struct {
	HusbandName     string `json:"husband_name"`
	HusbandIDNumber string `json:"husband_id_number"`
}

// Child is a tracked child beneficiary. BenefitCount is a derived
// counter: each assistance insert adds one; nothing decrements it.
type Child struct {
	ID           int64     `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Name         string    `json:"name"`
	IDNumber     string    `json:"id_number"`
	BirthDate    string    `json:"birth_date"`
	Age          int       `json:"age"`
	Phone        string    `json:"phone"`
	Gender       string    `json:"gender"`
	BenefitType  string    `json:"benefit_type"`
	BenefitCount int       `json:"benefit_count"`
}

// Assistance is one help event for a child. There is no delete path,
// which keeps BenefitCount monotonic.
type Assistance struct {
	ID        int64     `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	ChildID   int64     `json:"child_id"`
	HelpType  string    `json:"help_type"`
	OtherHelp string    `json:"other_help,omitempty"`
	DateAdded time.Time `json:"date_added"`
}

// Import is an incoming financial ledger entry (append-only).
type Import struct {
	ID       int64     `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Source   string    `json:"source"`
	Name     string    `json:"name"`
	Date     string    `json:"date"`
	Type     string    `json:"type"`
	Amount   float64   `json:"amount"`
}

// Export is an outgoing financial ledger entry (append-only).
type Export struct {
	ID          int64     `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        string    `json:"date"`
}

// Notification is an audit-trail entry. Rows older than seven days
// are purged on the next list call; IsNew flips to false in bulk via
// mark-read.
type Notification struct {
	ID         int64     `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	TargetName string    `json:"target_name,omitempty"`
	IsNew      bool      `json:"is_new"`
	Timestamp  time.Time `json:"timestamp"`
}

// ResidentStats is the aggregate returned by the residents stats
// endpoint. NoDamage is total minus the three matched damage buckets.
type ResidentStats struct {
	TotalResidents      int `json:"total_residents"`
	TotalAids           int `json:"total_aids"`
	Beneficiaries       int `json:"total_beneficiaries"`
	NonBeneficiaries    int `json:"total_non_beneficiaries"`
	FullDamage          int `json:"total_full_damage"`
	SeverePartialDamage int `json:"total_severe_partial_damage"`
	PartialDamage       int `json:"total_partial_damage"`
	NoDamage            int `json:"total_no_damage"`
}
