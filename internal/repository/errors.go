package repository

import "errors"

// Sentinel errors returned by stores. Handlers translate these to
// HTTP statuses; anything else is a storage failure (500).
var (
	// ErrNotFound: the entity does not exist within the caller's tenant.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a uniqueness invariant would be violated
	// (duplicate resident identity, child id_number, username, tenant slug).
	ErrConflict = errors.New("already exists")

	// ErrForbidden: the row exists but belongs to another tenant.
	// Distinct from ErrNotFound so cross-tenant access on guessable
	// integer IDs is reported consistently as 403.
	ErrForbidden = errors.New("forbidden")
)
