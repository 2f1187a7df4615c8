package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505). The schema carries tenant-scoped unique
// indexes, so this is the authoritative duplicate signal even when two
// requests race past the application-level pre-check.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
