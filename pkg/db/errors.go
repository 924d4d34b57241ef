package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes raised when a row lock cannot be taken right now.
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	// SQLite phrases the same failure differently; both backends are in play.
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsLockContention reports whether err is a Postgres lock-wait timeout or a
// serialization failure. Both clear on retry, so callers should surface them
// as retryable conflicts rather than dependency outages.
func IsLockContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgLockNotAvailable || pgErr.Code == pgSerializationFailure
}
