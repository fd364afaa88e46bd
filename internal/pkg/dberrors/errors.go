package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// UniqueViolation is the PostgreSQL SQLSTATE for a unique constraint violation
const UniqueViolation = "23505"

// IsDuplicateConstraintError reports whether err is a unique violation of
// the named constraint. An empty name matches any constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != UniqueViolation {
		return false
	}
	return constraintName == "" || pgErr.ConstraintName == constraintName
}
