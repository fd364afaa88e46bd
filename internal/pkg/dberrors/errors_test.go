package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	dup := &pgconn.PgError{Code: UniqueViolation, ConstraintName: "schema_migrations_pkey"}
	wrapped := fmt.Errorf("failed to record migration: %w", dup)

	if !IsDuplicateConstraintError(wrapped, "schema_migrations_pkey") {
		t.Error("wrapped duplicate not detected")
	}
	if !IsDuplicateConstraintError(dup, "") {
		t.Error("empty constraint name should match any")
	}
	if IsDuplicateConstraintError(dup, "other_pkey") {
		t.Error("matched the wrong constraint")
	}
	if IsDuplicateConstraintError(&pgconn.PgError{Code: "23503"}, "") {
		t.Error("foreign key violation reported as duplicate")
	}
	if IsDuplicateConstraintError(errors.New("boom"), "") {
		t.Error("plain error reported as duplicate")
	}
}
