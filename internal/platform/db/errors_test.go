package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "services_weekly_week_month_service_key"}
	if !IsUniqueViolation(pgErr) {
		t.Error("expected 23505 to classify as unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert services_weekly: %w", pgErr)) {
		t.Error("classification should see through wrapping")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 is not a unique violation")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("plain errors are not unique violations")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", ConstraintName: "staff_schedule_staff_id_fkey"}
	if !IsForeignKeyViolation(pgErr) {
		t.Error("expected 23503 to classify as foreign key violation")
	}
	if IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("23505 is not a foreign key violation")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(pgx.ErrNoRows) {
		t.Error("expected pgx.ErrNoRows to classify as no rows")
	}
	if !IsNoRows(fmt.Errorf("get patient: %w", pgx.ErrNoRows)) {
		t.Error("classification should see through wrapping")
	}
	if IsNoRows(errors.New("plain")) {
		t.Error("plain errors do not mean no rows")
	}
}
