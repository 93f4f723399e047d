package postgresql

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestUniqueConstraint(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		ok         bool
	}{
		{"pgx", &pgconn.PgError{Code: "23505", ConstraintName: "vehicles_plate_key"}, "vehicles_plate_key", true},
		{"pgx wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "bookings_vehicle_active_idx"}), "bookings_vehicle_active_idx", true},
		{"pgx other code", &pgconn.PgError{Code: "23503", ConstraintName: "bookings_user_id_fkey"}, "", false},
		{"lib/pq", &pq.Error{Code: "23505", Constraint: "users_username_key"}, "users_username_key", true},
		{"lib/pq check violation", &pq.Error{Code: "23514", Constraint: "areas_occ_small_check"}, "", false},
		{"plain error", errors.New("boom"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			constraint, ok := uniqueConstraint(tc.err)
			if ok != tc.ok || constraint != tc.constraint {
				t.Errorf("uniqueConstraint = (%q, %v), want (%q, %v)", constraint, ok, tc.constraint, tc.ok)
			}
		})
	}
}

func TestSchemaGuardsOneActiveBookingPerVehicle(t *testing.T) {
	var found bool
	for _, stmt := range schema {
		if strings.Contains(stmt, "bookings_vehicle_active_idx") {
			found = true
			for _, status := range []string{"'RESERVED'", "'ACTIVE_PARKING'", "'PAYMENT_PENDING'"} {
				if !strings.Contains(stmt, status) {
					t.Errorf("partial index does not cover %s", status)
				}
			}
			if !strings.Contains(stmt, "UNIQUE") {
				t.Error("active booking index is not unique")
			}
		}
	}
	if !found {
		t.Fatal("no active booking index in schema")
	}
}
