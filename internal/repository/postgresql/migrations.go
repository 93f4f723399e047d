package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// schema is applied in order on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      VARCHAR(50) NOT NULL,
		password_hash TEXT NOT NULL,
		role          VARCHAR(20) NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT users_username_key UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS areas (
		id             SERIAL PRIMARY KEY,
		owner_id       INT NOT NULL REFERENCES users(id),
		name           TEXT NOT NULL,
		address        TEXT NOT NULL DEFAULT '',
		floor          INT NOT NULL DEFAULT 0,
		cap_small      INT NOT NULL DEFAULT 0 CHECK (cap_small >= 0),
		cap_medium     INT NOT NULL DEFAULT 0 CHECK (cap_medium >= 0),
		cap_large      INT NOT NULL DEFAULT 0 CHECK (cap_large >= 0),
		occ_small      INT NOT NULL DEFAULT 0,
		occ_medium     INT NOT NULL DEFAULT 0,
		occ_large      INT NOT NULL DEFAULT 0,
		demand_small   INT NOT NULL DEFAULT 0,
		demand_medium  INT NOT NULL DEFAULT 0,
		demand_large   INT NOT NULL DEFAULT 0,
		rate_small     NUMERIC(10,2) NOT NULL,
		rate_medium    NUMERIC(10,2) NOT NULL,
		rate_large     NUMERIC(10,2) NOT NULL,
		multipliers    FLOAT8[] NOT NULL,
		grace_seconds  BIGINT NOT NULL,
		waiver_seconds BIGINT NOT NULL,
		revision       INT NOT NULL DEFAULT 1,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT areas_occupancy_check CHECK (
			occ_small BETWEEN 0 AND cap_small AND
			occ_medium BETWEEN 0 AND cap_medium AND
			occ_large BETWEEN 0 AND cap_large)
	)`,
	`CREATE TABLE IF NOT EXISTS area_guards (
		area_id INT NOT NULL REFERENCES areas(id),
		user_id INT NOT NULL REFERENCES users(id),
		PRIMARY KEY (area_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS slots (
		id               SERIAL PRIMARY KEY,
		area_id          INT NOT NULL REFERENCES areas(id),
		class            VARCHAR(10) NOT NULL,
		label            VARCHAR(32) NOT NULL,
		status           VARCHAR(20) NOT NULL,
		base_hourly_rate NUMERIC(10,2) NOT NULL,
		revision         INT NOT NULL DEFAULT 1,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT slots_area_label_key UNIQUE (area_id, label)
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id         SERIAL PRIMARY KEY,
		plate      VARCHAR(20) NOT NULL,
		class      VARCHAR(10) NOT NULL,
		created_by INT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT vehicles_plate_key UNIQUE (plate)
	)`,
	`CREATE TABLE IF NOT EXISTS vehicle_access (
		vehicle_id INT NOT NULL REFERENCES vehicles(id),
		user_id    INT NOT NULL REFERENCES users(id),
		PRIMARY KEY (vehicle_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                 SERIAL PRIMARY KEY,
		slot_id            INT NOT NULL,
		area_id            INT NOT NULL REFERENCES areas(id),
		user_id            INT NOT NULL REFERENCES users(id),
		vehicle_id         INT NOT NULL REFERENCES vehicles(id),
		class              VARCHAR(10) NOT NULL,
		status             VARCHAR(20) NOT NULL,
		reservation_time   TIMESTAMPTZ NOT NULL,
		arrival_time       TIMESTAMPTZ,
		departure_time     TIMESTAMPTZ,
		expected_end_time  TIMESTAMPTZ NOT NULL,
		multiplier         FLOAT8 NOT NULL,
		reservation_rate   NUMERIC(10,2) NOT NULL,
		parking_rate       NUMERIC(10,2) NOT NULL,
		reservation_fee    NUMERIC(10,2) NOT NULL DEFAULT 0,
		parking_fee        NUMERIC(10,2) NOT NULL DEFAULT 0,
		amount_paid        NUMERIC(10,2) NOT NULL DEFAULT 0,
		amount_pending     NUMERIC(10,2) NOT NULL DEFAULT 0,
		exit_token         TEXT,
		flagged_for_review BOOLEAN NOT NULL DEFAULT FALSE,
		flagged_at         TIMESTAMPTZ,
		revision           INT NOT NULL DEFAULT 1,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	// At most one non-terminal booking per vehicle.
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_vehicle_active_idx
		ON bookings (vehicle_id)
		WHERE status IN ('RESERVED', 'ACTIVE_PARKING', 'PAYMENT_PENDING')`,
	`CREATE INDEX IF NOT EXISTS bookings_status_expected_end_idx ON bookings (status, expected_end_time)`,
	`CREATE TABLE IF NOT EXISTS outstanding_dues (
		id         SERIAL PRIMARY KEY,
		user_id    INT NOT NULL REFERENCES users(id),
		vehicle_id INT NOT NULL REFERENCES vehicles(id),
		booking_id INT NOT NULL REFERENCES bookings(id),
		amount     NUMERIC(10,2) NOT NULL CHECK (amount > 0),
		is_paid    BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at    TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS outstanding_dues_user_idx ON outstanding_dues (user_id) WHERE NOT is_paid`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	log.Printf("postgresql: schema up to date (%d statements)", len(schema))
	return nil
}
