package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/vishnuchaithanya1/Park-Ease/internal/config"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

// NewDB opens the pool with the configured database/sql driver: "pgx"
// (jackc/pgx stdlib) or "postgres" (lib/pq).
func NewDB(cfg *config.Config) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	driver := cfg.DBDriver
	if driver == "" {
		driver = "pgx"
	}
	db, err := sql.Open(driver, psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// Store hands out the Postgres repositories over one pool.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository       { return NewPgUserRepository(s.db) }
func (s *Store) Areas() repository.AreaRepository       { return NewPgAreaRepository(s.db) }
func (s *Store) Slots() repository.SlotRepository       { return NewPgSlotRepository(s.db) }
func (s *Store) Vehicles() repository.VehicleRepository { return NewPgVehicleRepository(s.db) }
func (s *Store) Bookings() repository.BookingRepository { return NewPgBookingRepository(s.db) }
func (s *Store) Dues() repository.DueRepository         { return NewPgDueRepository(s.db) }

const uniqueViolation = "23505"

// uniqueConstraint returns the violated constraint name when err is a unique
// violation from either driver.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return pqErr.Constraint, true
	}
	return "", false
}

// conditionalResult turns a zero-row conditional write into NotFound or
// RevisionConflict depending on whether the row still exists.
func conditionalResult(ctx context.Context, db *sql.DB, res sql.Result, table string, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrRevisionConflict
}
