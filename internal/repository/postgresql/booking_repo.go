package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type pgBookingRepository struct {
	db *sql.DB
}

func NewPgBookingRepository(db *sql.DB) repository.BookingRepository {
	return &pgBookingRepository{db: db}
}

const bookingColumns = `id, slot_id, area_id, user_id, vehicle_id, class, status,
	reservation_time, arrival_time, departure_time, expected_end_time,
	multiplier, reservation_rate, parking_rate, reservation_fee, parking_fee,
	amount_paid, amount_pending, exit_token, flagged_for_review, flagged_at,
	revision, created_at, updated_at`

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(&b.ID, &b.SlotID, &b.AreaID, &b.UserID, &b.VehicleID, &b.Class, &b.Status,
		&b.ReservationTime, &b.ArrivalTime, &b.DepartureTime, &b.ExpectedEndTime,
		&b.Multiplier, &b.ReservationRate, &b.ParkingRate, &b.ReservationFee, &b.ParkingFee,
		&b.AmountPaid, &b.AmountPending, &b.ExitToken, &b.FlaggedForReview, &b.FlaggedAt,
		&b.Revision, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.ReservationTime = b.ReservationTime.In(time.UTC)
	b.ExpectedEndTime = b.ExpectedEndTime.In(time.UTC)
	if b.ArrivalTime.Valid {
		b.ArrivalTime.Time = b.ArrivalTime.Time.In(time.UTC)
	}
	if b.DepartureTime.Valid {
		b.DepartureTime.Time = b.DepartureTime.Time.In(time.UTC)
	}
	if b.FlaggedAt.Valid {
		b.FlaggedAt.Time = b.FlaggedAt.Time.In(time.UTC)
	}
	b.CreatedAt = b.CreatedAt.In(time.UTC)
	b.UpdatedAt = b.UpdatedAt.In(time.UTC)
	return b, nil
}

func (r *pgBookingRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	query := `INSERT INTO bookings (slot_id, area_id, user_id, vehicle_id, class, status,
	           reservation_time, arrival_time, departure_time, expected_end_time,
	           multiplier, reservation_rate, parking_rate, reservation_fee, parking_fee,
	           amount_paid, amount_pending, exit_token, flagged_for_review, flagged_at,
	           revision, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	           1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING ` + bookingColumns
	b := booking
	created, err := scanBooking(r.db.QueryRowContext(ctx, query,
		b.SlotID, b.AreaID, b.UserID, b.VehicleID, b.Class, b.Status,
		b.ReservationTime, b.ArrivalTime, b.DepartureTime, b.ExpectedEndTime,
		b.Multiplier, b.ReservationRate, b.ParkingRate, b.ReservationFee, b.ParkingFee,
		b.AmountPaid, b.AmountPending, b.ExitToken, b.FlaggedForReview, b.FlaggedAt))
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == "bookings_vehicle_active_idx" {
			return nil, repository.ErrVehicleBusy
		}
		return nil, fmt.Errorf("BookingRepository.Create: %w", err)
	}
	return created, nil
}

func (r *pgBookingRepository) FindByID(ctx context.Context, id int) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindByID: %w", err)
	}
	return b, nil
}

// Find builds its WHERE clause from whichever filter fields are set.
func (r *pgBookingRepository) Find(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
	var conditions []string
	var args []any
	argID := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argID))
		args = append(args, *filter.UserID)
		argID++
	}
	if filter.AreaID != nil {
		conditions = append(conditions, fmt.Sprintf("area_id = $%d", argID))
		args = append(args, *filter.AreaID)
		argID++
	}
	if filter.VehicleID != nil {
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", argID))
		args = append(args, *filter.VehicleID)
		argID++
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", argID)
			args = append(args, st)
			argID++
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	return r.query(ctx, "BookingRepository.Find", query, args...)
}

func (r *pgBookingRepository) FindActiveByVehicle(ctx context.Context, vehicleID int) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE vehicle_id = $1 AND status IN ($2, $3, $4)
	           ORDER BY id LIMIT 1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, vehicleID,
		domain.BookingReserved, domain.BookingActiveParking, domain.BookingPaymentPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindActiveByVehicle: %w", err)
	}
	return b, nil
}

func (r *pgBookingRepository) FindExpiredReservations(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.query(ctx, "BookingRepository.FindExpiredReservations",
		`SELECT `+bookingColumns+` FROM bookings WHERE status = $1 AND expected_end_time < $2 ORDER BY id`,
		domain.BookingReserved, now)
}

func (r *pgBookingRepository) FindSessionsStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	return r.query(ctx, "BookingRepository.FindSessionsStartedBefore",
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE status IN ($1, $2) AND arrival_time IS NOT NULL AND arrival_time < $3 ORDER BY id`,
		domain.BookingActiveParking, domain.BookingPaymentPending, cutoff)
}

func (r *pgBookingRepository) query(ctx context.Context, op, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *pgBookingRepository) UpdateIfRevision(ctx context.Context, booking *domain.Booking, expected int) error {
	query := `UPDATE bookings SET slot_id = $1, status = $2,
	           arrival_time = $3, departure_time = $4, expected_end_time = $5,
	           reservation_fee = $6, parking_fee = $7, amount_paid = $8, amount_pending = $9,
	           exit_token = $10, flagged_for_review = $11, flagged_at = $12,
	           revision = revision + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $13 AND revision = $14`
	b := booking
	res, err := r.db.ExecContext(ctx, query,
		b.SlotID, b.Status, b.ArrivalTime, b.DepartureTime, b.ExpectedEndTime,
		b.ReservationFee, b.ParkingFee, b.AmountPaid, b.AmountPending,
		b.ExitToken, b.FlaggedForReview, b.FlaggedAt, b.ID, expected)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == "bookings_vehicle_active_idx" {
			return repository.ErrVehicleBusy
		}
		return fmt.Errorf("BookingRepository.UpdateIfRevision: %w", err)
	}
	if err := conditionalResult(ctx, r.db, res, "bookings", b.ID); err != nil {
		return err
	}
	booking.Revision = expected + 1
	booking.UpdatedAt = time.Now().UTC()
	return nil
}
