package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
	"gopkg.in/guregu/null.v4"
)

type pgDueRepository struct {
	db *sql.DB
}

func NewPgDueRepository(db *sql.DB) repository.DueRepository {
	return &pgDueRepository{db: db}
}

const dueColumns = `id, user_id, vehicle_id, booking_id, amount, is_paid, paid_at, created_at`

func scanDue(row rowScanner) (*domain.OutstandingDue, error) {
	d := &domain.OutstandingDue{}
	if err := row.Scan(&d.ID, &d.UserID, &d.VehicleID, &d.BookingID, &d.Amount, &d.IsPaid, &d.PaidAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	if d.PaidAt.Valid {
		d.PaidAt.Time = d.PaidAt.Time.In(time.UTC)
	}
	d.CreatedAt = d.CreatedAt.In(time.UTC)
	return d, nil
}

func (r *pgDueRepository) Create(ctx context.Context, due *domain.OutstandingDue) (*domain.OutstandingDue, error) {
	createdAt := null.NewTime(due.CreatedAt, !due.CreatedAt.IsZero())
	query := `INSERT INTO outstanding_dues (user_id, vehicle_id, booking_id, amount, is_paid, paid_at, created_at)
	           VALUES ($1, $2, $3, $4, FALSE, NULL, COALESCE($5, CURRENT_TIMESTAMP))
	           RETURNING ` + dueColumns
	created, err := scanDue(r.db.QueryRowContext(ctx, query, due.UserID, due.VehicleID, due.BookingID, due.Amount, createdAt))
	if err != nil {
		return nil, fmt.Errorf("DueRepository.Create: %w", err)
	}
	return created, nil
}

func (r *pgDueRepository) FindByID(ctx context.Context, id int) (*domain.OutstandingDue, error) {
	d, err := scanDue(r.db.QueryRowContext(ctx, `SELECT `+dueColumns+` FROM outstanding_dues WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("DueRepository.FindByID: %w", err)
	}
	return d, nil
}

func (r *pgDueRepository) FindUnpaidByUser(ctx context.Context, userID int) ([]domain.OutstandingDue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dueColumns+` FROM outstanding_dues WHERE user_id = $1 AND NOT is_paid ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("DueRepository.FindUnpaidByUser: %w", err)
	}
	defer rows.Close()

	var dues []domain.OutstandingDue
	for rows.Next() {
		d, err := scanDue(rows)
		if err != nil {
			return nil, fmt.Errorf("DueRepository.FindUnpaidByUser scan: %w", err)
		}
		dues = append(dues, *d)
	}
	return dues, rows.Err()
}

func (r *pgDueRepository) SumUnpaidByUser(ctx context.Context, userID int) (float64, error) {
	return r.sum(ctx, "user_id", userID)
}

func (r *pgDueRepository) SumUnpaidByVehicle(ctx context.Context, vehicleID int) (float64, error) {
	return r.sum(ctx, "vehicle_id", vehicleID)
}

func (r *pgDueRepository) sum(ctx context.Context, column string, id int) (float64, error) {
	var total float64
	query := `SELECT COALESCE(SUM(amount), 0) FROM outstanding_dues WHERE ` + column + ` = $1 AND NOT is_paid`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&total); err != nil {
		return 0, fmt.Errorf("DueRepository.sum(%s): %w", column, err)
	}
	return total, nil
}

// MarkPaid flips is_paid only while it is still false, so concurrent
// settlements of one due report success exactly once.
func (r *pgDueRepository) MarkPaid(ctx context.Context, id int, paidAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outstanding_dues SET is_paid = TRUE, paid_at = $1 WHERE id = $2 AND NOT is_paid`, paidAt, id)
	if err != nil {
		return false, fmt.Errorf("DueRepository.MarkPaid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DueRepository.MarkPaid: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
