package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type pgSlotRepository struct {
	db *sql.DB
}

func NewPgSlotRepository(db *sql.DB) repository.SlotRepository {
	return &pgSlotRepository{db: db}
}

const slotColumns = `id, area_id, class, label, status, base_hourly_rate, revision, created_at, updated_at`

func scanSlot(row rowScanner) (*domain.Slot, error) {
	s := &domain.Slot{}
	err := row.Scan(&s.ID, &s.AreaID, &s.Class, &s.Label, &s.Status, &s.BaseHourlyRate, &s.Revision, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgSlotRepository) Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error) {
	query := `INSERT INTO slots (area_id, class, label, status, base_hourly_rate, revision, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING ` + slotColumns
	created, err := scanSlot(r.db.QueryRowContext(ctx, query, slot.AreaID, slot.Class, slot.Label, slot.Status, slot.BaseHourlyRate))
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == "slots_area_label_key" {
			return nil, fmt.Errorf("%w: slot label '%s'", repository.ErrDuplicateEntry, slot.Label)
		}
		return nil, fmt.Errorf("SlotRepository.Create: %w", err)
	}
	return created, nil
}

func (r *pgSlotRepository) FindByID(ctx context.Context, id int) (*domain.Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByID: %w", err)
	}
	return s, nil
}

func (r *pgSlotRepository) FindByAreaID(ctx context.Context, areaID int) ([]domain.Slot, error) {
	return r.query(ctx, "SlotRepository.FindByAreaID",
		`SELECT `+slotColumns+` FROM slots WHERE area_id = $1 ORDER BY label`, areaID)
}

func (r *pgSlotRepository) FindByAreaAndClass(ctx context.Context, areaID int, class domain.VehicleClass) ([]domain.Slot, error) {
	return r.query(ctx, "SlotRepository.FindByAreaAndClass",
		`SELECT `+slotColumns+` FROM slots WHERE area_id = $1 AND class = $2 ORDER BY label`, areaID, class)
}

func (r *pgSlotRepository) query(ctx context.Context, op, query string, args ...any) ([]domain.Slot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

func (r *pgSlotRepository) UpdateIfRevision(ctx context.Context, slot *domain.Slot, expected int) error {
	query := `UPDATE slots SET status = $1, base_hourly_rate = $2, revision = revision + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $3 AND revision = $4
	           RETURNING revision, updated_at`
	err := r.db.QueryRowContext(ctx, query, slot.Status, slot.BaseHourlyRate, slot.ID, expected).Scan(&slot.Revision, &slot.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.FindByID(ctx, slot.ID); err != nil {
			return err
		}
		return repository.ErrRevisionConflict
	}
	if err != nil {
		return fmt.Errorf("SlotRepository.UpdateIfRevision: %w", err)
	}
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgSlotRepository) DeleteIfRevision(ctx context.Context, id int, expected int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM slots WHERE id = $1 AND revision = $2`, id, expected)
	if err != nil {
		return fmt.Errorf("SlotRepository.DeleteIfRevision: %w", err)
	}
	return conditionalResult(ctx, r.db, res, "slots", id)
}
