package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type pgAreaRepository struct {
	db *sql.DB
}

func NewPgAreaRepository(db *sql.DB) repository.AreaRepository {
	return &pgAreaRepository{db: db}
}

const areaColumns = `id, owner_id, name, address, floor,
	cap_small, cap_medium, cap_large, occ_small, occ_medium, occ_large,
	demand_small, demand_medium, demand_large, rate_small, rate_medium, rate_large,
	multipliers, grace_seconds, waiver_seconds, revision, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArea(row rowScanner) (*domain.Area, error) {
	a := &domain.Area{}
	var grace, waiver int64
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Address, &a.Floor,
		&a.Capacity.Small, &a.Capacity.Medium, &a.Capacity.Large,
		&a.Occupancy.Small, &a.Occupancy.Medium, &a.Occupancy.Large,
		&a.DemandIndex.Small, &a.DemandIndex.Medium, &a.DemandIndex.Large,
		&a.BaseRates.Small, &a.BaseRates.Medium, &a.BaseRates.Large,
		pq.Array(&a.Multipliers), &grace, &waiver, &a.Revision, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.GracePeriod = time.Duration(grace) * time.Second
	a.WaiverPeriod = time.Duration(waiver) * time.Second
	a.CreatedAt = a.CreatedAt.In(time.UTC)
	a.UpdatedAt = a.UpdatedAt.In(time.UTC)
	return a, nil
}

func (r *pgAreaRepository) Create(ctx context.Context, area *domain.Area) (*domain.Area, error) {
	query := `INSERT INTO areas (owner_id, name, address, floor,
	           cap_small, cap_medium, cap_large, occ_small, occ_medium, occ_large,
	           demand_small, demand_medium, demand_large, rate_small, rate_medium, rate_large,
	           multipliers, grace_seconds, waiver_seconds, revision, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING ` + areaColumns
	created, err := scanArea(r.db.QueryRowContext(ctx, query,
		area.OwnerID, area.Name, area.Address, area.Floor,
		area.Capacity.Small, area.Capacity.Medium, area.Capacity.Large,
		area.Occupancy.Small, area.Occupancy.Medium, area.Occupancy.Large,
		area.DemandIndex.Small, area.DemandIndex.Medium, area.DemandIndex.Large,
		area.BaseRates.Small, area.BaseRates.Medium, area.BaseRates.Large,
		pq.Array(area.Multipliers), int64(area.GracePeriod/time.Second), int64(area.WaiverPeriod/time.Second)))
	if err != nil {
		return nil, fmt.Errorf("AreaRepository.Create: %w", err)
	}
	return created, nil
}

func (r *pgAreaRepository) FindByID(ctx context.Context, id int) (*domain.Area, error) {
	a, err := scanArea(r.db.QueryRowContext(ctx, `SELECT `+areaColumns+` FROM areas WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("AreaRepository.FindByID: %w", err)
	}
	return a, nil
}

func (r *pgAreaRepository) FindAll(ctx context.Context) ([]domain.Area, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+areaColumns+` FROM areas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("AreaRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var areas []domain.Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("AreaRepository.FindAll scan: %w", err)
		}
		areas = append(areas, *a)
	}
	return areas, rows.Err()
}

func (r *pgAreaRepository) UpdateIfRevision(ctx context.Context, area *domain.Area, expected int) error {
	query := `UPDATE areas SET name = $1, address = $2, floor = $3,
	           cap_small = $4, cap_medium = $5, cap_large = $6,
	           occ_small = $7, occ_medium = $8, occ_large = $9,
	           demand_small = $10, demand_medium = $11, demand_large = $12,
	           rate_small = $13, rate_medium = $14, rate_large = $15,
	           multipliers = $16, grace_seconds = $17, waiver_seconds = $18,
	           revision = revision + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $19 AND revision = $20
	           RETURNING revision, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		area.Name, area.Address, area.Floor,
		area.Capacity.Small, area.Capacity.Medium, area.Capacity.Large,
		area.Occupancy.Small, area.Occupancy.Medium, area.Occupancy.Large,
		area.DemandIndex.Small, area.DemandIndex.Medium, area.DemandIndex.Large,
		area.BaseRates.Small, area.BaseRates.Medium, area.BaseRates.Large,
		pq.Array(area.Multipliers), int64(area.GracePeriod/time.Second), int64(area.WaiverPeriod/time.Second),
		area.ID, expected,
	).Scan(&area.Revision, &area.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r.missOrConflict(ctx, area.ID)
	}
	if err != nil {
		return fmt.Errorf("AreaRepository.UpdateIfRevision: %w", err)
	}
	area.UpdatedAt = area.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgAreaRepository) missOrConflict(ctx context.Context, id int) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrRevisionConflict
}

func (r *pgAreaRepository) AssignGuard(ctx context.Context, areaID, userID int) error {
	if _, err := r.FindByID(ctx, areaID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO area_guards (area_id, user_id) VALUES ($1, $2)`, areaID, userID)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("AreaRepository.AssignGuard: %w", err)
	}
	return nil
}

func (r *pgAreaRepository) GuardAreas(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT area_id FROM area_guards WHERE user_id = $1 ORDER BY area_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("AreaRepository.GuardAreas: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("AreaRepository.GuardAreas scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
