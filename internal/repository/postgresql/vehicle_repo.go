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

type pgVehicleRepository struct {
	db *sql.DB
}

func NewPgVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &pgVehicleRepository{db: db}
}

func (r *pgVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `INSERT INTO vehicles (plate, class, created_by, created_at)
	           VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`
	v := *vehicle
	err := r.db.QueryRowContext(ctx, query, v.Plate, v.Class, v.CreatedBy).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == "vehicles_plate_key" {
			return nil, fmt.Errorf("%w: plate '%s'", repository.ErrDuplicateEntry, v.Plate)
		}
		return nil, fmt.Errorf("VehicleRepository.Create: %w", err)
	}
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	return &v, nil
}

func (r *pgVehicleRepository) findOne(ctx context.Context, op, where string, arg any) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, plate, class, created_by, created_at FROM vehicles WHERE ` + where
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&v.ID, &v.Plate, &v.Class, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	return v, nil
}

func (r *pgVehicleRepository) FindByID(ctx context.Context, id int) (*domain.Vehicle, error) {
	return r.findOne(ctx, "VehicleRepository.FindByID", "id = $1", id)
}

func (r *pgVehicleRepository) FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error) {
	return r.findOne(ctx, "VehicleRepository.FindByPlate", "plate = $1", plate)
}

// FindByUser lists vehicles the user registered or was granted.
func (r *pgVehicleRepository) FindByUser(ctx context.Context, userID int) ([]domain.Vehicle, error) {
	query := `SELECT v.id, v.plate, v.class, v.created_by, v.created_at
	           FROM vehicles v
	           WHERE v.created_by = $1
	              OR EXISTS (SELECT 1 FROM vehicle_access a WHERE a.vehicle_id = v.id AND a.user_id = $1)
	           ORDER BY v.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByUser: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Plate, &v.Class, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("VehicleRepository.FindByUser scan: %w", err)
		}
		v.CreatedAt = v.CreatedAt.In(time.UTC)
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *pgVehicleRepository) GrantAccess(ctx context.Context, vehicleID, userID int) error {
	if _, err := r.FindByID(ctx, vehicleID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicle_access (vehicle_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, vehicleID, userID)
	if err != nil {
		return fmt.Errorf("VehicleRepository.GrantAccess: %w", err)
	}
	return nil
}

func (r *pgVehicleRepository) HasAccess(ctx context.Context, vehicleID, userID int) (bool, error) {
	query := `SELECT v.created_by = $2
	              OR EXISTS (SELECT 1 FROM vehicle_access a WHERE a.vehicle_id = v.id AND a.user_id = $2)
	           FROM vehicles v WHERE v.id = $1`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, vehicleID, userID).Scan(&ok); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("VehicleRepository.HasAccess: %w", err)
	}
	return ok, nil
}
