package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type VehicleService struct {
	vehicles repository.VehicleRepository
	users    repository.UserRepository
	dues     *DuesLedger
}

func NewVehicleService(vehicles repository.VehicleRepository, users repository.UserRepository, dues *DuesLedger) *VehicleService {
	return &VehicleService{vehicles: vehicles, users: users, dues: dues}
}

func (s *VehicleService) Register(ctx context.Context, actor domain.Actor, dto domain.RegisterVehicleDTO) (*domain.Vehicle, error) {
	plate := domain.NormalizePlate(dto.Plate)
	if plate == "" {
		return nil, domain.NewValidationError("plate is required")
	}
	if !dto.Class.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown vehicle class %q", dto.Class))
	}
	v, err := s.vehicles.Create(ctx, &domain.Vehicle{Plate: plate, Class: dto.Class, CreatedBy: actor.UserID})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, domain.NewValidationError(fmt.Sprintf("vehicle %s is already registered", plate))
		}
		return nil, wrapErr("VehicleService.Register", err)
	}
	return v, nil
}

// GrantAccess lets another user book with the vehicle. Only its creator may
// share it.
func (s *VehicleService) GrantAccess(ctx context.Context, actor domain.Actor, vehicleID, userID int) error {
	v, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return lookupErr("VehicleService.GrantAccess", "vehicle", err)
	}
	if v.CreatedBy != actor.UserID {
		return domain.NewForbiddenError("only the vehicle owner can share it")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return lookupErr("VehicleService.GrantAccess", "user", err)
	}
	if err := s.vehicles.GrantAccess(ctx, vehicleID, userID); err != nil {
		return wrapErr("VehicleService.GrantAccess", err)
	}
	return nil
}

func (s *VehicleService) ListForUser(ctx context.Context, userID int) ([]domain.Vehicle, error) {
	out, err := s.vehicles.FindByUser(ctx, userID)
	if err != nil {
		return nil, wrapErr("VehicleService.ListForUser", err)
	}
	return out, nil
}

// VehicleDues is the vehicle-scoped debt, whoever incurred it.
func (s *VehicleService) VehicleDues(ctx context.Context, actor domain.Actor, vehicleID int) (float64, error) {
	ok, err := s.vehicles.HasAccess(ctx, vehicleID, actor.UserID)
	if err != nil {
		return 0, lookupErr("VehicleService.VehicleDues", "vehicle", err)
	}
	if !ok && actor.Role != domain.RoleAdmin {
		return 0, domain.NewForbiddenError("vehicle is not registered to this user")
	}
	return s.dues.OutstandingForVehicle(ctx, vehicleID)
}
