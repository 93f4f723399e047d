package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

// AreaService is the operator-facing side of areas: creation, inventory
// changes and guard recruitment. Capability checks happen here, before the
// inventory is touched.
type AreaService struct {
	areas     repository.AreaRepository
	users     repository.UserRepository
	inventory *SlotInventory
	pricing   *PricingEngine
	policy    Policy

	defaultGrace  time.Duration
	defaultWaiver time.Duration
}

func NewAreaService(areas repository.AreaRepository, users repository.UserRepository, inventory *SlotInventory, pricing *PricingEngine, policy Policy, defaultGrace, defaultWaiver time.Duration) *AreaService {
	if defaultGrace <= 0 {
		defaultGrace = domain.DefaultGracePeriod
	}
	if defaultWaiver < 0 || defaultWaiver > defaultGrace {
		defaultWaiver = domain.DefaultWaiverPeriod
	}
	return &AreaService{
		areas:         areas,
		users:         users,
		inventory:     inventory,
		pricing:       pricing,
		policy:        policy,
		defaultGrace:  defaultGrace,
		defaultWaiver: defaultWaiver,
	}
}

// CreateArea validates the definition, stores the area empty and then grows
// each class to its requested capacity, which generates the slots in
// MAINTENANCE.
func (s *AreaService) CreateArea(ctx context.Context, actor domain.Actor, dto domain.CreateAreaDTO) (*domain.Area, error) {
	if !actor.Is(domain.RoleAreaOwner, domain.RoleAdmin) {
		return nil, domain.NewForbiddenError("only area owners can create areas")
	}
	area := &domain.Area{
		OwnerID:      actor.UserID,
		Name:         dto.Name,
		Address:      dto.Address,
		Floor:        dto.Floor,
		Capacity:     dto.Capacity,
		Multipliers:  append([]float64(nil), domain.DefaultMultipliers...),
		GracePeriod:  s.defaultGrace,
		WaiverPeriod: s.defaultWaiver,
		BaseRates: domain.ClassRates{
			Small:  domain.DefaultBaseRate,
			Medium: domain.DefaultBaseRate,
			Large:  domain.DefaultBaseRate,
		},
	}
	if dto.BaseRates != nil {
		area.BaseRates = *dto.BaseRates
	}
	if len(dto.Multipliers) > 0 {
		area.Multipliers = append([]float64(nil), dto.Multipliers...)
	}
	if dto.GraceMinutes != nil {
		area.GracePeriod = time.Duration(*dto.GraceMinutes) * time.Minute
	}
	if dto.WaiverMinutes != nil {
		area.WaiverPeriod = time.Duration(*dto.WaiverMinutes) * time.Minute
	}
	if err := area.Validate(); err != nil {
		return nil, err
	}

	requested := area.Capacity
	area.Capacity = domain.ClassCounters{}
	created, err := s.areas.Create(ctx, area)
	if err != nil {
		return nil, wrapErr("AreaService.CreateArea", err)
	}
	for _, class := range domain.VehicleClasses {
		if n := requested.Get(class); n > 0 {
			if created, err = s.inventory.Resize(ctx, created.ID, class, n); err != nil {
				return nil, err
			}
		}
	}
	log.Printf("AreaService.CreateArea: area %d '%s' created by user %d with capacity %+v", created.ID, created.Name, actor.UserID, created.Capacity)
	return created, nil
}

func (s *AreaService) GetArea(ctx context.Context, id int) (*domain.Area, error) {
	area, err := s.areas.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("AreaService.GetArea", "area", err)
	}
	return area, nil
}

func (s *AreaService) ListAreas(ctx context.Context) ([]domain.Area, error) {
	areas, err := s.areas.FindAll(ctx)
	if err != nil {
		return nil, wrapErr("AreaService.ListAreas", err)
	}
	return areas, nil
}

// ListAvailability returns the projection for every area.
func (s *AreaService) ListAvailability(ctx context.Context) ([]domain.AreaAvailability, error) {
	areas, err := s.ListAreas(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AreaAvailability, 0, len(areas))
	for _, a := range areas {
		av, err := s.inventory.Availability(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *av)
	}
	return out, nil
}

func (s *AreaService) Availability(ctx context.Context, areaID int) (*domain.AreaAvailability, error) {
	return s.inventory.Availability(ctx, areaID)
}

func (s *AreaService) Slots(ctx context.Context, areaID int) ([]domain.Slot, error) {
	return s.inventory.SlotsByArea(ctx, areaID)
}

func (s *AreaService) ResizeArea(ctx context.Context, actor domain.Actor, areaID int, class domain.VehicleClass, newCapacity int) (*domain.Area, error) {
	if err := s.authorizeOwner(ctx, actor, areaID); err != nil {
		return nil, err
	}
	return s.inventory.Resize(ctx, areaID, class, newCapacity)
}

func (s *AreaService) SetSlotStatus(ctx context.Context, actor domain.Actor, slotID int, status domain.SlotStatus) (*domain.Slot, error) {
	slot, err := s.inventory.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, lookupErr("AreaService.SetSlotStatus", "slot", err)
	}
	if err := s.authorizeOwner(ctx, actor, slot.AreaID); err != nil {
		return nil, err
	}
	return s.inventory.SetSlotStatus(ctx, slotID, status)
}

func (s *AreaService) UpdateMultipliers(ctx context.Context, actor domain.Actor, areaID int, table []float64) (*domain.Area, error) {
	if err := s.authorizeOwner(ctx, actor, areaID); err != nil {
		return nil, err
	}
	return s.pricing.UpdateMultipliers(ctx, areaID, table)
}

// AssignGuard recruits a user as guard of an area. Owners and admins are
// never demoted. Whether one person may guard several areas is a policy.
func (s *AreaService) AssignGuard(ctx context.Context, actor domain.Actor, areaID, userID int) error {
	if err := s.authorizeOwner(ctx, actor, areaID); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return lookupErr("AreaService.AssignGuard", "user", err)
	}
	if user.Role == domain.RoleAdmin || user.Role == domain.RoleAreaOwner {
		return domain.NewForbiddenError(fmt.Sprintf("a %s cannot be recruited as guard", user.Role))
	}
	guarded, err := s.areas.GuardAreas(ctx, userID)
	if err != nil {
		return wrapErr("AreaService.AssignGuard", err)
	}
	for _, id := range guarded {
		if id == areaID {
			return domain.NewValidationError("user already guards this area")
		}
	}
	if len(guarded) > 0 && !s.policy.GuardMultiArea {
		return domain.NewForbiddenError("user already guards another area")
	}

	if err := s.areas.AssignGuard(ctx, areaID, userID); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return domain.NewValidationError("user already guards this area")
		}
		return lookupErr("AreaService.AssignGuard", "area", err)
	}
	if user.Role != domain.RoleGuard {
		if err := s.users.UpdateRole(ctx, userID, domain.RoleGuard); err != nil {
			return wrapErr("AreaService.AssignGuard", err)
		}
	}
	log.Printf("AreaService.AssignGuard: user %d now guards area %d", userID, areaID)
	return nil
}

func (s *AreaService) authorizeOwner(ctx context.Context, actor domain.Actor, areaID int) error {
	area, err := s.areas.FindByID(ctx, areaID)
	if err != nil {
		return lookupErr("AreaService.authorizeOwner", "area", err)
	}
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	if actor.Role == domain.RoleAreaOwner && area.OwnerID == actor.UserID {
		return nil
	}
	return domain.NewForbiddenError("only the owner of this area can change it")
}
