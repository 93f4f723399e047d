package service

import (
	"context"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/pricing"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

// PricingEngine owns the per-class demand index of each area.
type PricingEngine struct {
	areas  repository.AreaRepository
	policy Policy
}

func NewPricingEngine(areas repository.AreaRepository, policy Policy) *PricingEngine {
	return &PricingEngine{areas: areas, policy: policy}
}

func (p *PricingEngine) CurrentMultiplier(ctx context.Context, areaID int, class domain.VehicleClass) (float64, error) {
	area, err := p.areas.FindByID(ctx, areaID)
	if err != nil {
		return 0, lookupErr("PricingEngine.CurrentMultiplier", "area", err)
	}
	return multiplierFor(area, class), nil
}

// OnOccupancyChange recomputes the demand index for one class from the given
// utilization and persists it when it moved.
func (p *PricingEngine) OnOccupancyChange(ctx context.Context, areaID int, class domain.VehicleClass, newOccupancy, capacity int) error {
	return retryOnConflict(ctx, p.policy.MaxRetries, func() error {
		area, err := p.areas.FindByID(ctx, areaID)
		if err != nil {
			return lookupErr("PricingEngine.OnOccupancyChange", "area", err)
		}
		idx := pricing.DemandIndex(newOccupancy, capacity, len(area.Multipliers))
		if area.DemandIndex.Get(class) == idx {
			return nil
		}
		area.DemandIndex.Set(class, idx)
		return p.areas.UpdateIfRevision(ctx, area, area.Revision)
	})
}

// reprice sets the demand index of class from the area's own counters. It
// only mutates the value; the caller persists it in the same revision-checked
// write that changed the counters.
func (p *PricingEngine) reprice(area *domain.Area, class domain.VehicleClass) {
	idx := pricing.DemandIndex(area.Occupancy.Get(class), area.Capacity.Get(class), len(area.Multipliers))
	area.DemandIndex.Set(class, idx)
}

// ReservationRate is the base rate scaled by the class multiplier.
func ReservationRate(baseHourlyRate, multiplier float64) float64 {
	return pricing.RoundCents(baseHourlyRate * multiplier)
}

func multiplierFor(area *domain.Area, class domain.VehicleClass) float64 {
	return pricing.Multiplier(area.Multipliers, area.DemandIndex.Get(class))
}

// UpdateMultipliers replaces the table of an area and re-derives every class
// index so it stays a valid position in the new table.
func (p *PricingEngine) UpdateMultipliers(ctx context.Context, areaID int, table []float64) (*domain.Area, error) {
	if len(table) == 0 {
		return nil, domain.NewValidationError("multiplier table cannot be empty")
	}
	for _, m := range table {
		if m < 0 || m > 1 {
			return nil, domain.NewValidationError("multipliers must be between 0 and 1")
		}
	}
	var out *domain.Area
	err := retryOnConflict(ctx, p.policy.MaxRetries, func() error {
		area, err := p.areas.FindByID(ctx, areaID)
		if err != nil {
			return lookupErr("PricingEngine.UpdateMultipliers", "area", err)
		}
		area.Multipliers = append([]float64(nil), table...)
		for _, class := range domain.VehicleClasses {
			p.reprice(area, class)
		}
		if err := p.areas.UpdateIfRevision(ctx, area, area.Revision); err != nil {
			return err
		}
		out = area
		return nil
	})
	return out, err
}
