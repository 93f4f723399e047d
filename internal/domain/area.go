package domain

import (
	"fmt"
	"time"
)

type VehicleClass string

const (
	ClassSmall  VehicleClass = "SMALL"
	ClassMedium VehicleClass = "MEDIUM"
	ClassLarge  VehicleClass = "LARGE"
)

// VehicleClasses is the fixed iteration order used for projections and slot generation.
var VehicleClasses = []VehicleClass{ClassSmall, ClassMedium, ClassLarge}

func (c VehicleClass) Valid() bool {
	switch c {
	case ClassSmall, ClassMedium, ClassLarge:
		return true
	}
	return false
}

// Prefix is the slot label prefix for the class (S, M, L).
func (c VehicleClass) Prefix() string {
	switch c {
	case ClassSmall:
		return "S"
	case ClassMedium:
		return "M"
	case ClassLarge:
		return "L"
	}
	return "X"
}

// ClassCounters holds one integer per vehicle class.
type ClassCounters struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

func (c ClassCounters) Get(class VehicleClass) int {
	switch class {
	case ClassSmall:
		return c.Small
	case ClassMedium:
		return c.Medium
	case ClassLarge:
		return c.Large
	}
	return 0
}

func (c *ClassCounters) Set(class VehicleClass, v int) {
	switch class {
	case ClassSmall:
		c.Small = v
	case ClassMedium:
		c.Medium = v
	case ClassLarge:
		c.Large = v
	}
}

// ClassRates holds one base hourly rate per vehicle class.
type ClassRates struct {
	Small  float64 `json:"small"`
	Medium float64 `json:"medium"`
	Large  float64 `json:"large"`
}

func (r ClassRates) Get(class VehicleClass) float64 {
	switch class {
	case ClassSmall:
		return r.Small
	case ClassMedium:
		return r.Medium
	case ClassLarge:
		return r.Large
	}
	return 0
}

var DefaultMultipliers = []float64{0.0, 0.35, 0.65, 1.0}

const (
	DefaultGracePeriod  = 30 * time.Minute
	DefaultWaiverPeriod = 10 * time.Minute
	DefaultBaseRate     = 50.0
)

// Area is a physical site. Occupancy and DemandIndex are only written by the
// inventory and pricing services under a revision check.
type Area struct {
	ID           int           `json:"id"`
	OwnerID      int           `json:"owner_id"`
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Floor        int           `json:"floor"`
	Capacity     ClassCounters `json:"capacity"`
	Occupancy    ClassCounters `json:"occupancy"`
	DemandIndex  ClassCounters `json:"demand_index"`
	BaseRates    ClassRates    `json:"base_rates"`
	Multipliers  []float64     `json:"multipliers"`
	GracePeriod  time.Duration `json:"grace_period"`
	WaiverPeriod time.Duration `json:"waiver_period"`
	Revision     int           `json:"revision"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Clone returns a copy that shares no slices with a.
func (a *Area) Clone() *Area {
	c := *a
	c.Multipliers = append([]float64(nil), a.Multipliers...)
	return &c
}

// Validate checks the structural invariants of an area definition.
func (a *Area) Validate() error {
	if a.Name == "" {
		return NewValidationError("area name is required")
	}
	for _, class := range VehicleClasses {
		if a.Capacity.Get(class) < 0 {
			return NewValidationError(fmt.Sprintf("capacity for %s cannot be negative", class))
		}
		if a.BaseRates.Get(class) < 0 {
			return NewValidationError(fmt.Sprintf("base rate for %s cannot be negative", class))
		}
		if a.Occupancy.Get(class) > a.Capacity.Get(class) {
			return NewValidationError(fmt.Sprintf("occupancy for %s exceeds capacity", class))
		}
	}
	if len(a.Multipliers) == 0 {
		return NewValidationError("multiplier table cannot be empty")
	}
	for _, m := range a.Multipliers {
		if m < 0 || m > 1 {
			return NewValidationError("multipliers must be between 0 and 1")
		}
	}
	if a.GracePeriod <= 0 {
		return NewValidationError("grace period must be positive")
	}
	if a.WaiverPeriod < 0 || a.WaiverPeriod > a.GracePeriod {
		return NewValidationError("waiver period must be between zero and the grace period")
	}
	return nil
}

// FloorLabel renders a floor number the way slot labels use it: G for ground,
// B1.. for basements and F1.. above ground.
func FloorLabel(floor int) string {
	switch {
	case floor == 0:
		return "G"
	case floor < 0:
		return fmt.Sprintf("B%d", -floor)
	default:
		return fmt.Sprintf("F%d", floor)
	}
}

type CreateAreaDTO struct {
	Name          string        `json:"name" binding:"required"`
	Address       string        `json:"address"`
	Floor         int           `json:"floor"`
	Capacity      ClassCounters `json:"capacity"`
	BaseRates     *ClassRates   `json:"base_rates,omitempty"`
	Multipliers   []float64     `json:"multipliers,omitempty"`
	GraceMinutes  *int          `json:"grace_minutes,omitempty"`
	WaiverMinutes *int          `json:"waiver_minutes,omitempty"`
}

type ResizeAreaDTO struct {
	Class       VehicleClass `json:"class" binding:"required"`
	NewCapacity *int         `json:"new_capacity" binding:"required"`
}

type AssignGuardDTO struct {
	UserID int `json:"user_id" binding:"required"`
}

// ClassAvailability is the read projection for one class of one area.
type ClassAvailability struct {
	Class       VehicleClass `json:"class"`
	Capacity    int          `json:"capacity"`
	Available   int          `json:"available"`
	Reserved    int          `json:"reserved"`
	Occupied    int          `json:"occupied"`
	Maintenance int          `json:"maintenance"`
	Multiplier  float64      `json:"multiplier"`
	HourlyRate  float64      `json:"hourly_rate"`
}

type AreaAvailability struct {
	AreaID  int                 `json:"area_id"`
	Name    string              `json:"name"`
	Classes []ClassAvailability `json:"classes"`
}
