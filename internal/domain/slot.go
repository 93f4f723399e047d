package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type SlotStatus string

const (
	SlotAvailable   SlotStatus = "AVAILABLE"
	SlotReserved    SlotStatus = "RESERVED"
	SlotOccupied    SlotStatus = "OCCUPIED"
	SlotMaintenance SlotStatus = "MAINTENANCE"
)

// Held reports whether the slot is held by a booking.
func (s SlotStatus) Held() bool {
	return s == SlotReserved || s == SlotOccupied
}

type Slot struct {
	ID             int          `json:"id"`
	AreaID         int          `json:"area_id"`
	Class          VehicleClass `json:"class"`
	Label          string       `json:"label"`
	Status         SlotStatus   `json:"status"`
	BaseHourlyRate float64      `json:"base_hourly_rate"`
	Revision       int          `json:"revision"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// SlotLabel builds "{prefix}_{floor}_{seq}" with a two-digit minimum sequence.
func SlotLabel(class VehicleClass, floor int, seq int) string {
	return fmt.Sprintf("%s_%s_%02d", class.Prefix(), FloorLabel(floor), seq)
}

// LabelSequence extracts the trailing sequence number of a label, or 0 when
// the label does not follow the naming scheme.
func LabelSequence(label string) int {
	i := strings.LastIndex(label, "_")
	if i < 0 || i == len(label)-1 {
		return 0
	}
	n, err := strconv.Atoi(label[i+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type SetSlotStatusDTO struct {
	Status SlotStatus `json:"status" binding:"required"`
}
