package domain

import (
	"strings"
	"time"
)

type Vehicle struct {
	ID        int          `json:"id"`
	Plate     string       `json:"plate"`
	Class     VehicleClass `json:"class"`
	CreatedBy int          `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
}

// NormalizePlate upper-cases a plate and strips separators so that
// "ka 01-ab 1234" and "KA01AB1234" are the same vehicle.
func NormalizePlate(plate string) string {
	r := strings.NewReplacer(" ", "", "-", "", ".", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(plate)))
}

type RegisterVehicleDTO struct {
	Plate string       `json:"plate" binding:"required"`
	Class VehicleClass `json:"class" binding:"required"`
}

type GrantVehicleAccessDTO struct {
	UserID int `json:"user_id" binding:"required"`
}
