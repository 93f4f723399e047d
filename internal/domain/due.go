package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// OutstandingDue is debt carried forward from a defaulted or charged no-show
// booking. Dues are append-only; only the paid flag ever changes.
type OutstandingDue struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	VehicleID int       `json:"vehicle_id"`
	BookingID int       `json:"booking_id"`
	Amount    float64   `json:"amount"`
	IsPaid    bool      `json:"is_paid"`
	PaidAt    null.Time `json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
}

type DuesSummary struct {
	UserID      int              `json:"user_id"`
	Outstanding float64          `json:"outstanding"`
	Dues        []OutstandingDue `json:"dues"`
}
