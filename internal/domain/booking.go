package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type BookingStatus string

const (
	BookingReserved       BookingStatus = "RESERVED"
	BookingActiveParking  BookingStatus = "ACTIVE_PARKING"
	BookingPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingCompleted      BookingStatus = "COMPLETED"
	BookingNoShow         BookingStatus = "CANCELLED_NO_SHOW"
	BookingDefaulted      BookingStatus = "DEFAULTED"
)

var bookingEdges = map[BookingStatus][]BookingStatus{
	BookingReserved:       {BookingActiveParking, BookingNoShow},
	BookingActiveParking:  {BookingPaymentPending, BookingDefaulted},
	BookingPaymentPending: {BookingCompleted, BookingDefaulted},
}

// CanTransition reports whether from -> to is an edge of the booking lifecycle.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingNoShow, BookingDefaulted:
		return true
	}
	return false
}

// BookingIntent is what the driver declared when booking.
type BookingIntent string

const (
	IntentReserveAhead BookingIntent = "RESERVE_AHEAD"
	IntentArrivingNow  BookingIntent = "ARRIVING_NOW"
)

// Booking references every other entity by id. ReservationRate and ParkingRate
// are captured once at creation and never recomputed.
type Booking struct {
	ID               int           `json:"id"`
	SlotID           int           `json:"slot_id"`
	AreaID           int           `json:"area_id"`
	UserID           int           `json:"user_id"`
	VehicleID        int           `json:"vehicle_id"`
	Class            VehicleClass  `json:"class"`
	Status           BookingStatus `json:"status"`
	ReservationTime  time.Time     `json:"reservation_time"`
	ArrivalTime      null.Time     `json:"arrival_time"`
	DepartureTime    null.Time     `json:"departure_time"`
	ExpectedEndTime  time.Time     `json:"expected_end_time"`
	Multiplier       float64       `json:"multiplier"`
	ReservationRate  float64       `json:"reservation_rate"`
	ParkingRate      float64       `json:"parking_rate"`
	ReservationFee   float64       `json:"reservation_fee"`
	ParkingFee       float64       `json:"parking_fee"`
	AmountPaid       float64       `json:"amount_paid"`
	AmountPending    float64       `json:"amount_pending"`
	ExitToken        null.String   `json:"exit_token"`
	FlaggedForReview bool          `json:"flagged_for_review"`
	FlaggedAt        null.Time     `json:"flagged_at"`
	Revision         int           `json:"revision"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}

// Unpaid is the amount still owed on the booking.
func (b *Booking) Unpaid() float64 {
	if d := b.AmountPending - b.AmountPaid; d > 0 {
		return d
	}
	return 0
}

type CreateReservationDTO struct {
	VehicleID int           `json:"vehicle_id" binding:"required"`
	AreaID    int           `json:"area_id" binding:"required"`
	Class     VehicleClass  `json:"class,omitempty"`
	Intent    BookingIntent `json:"intent,omitempty"`
}

type SettleBookingDTO struct {
	Amount  float64 `json:"amount"`
	Abandon bool    `json:"abandon,omitempty"`
}
