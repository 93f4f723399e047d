package domain

import "time"

const (
	TopicBookingReserved   = "booking.reserved"
	TopicBookingCheckedIn  = "booking.checked_in"
	TopicBookingCheckedOut = "booking.checked_out"
	TopicBookingCompleted  = "booking.completed"
	TopicBookingDefaulted  = "booking.defaulted"
	TopicBookingNoShow     = "booking.no_show"
	TopicBookingReview     = "booking.review"
	TopicSlotAvailability  = "slot.availability"
	TopicDueRecorded       = "due.recorded"
	TopicDueSettled        = "due.settled"
)

// Notification is the envelope every publisher sends, whatever the transport.
type Notification struct {
	EventID   string    `json:"event_id"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type BookingEvent struct {
	BookingID     int           `json:"booking_id"`
	AreaID        int           `json:"area_id"`
	SlotID        int           `json:"slot_id"`
	UserID        int           `json:"user_id"`
	VehicleID     int           `json:"vehicle_id"`
	Status        BookingStatus `json:"status"`
	AmountPending float64       `json:"amount_pending,omitempty"`
	Message       string        `json:"message,omitempty"`
}

func NewBookingEvent(b *Booking, msg string) BookingEvent {
	return BookingEvent{
		BookingID:     b.ID,
		AreaID:        b.AreaID,
		SlotID:        b.SlotID,
		UserID:        b.UserID,
		VehicleID:     b.VehicleID,
		Status:        b.Status,
		AmountPending: b.Unpaid(),
		Message:       msg,
	}
}

type AvailabilityEvent struct {
	AreaID     int          `json:"area_id"`
	Class      VehicleClass `json:"class"`
	Capacity   int          `json:"capacity"`
	Occupancy  int          `json:"occupancy"`
	Multiplier float64      `json:"multiplier"`
}

type DueEvent struct {
	DueID     int     `json:"due_id"`
	UserID    int     `json:"user_id"`
	VehicleID int     `json:"vehicle_id"`
	BookingID int     `json:"booking_id"`
	Amount    float64 `json:"amount"`
}
