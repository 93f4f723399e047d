package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

var ErrNotFound = domain.ErrNotFound
var ErrDuplicateEntry = errors.New("record already exists")

// ErrRevisionConflict is returned by conditional writes when the stored
// revision no longer matches the caller's expectation.
var ErrRevisionConflict = errors.New("revision conflict")

// ErrVehicleBusy is returned by BookingRepository.Create when the vehicle
// already has a non-terminal booking.
var ErrVehicleBusy = errors.New("vehicle has a non-terminal booking")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	UpdateRole(ctx context.Context, id int, role string) error
}

type AreaRepository interface {
	Create(ctx context.Context, area *domain.Area) (*domain.Area, error)
	FindByID(ctx context.Context, id int) (*domain.Area, error)
	FindAll(ctx context.Context) ([]domain.Area, error)
	// UpdateIfRevision writes area only when the stored revision equals
	// expected, and sets area.Revision to the new value.
	UpdateIfRevision(ctx context.Context, area *domain.Area, expected int) error
	AssignGuard(ctx context.Context, areaID, userID int) error
	GuardAreas(ctx context.Context, userID int) ([]int, error)
}

type SlotRepository interface {
	Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error)
	FindByID(ctx context.Context, id int) (*domain.Slot, error)
	FindByAreaID(ctx context.Context, areaID int) ([]domain.Slot, error)
	FindByAreaAndClass(ctx context.Context, areaID int, class domain.VehicleClass) ([]domain.Slot, error)
	UpdateIfRevision(ctx context.Context, slot *domain.Slot, expected int) error
	DeleteIfRevision(ctx context.Context, id int, expected int) error
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	FindByID(ctx context.Context, id int) (*domain.Vehicle, error)
	FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error)
	FindByUser(ctx context.Context, userID int) ([]domain.Vehicle, error)
	GrantAccess(ctx context.Context, vehicleID, userID int) error
	HasAccess(ctx context.Context, vehicleID, userID int) (bool, error)
}

type BookingFilter struct {
	UserID    *int
	AreaID    *int
	VehicleID *int
	Statuses  []domain.BookingStatus
}

type BookingRepository interface {
	// Create fails with ErrVehicleBusy when the vehicle already has a
	// non-terminal booking.
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	FindByID(ctx context.Context, id int) (*domain.Booking, error)
	Find(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	FindActiveByVehicle(ctx context.Context, vehicleID int) (*domain.Booking, error)
	FindExpiredReservations(ctx context.Context, now time.Time) ([]domain.Booking, error)
	FindSessionsStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
	UpdateIfRevision(ctx context.Context, booking *domain.Booking, expected int) error
}

type DueRepository interface {
	Create(ctx context.Context, due *domain.OutstandingDue) (*domain.OutstandingDue, error)
	FindByID(ctx context.Context, id int) (*domain.OutstandingDue, error)
	FindUnpaidByUser(ctx context.Context, userID int) ([]domain.OutstandingDue, error)
	SumUnpaidByUser(ctx context.Context, userID int) (float64, error)
	SumUnpaidByVehicle(ctx context.Context, vehicleID int) (float64, error)
	// MarkPaid reports whether this call flipped the flag.
	MarkPaid(ctx context.Context, id int, paidAt time.Time) (bool, error)
}

// Store hands out one repository per aggregate. The in-memory and Postgres
// backends both implement it.
type Store interface {
	Users() UserRepository
	Areas() AreaRepository
	Slots() SlotRepository
	Vehicles() VehicleRepository
	Bookings() BookingRepository
	Dues() DueRepository
}
