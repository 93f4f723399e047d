package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type bookingRepo struct{ s *Store }

func (r *bookingRepo) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.VehicleID == booking.VehicleID && !b.Status.Terminal() {
			return nil, repository.ErrVehicleBusy
		}
	}
	b := booking.Clone()
	b.ID = r.s.nextID("bookings")
	b.Revision = 1
	b.CreatedAt = r.s.now()
	b.UpdatedAt = b.CreatedAt
	r.s.bookings[b.ID] = b
	return b.Clone(), nil
}

func (r *bookingRepo) FindByID(ctx context.Context, id int) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *bookingRepo) Find(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, error) {
	return r.find(func(b *domain.Booking) bool {
		if f.UserID != nil && b.UserID != *f.UserID {
			return false
		}
		if f.AreaID != nil && b.AreaID != *f.AreaID {
			return false
		}
		if f.VehicleID != nil && b.VehicleID != *f.VehicleID {
			return false
		}
		if len(f.Statuses) == 0 {
			return true
		}
		for _, st := range f.Statuses {
			if b.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (r *bookingRepo) FindActiveByVehicle(ctx context.Context, vehicleID int) (*domain.Booking, error) {
	found := r.find(func(b *domain.Booking) bool { return b.VehicleID == vehicleID && !b.Status.Terminal() })
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

func (r *bookingRepo) FindExpiredReservations(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.find(func(b *domain.Booking) bool {
		return b.Status == domain.BookingReserved && b.ExpectedEndTime.Before(now)
	}), nil
}

func (r *bookingRepo) FindSessionsStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	return r.find(func(b *domain.Booking) bool {
		if b.Status != domain.BookingActiveParking && b.Status != domain.BookingPaymentPending {
			return false
		}
		return b.ArrivalTime.Valid && b.ArrivalTime.Time.Before(cutoff)
	}), nil
}

func (r *bookingRepo) find(match func(*domain.Booking) bool) []domain.Booking {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range r.s.bookings {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *bookingRepo) UpdateIfRevision(ctx context.Context, booking *domain.Booking, expected int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.bookings[booking.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Revision != expected {
		return repository.ErrRevisionConflict
	}
	b := booking.Clone()
	b.Revision = expected + 1
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = r.s.now()
	r.s.bookings[b.ID] = b
	booking.Revision = b.Revision
	booking.UpdatedAt = b.UpdatedAt
	return nil
}
