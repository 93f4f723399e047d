package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/pricing"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
	"go.jetify.com/typeid/v2"
	"gopkg.in/guregu/null.v4"
)

// BookingService is the booking state machine. Every transition is a single
// revision-checked write of the booking; the slot and ledger side effects
// that follow are undone if they fail, so a failed call leaves no trace.
type BookingService struct {
	bookings  repository.BookingRepository
	vehicles  repository.VehicleRepository
	areas     repository.AreaRepository
	inventory *SlotInventory
	pricing   *PricingEngine
	dues      *DuesLedger
	notifier  Notifier
	policy    Policy
	now       Clock
}

func NewBookingService(
	bookings repository.BookingRepository,
	vehicles repository.VehicleRepository,
	areas repository.AreaRepository,
	inventory *SlotInventory,
	pricing *PricingEngine,
	dues *DuesLedger,
	notifier Notifier,
	policy Policy,
	now Clock,
) *BookingService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if now == nil {
		now = SystemClock
	}
	return &BookingService{
		bookings:  bookings,
		vehicles:  vehicles,
		areas:     areas,
		inventory: inventory,
		pricing:   pricing,
		dues:      dues,
		notifier:  notifier,
		policy:    policy,
		now:       now,
	}
}

// CreateReservation books a slot for a vehicle the actor may use.
func (s *BookingService) CreateReservation(ctx context.Context, actor domain.Actor, dto domain.CreateReservationDTO) (*domain.Booking, error) {
	vehicle, err := s.vehicles.FindByID(ctx, dto.VehicleID)
	if err != nil {
		return nil, lookupErr("BookingService.CreateReservation", "vehicle", err)
	}
	allowed, err := s.vehicles.HasAccess(ctx, vehicle.ID, actor.UserID)
	if err != nil {
		return nil, wrapErr("BookingService.CreateReservation", err)
	}
	if !allowed {
		return nil, domain.NewForbiddenError("vehicle is not registered to this user")
	}

	class := dto.Class
	if class == "" {
		class = vehicle.Class
	}
	if !class.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown vehicle class %q", class))
	}
	intent := dto.Intent
	if intent == "" {
		intent = domain.IntentReserveAhead
	}
	if intent != domain.IntentReserveAhead && intent != domain.IntentArrivingNow {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown booking intent %q", intent))
	}

	if _, err := s.bookings.FindActiveByVehicle(ctx, vehicle.ID); err == nil {
		return nil, domain.ErrVehicleBusy
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, wrapErr("BookingService.CreateReservation", err)
	}
	if err := s.dues.CheckBookingAllowed(ctx, actor.UserID, vehicle.ID); err != nil {
		return nil, err
	}

	area, err := s.areas.FindByID(ctx, dto.AreaID)
	if err != nil {
		return nil, lookupErr("BookingService.CreateReservation", "area", err)
	}

	slot, err := s.inventory.Reserve(ctx, area.ID, class)
	if err != nil {
		return nil, err
	}
	// From here on the slot is ours; every failure path hands it back.
	rollback := func(cause error) (*domain.Booking, error) {
		logCompensation("BookingService.CreateReservation", s.inventory.Release(detached(ctx), slot.ID))
		return nil, cause
	}

	multiplier, err := s.pricing.CurrentMultiplier(ctx, area.ID, class)
	if err != nil {
		return rollback(err)
	}
	now := s.now()
	booking := &domain.Booking{
		SlotID:          slot.ID,
		AreaID:          area.ID,
		UserID:          actor.UserID,
		VehicleID:       vehicle.ID,
		Class:           class,
		Status:          domain.BookingReserved,
		ReservationTime: now,
		ExpectedEndTime: now.Add(area.GracePeriod),
		Multiplier:      multiplier,
		ReservationRate: ReservationRate(slot.BaseHourlyRate, multiplier),
		ParkingRate:     slot.BaseHourlyRate,
	}
	if intent == domain.IntentArrivingNow {
		booking.Status = domain.BookingActiveParking
		booking.ArrivalTime = null.TimeFrom(now)
		if err := s.inventory.MarkOccupied(ctx, slot.ID); err != nil {
			return rollback(err)
		}
	}
	if err := ctx.Err(); err != nil {
		return rollback(err)
	}

	created, err := s.bookings.Create(ctx, booking)
	if errors.Is(err, repository.ErrVehicleBusy) {
		return rollback(domain.ErrVehicleBusy)
	}
	if err != nil {
		return rollback(wrapErr("BookingService.CreateReservation", err))
	}

	log.Printf("BookingService.CreateReservation: booking %d (%s) slot %s for vehicle %d, rate %.2f x %.2f",
		created.ID, created.Status, slot.Label, vehicle.ID, slot.BaseHourlyRate, multiplier)
	topic := domain.TopicBookingReserved
	if created.Status == domain.BookingActiveParking {
		topic = domain.TopicBookingCheckedIn
	}
	s.notifier.Publish(ctx, topic, domain.NewBookingEvent(created, slot.Label))
	return created, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int) (*domain.Booking, error) {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("BookingService.GetBooking", "booking", err)
	}
	return b, nil
}

func (s *BookingService) ListForUser(ctx context.Context, userID int) ([]domain.Booking, error) {
	out, err := s.bookings.Find(ctx, repository.BookingFilter{UserID: &userID})
	if err != nil {
		return nil, wrapErr("BookingService.ListForUser", err)
	}
	return out, nil
}

func (s *BookingService) ListActiveForArea(ctx context.Context, areaID int) ([]domain.Booking, error) {
	out, err := s.bookings.Find(ctx, repository.BookingFilter{
		AreaID:   &areaID,
		Statuses: []domain.BookingStatus{domain.BookingReserved, domain.BookingActiveParking, domain.BookingPaymentPending},
	})
	if err != nil {
		return nil, wrapErr("BookingService.ListActiveForArea", err)
	}
	return out, nil
}

// FindActiveByPlate resolves the open booking of a vehicle, used at the gate.
func (s *BookingService) FindActiveByPlate(ctx context.Context, plate string) (*domain.Booking, error) {
	v, err := s.vehicles.FindByPlate(ctx, domain.NormalizePlate(plate))
	if err != nil {
		return nil, lookupErr("BookingService.FindActiveByPlate", "vehicle", err)
	}
	b, err := s.bookings.FindActiveByVehicle(ctx, v.ID)
	if err != nil {
		return nil, lookupErr("BookingService.FindActiveByPlate", "active booking", err)
	}
	return b, nil
}

// CheckIn records arrival. Arrival within the waiver period costs nothing;
// later arrival bills the reservation interval at the snapshotted rate.
func (s *BookingService) CheckIn(ctx context.Context, id int) (*domain.Booking, error) {
	prev, next, err := s.transition(ctx, id, domain.BookingActiveParking, func(b *domain.Booking, now time.Time) error {
		area, err := s.areas.FindByID(ctx, b.AreaID)
		if err != nil {
			return lookupErr("BookingService.CheckIn", "area", err)
		}
		waiver := area.WaiverPeriod
		b.ArrivalTime = null.TimeFrom(now)
		if now.Sub(b.ReservationTime) <= waiver {
			b.ReservationFee = 0
		} else {
			b.ReservationFee = pricing.FeeBetween(b.ReservationTime, now, b.ReservationRate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.inventory.MarkOccupied(ctx, next.SlotID); err != nil {
		s.restore(ctx, prev, next)
		return nil, err
	}
	log.Printf("BookingService.CheckIn: booking %d arrived, reservation fee %.2f", next.ID, next.ReservationFee)
	s.notifier.Publish(ctx, domain.TopicBookingCheckedIn, domain.NewBookingEvent(next, ""))
	return next, nil
}

// CheckOut stops the parking clock, computes the amount due and frees the
// slot straight away; payment is settled separately.
func (s *BookingService) CheckOut(ctx context.Context, id int) (*domain.Booking, error) {
	prev, next, err := s.transition(ctx, id, domain.BookingPaymentPending, func(b *domain.Booking, now time.Time) error {
		closeSession(b, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.inventory.Release(ctx, next.SlotID); err != nil {
		s.restore(ctx, prev, next)
		return nil, err
	}
	log.Printf("BookingService.CheckOut: booking %d parked fee %.2f, pending %.2f", next.ID, next.ParkingFee, next.AmountPending)
	s.notifier.Publish(ctx, domain.TopicBookingCheckedOut, domain.NewBookingEvent(next, ""))
	return next, nil
}

// Settle applies a captured payment. A full payment completes the booking
// and issues the exit token. A short payment is accepted only with
// abandon=true, in which case the shortfall becomes a due and the booking
// defaults. Settling a finished booking is a stable InvalidTransition.
func (s *BookingService) Settle(ctx context.Context, id int, paid float64, abandon bool) (*domain.Booking, error) {
	if paid < 0 {
		return nil, domain.NewValidationError("paid amount cannot be negative")
	}
	cur, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	target := domain.BookingCompleted
	if cur.Status == domain.BookingPaymentPending && paid < cur.AmountPending {
		if !abandon {
			return nil, &domain.Error{Kind: domain.KindInsufficientPayment,
				Message: fmt.Sprintf("payment of %.2f does not cover %.2f pending", paid, cur.AmountPending)}
		}
		target = domain.BookingDefaulted
	}

	prev, next, err := s.transition(ctx, id, target, func(b *domain.Booking, _ time.Time) error {
		if target == domain.BookingCompleted && paid < b.AmountPending {
			return domain.ErrInsufficientPayment
		}
		b.AmountPaid = pricing.RoundCents(paid)
		if target == domain.BookingCompleted {
			token, err := newExitToken()
			if err != nil {
				return fmt.Errorf("BookingService.Settle: %w", err)
			}
			b.ExitToken = null.StringFrom(token)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if target == domain.BookingDefaulted {
		if _, err := s.dues.Record(ctx, next.UserID, next.VehicleID, next.ID, next.Unpaid()); err != nil {
			s.restore(ctx, prev, next)
			return nil, err
		}
		log.Printf("BookingService.Settle: booking %d abandoned with %.2f unpaid", next.ID, next.Unpaid())
		s.notifier.Publish(ctx, domain.TopicBookingDefaulted, domain.NewBookingEvent(next, "abandoned at exit"))
		return next, nil
	}
	log.Printf("BookingService.Settle: booking %d completed, paid %.2f", next.ID, next.AmountPaid)
	s.notifier.Publish(ctx, domain.TopicBookingCompleted, domain.NewBookingEvent(next, ""))
	return next, nil
}

// ForceDefault is the operator override for a vehicle that left without
// paying. The fee is computed as if the vehicle checked out now.
func (s *BookingService) ForceDefault(ctx context.Context, actor domain.Actor, id int) (*domain.Booking, error) {
	cur, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAreaOperator(ctx, actor, cur.AreaID); err != nil {
		return nil, err
	}

	prev, next, err := s.transition(ctx, id, domain.BookingDefaulted, func(b *domain.Booking, now time.Time) error {
		if b.Status == domain.BookingActiveParking {
			closeSession(b, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	released := false
	if prev.Status == domain.BookingActiveParking {
		if err := s.inventory.Release(ctx, next.SlotID); err != nil {
			s.restore(ctx, prev, next)
			return nil, err
		}
		released = true
	}
	if unpaid := next.Unpaid(); unpaid > 0 {
		if _, err := s.dues.Record(ctx, next.UserID, next.VehicleID, next.ID, unpaid); err != nil {
			if released {
				logCompensation("BookingService.ForceDefault", s.inventory.Hold(detached(ctx), next.SlotID, domain.SlotOccupied))
			}
			s.restore(ctx, prev, next)
			return nil, err
		}
	}
	log.Printf("BookingService.ForceDefault: booking %d defaulted by user %d (%s), unpaid %.2f", next.ID, actor.UserID, actor.Role, next.Unpaid())
	s.notifier.Publish(ctx, domain.TopicBookingDefaulted, domain.NewBookingEvent(next, "forced by operator"))
	return next, nil
}

// ExpireNoShow cancels a reservation the scheduler selected. The write is
// checked against the revision seen at selection, so a booking that moved
// in the meantime is left alone.
func (s *BookingService) ExpireNoShow(ctx context.Context, selected domain.Booking) (*domain.Booking, error) {
	if !domain.CanTransition(selected.Status, domain.BookingNoShow) {
		return nil, domain.InvalidTransition(selected.Status, domain.BookingNoShow)
	}
	prev := selected.Clone()
	next := selected.Clone()
	next.Status = domain.BookingNoShow
	if s.policy.ChargeNoShow {
		next.ReservationFee = pricing.FeeBetween(next.ReservationTime, next.ExpectedEndTime, next.ReservationRate)
		next.AmountPending = next.ReservationFee
	}
	if err := s.bookings.UpdateIfRevision(ctx, next, selected.Revision); err != nil {
		if errors.Is(err, repository.ErrRevisionConflict) {
			return nil, &domain.Error{Kind: domain.KindContended, Message: "booking changed since it was selected"}
		}
		return nil, lookupErr("BookingService.ExpireNoShow", "booking", err)
	}
	if err := s.inventory.Release(ctx, next.SlotID); err != nil {
		s.restore(ctx, prev, next)
		return nil, err
	}
	if next.AmountPending > 0 {
		if _, err := s.dues.Record(ctx, next.UserID, next.VehicleID, next.ID, next.AmountPending); err != nil {
			logCompensation("BookingService.ExpireNoShow", s.inventory.Hold(detached(ctx), next.SlotID, domain.SlotReserved))
			s.restore(ctx, prev, next)
			return nil, err
		}
	}
	s.notifier.Publish(ctx, domain.TopicBookingNoShow, domain.NewBookingEvent(next, "reservation expired"))
	return next, nil
}

// FlagForReview marks an over-long session for an operator. It never
// changes the booking's status.
func (s *BookingService) FlagForReview(ctx context.Context, selected domain.Booking) (*domain.Booking, error) {
	if selected.FlaggedForReview {
		return &selected, nil
	}
	next := selected.Clone()
	next.FlaggedForReview = true
	next.FlaggedAt = null.TimeFrom(s.now())
	if err := s.bookings.UpdateIfRevision(ctx, next, selected.Revision); err != nil {
		if errors.Is(err, repository.ErrRevisionConflict) {
			return nil, &domain.Error{Kind: domain.KindContended, Message: "booking changed since it was selected"}
		}
		return nil, lookupErr("BookingService.FlagForReview", "booking", err)
	}
	s.notifier.Publish(ctx, domain.TopicBookingReview, domain.NewBookingEvent(next, "session exceeded maximum length"))
	return next, nil
}

// transition reads the booking, checks the edge, applies mutate and writes
// it back under the revision it read, retrying on conflict.
func (s *BookingService) transition(ctx context.Context, id int, to domain.BookingStatus, mutate func(b *domain.Booking, now time.Time) error) (prev, next *domain.Booking, err error) {
	err = retryOnConflict(ctx, s.policy.MaxRetries, func() error {
		cur, err := s.bookings.FindByID(ctx, id)
		if err != nil {
			return lookupErr("BookingService.transition", "booking", err)
		}
		if !domain.CanTransition(cur.Status, to) {
			return domain.InvalidTransition(cur.Status, to)
		}
		candidate := cur.Clone()
		candidate.Status = to
		if err := mutate(candidate, s.now()); err != nil {
			return err
		}
		if err := s.bookings.UpdateIfRevision(ctx, candidate, cur.Revision); err != nil {
			return err
		}
		prev, next = cur, candidate
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

// restore puts prev back after a failed side effect of a committed
// transition.
func (s *BookingService) restore(ctx context.Context, prev, next *domain.Booking) {
	back := prev.Clone()
	err := s.bookings.UpdateIfRevision(detached(ctx), back, next.Revision)
	logCompensation(fmt.Sprintf("BookingService.restore(booking %d)", prev.ID), err)
}

// BookingFor returns the booking if the actor holds it or operates its area.
func (s *BookingService) BookingFor(ctx context.Context, actor domain.Actor, id int) (*domain.Booking, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID == actor.UserID {
		return b, nil
	}
	if err := s.authorizeAreaOperator(ctx, actor, b.AreaID); err != nil {
		return nil, err
	}
	return b, nil
}

// ActiveForArea is the gate board of an area, visible to its operators.
func (s *BookingService) ActiveForArea(ctx context.Context, actor domain.Actor, areaID int) ([]domain.Booking, error) {
	if err := s.authorizeAreaOperator(ctx, actor, areaID); err != nil {
		return nil, err
	}
	return s.ListActiveForArea(ctx, areaID)
}

func (s *BookingService) authorizeAreaOperator(ctx context.Context, actor domain.Actor, areaID int) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleAreaOwner:
		area, err := s.areas.FindByID(ctx, areaID)
		if err != nil {
			return lookupErr("BookingService.authorizeAreaOperator", "area", err)
		}
		if area.OwnerID == actor.UserID {
			return nil
		}
	case domain.RoleGuard:
		ids, err := s.areas.GuardAreas(ctx, actor.UserID)
		if err != nil {
			return wrapErr("BookingService.authorizeAreaOperator", err)
		}
		for _, id := range ids {
			if id == areaID {
				return nil
			}
		}
	}
	return domain.NewForbiddenError("not an operator of this area")
}

// closeSession stamps departure and totals what the booking owes.
func closeSession(b *domain.Booking, now time.Time) {
	b.DepartureTime = null.TimeFrom(now)
	b.ParkingFee = pricing.FeeBetween(b.ArrivalTime.Time, now, b.ParkingRate)
	b.AmountPending = pricing.RoundCents(b.ReservationFee + b.ParkingFee)
}

func newExitToken() (string, error) {
	tid, err := typeid.Generate("exit")
	if err != nil {
		return "", err
	}
	return tid.String(), nil
}
