package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

var ErrPaymentDeclined = errors.New("payment declined")

// PaymentCapturer is the capturePayment(amount) collaborator.
type PaymentCapturer interface {
	Capture(ctx context.Context, userID int, amount float64) (string, error)
	Refund(ctx context.Context, reference string) error
}

// SimulatedGateway approves every positive capture and keeps the references
// it issued so refunds can be checked.
type SimulatedGateway struct {
	mu       sync.Mutex
	captured map[string]float64
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{captured: make(map[string]float64)}
}

func (g *SimulatedGateway) Capture(ctx context.Context, userID int, amount float64) (string, error) {
	if amount < 0 {
		return "", ErrPaymentDeclined
	}
	ref := uuid.NewString()
	g.mu.Lock()
	g.captured[ref] = amount
	g.mu.Unlock()
	return ref, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.captured[reference]; !ok {
		return fmt.Errorf("unknown payment reference %s", reference)
	}
	delete(g.captured, reference)
	return nil
}

// PaymentService captures money and then moves the core: a booking
// settlement or a due settlement. A capture whose core step fails is
// refunded.
type PaymentService struct {
	gateway  PaymentCapturer
	bookings *BookingService
	dues     *DuesLedger
}

func NewPaymentService(gateway PaymentCapturer, bookings *BookingService, dues *DuesLedger) *PaymentService {
	return &PaymentService{gateway: gateway, bookings: bookings, dues: dues}
}

func (s *PaymentService) PayBooking(ctx context.Context, actor domain.Actor, bookingID int, dto domain.SettleBookingDTO) (*domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	// Paying for someone else or releasing without full payment is gate work
	// for the booking's own area.
	if b.UserID != actor.UserID || dto.Abandon {
		if err := s.bookings.authorizeAreaOperator(ctx, actor, b.AreaID); err != nil {
			return nil, err
		}
	}

	ref, err := s.gateway.Capture(ctx, b.UserID, dto.Amount)
	if err != nil {
		return nil, fmt.Errorf("PaymentService.PayBooking: %w", err)
	}
	settled, err := s.bookings.Settle(ctx, bookingID, dto.Amount, dto.Abandon)
	if err != nil {
		logCompensation("PaymentService.PayBooking", s.gateway.Refund(detached(ctx), ref))
		return nil, err
	}
	log.Printf("PaymentService.PayBooking: booking %d settled with payment %s", bookingID, ref)
	return settled, nil
}

func (s *PaymentService) PayDue(ctx context.Context, actor domain.Actor, dueID int) (*domain.OutstandingDue, error) {
	due, err := s.dues.Get(ctx, dueID)
	if err != nil {
		return nil, err
	}
	if due.UserID != actor.UserID && actor.Role != domain.RoleAdmin {
		return nil, domain.NewForbiddenError("due belongs to another user")
	}
	if due.IsPaid {
		return due, nil
	}
	ref, err := s.gateway.Capture(ctx, due.UserID, due.Amount)
	if err != nil {
		return nil, fmt.Errorf("PaymentService.PayDue: %w", err)
	}
	settled, flipped, err := s.dues.settle(ctx, dueID)
	if err != nil {
		logCompensation("PaymentService.PayDue", s.gateway.Refund(detached(ctx), ref))
		return nil, err
	}
	if !flipped {
		log.Printf("PaymentService.PayDue: due %d was settled concurrently, refunding %s", dueID, ref)
		logCompensation("PaymentService.PayDue", s.gateway.Refund(detached(ctx), ref))
	}
	return settled, nil
}
