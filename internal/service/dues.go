package service

import (
	"context"
	"log"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/pricing"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

// DuesLedger is the append-only record of unpaid amounts. A due is never
// edited except to mark it paid.
type DuesLedger struct {
	dues     repository.DueRepository
	notifier Notifier
	policy   Policy
	now      Clock
}

func NewDuesLedger(dues repository.DueRepository, notifier Notifier, policy Policy, now Clock) *DuesLedger {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if now == nil {
		now = SystemClock
	}
	return &DuesLedger{dues: dues, notifier: notifier, policy: policy, now: now}
}

func (l *DuesLedger) TotalOutstanding(ctx context.Context, userID int) (float64, error) {
	total, err := l.dues.SumUnpaidByUser(ctx, userID)
	if err != nil {
		return 0, wrapErr("DuesLedger.TotalOutstanding", err)
	}
	return pricing.RoundCents(total), nil
}

func (l *DuesLedger) OutstandingForVehicle(ctx context.Context, vehicleID int) (float64, error) {
	total, err := l.dues.SumUnpaidByVehicle(ctx, vehicleID)
	if err != nil {
		return 0, wrapErr("DuesLedger.OutstandingForVehicle", err)
	}
	return pricing.RoundCents(total), nil
}

func (l *DuesLedger) Record(ctx context.Context, userID, vehicleID, bookingID int, amount float64) (*domain.OutstandingDue, error) {
	amount = pricing.RoundCents(amount)
	if amount <= 0 {
		return nil, domain.NewValidationError("due amount must be positive")
	}
	due, err := l.dues.Create(ctx, &domain.OutstandingDue{
		UserID:    userID,
		VehicleID: vehicleID,
		BookingID: bookingID,
		Amount:    amount,
		CreatedAt: l.now(),
	})
	if err != nil {
		return nil, wrapErr("DuesLedger.Record", err)
	}
	log.Printf("DuesLedger.Record: due %d of %.2f for user %d, vehicle %d (booking %d)", due.ID, amount, userID, vehicleID, bookingID)
	l.notifier.Publish(ctx, domain.TopicDueRecorded, dueEvent(due))
	return due, nil
}

// Settle marks a due paid. Settling an already paid due returns it unchanged.
func (l *DuesLedger) Settle(ctx context.Context, dueID int) (*domain.OutstandingDue, error) {
	due, _, err := l.settle(ctx, dueID)
	return due, err
}

// settle also reports whether this call was the one that marked the due paid.
func (l *DuesLedger) settle(ctx context.Context, dueID int) (*domain.OutstandingDue, bool, error) {
	flipped, err := l.dues.MarkPaid(ctx, dueID, l.now())
	if err != nil {
		return nil, false, lookupErr("DuesLedger.Settle", "due", err)
	}
	due, err := l.dues.FindByID(ctx, dueID)
	if err != nil {
		return nil, false, lookupErr("DuesLedger.Settle", "due", err)
	}
	if flipped {
		l.notifier.Publish(ctx, domain.TopicDueSettled, dueEvent(due))
	}
	return due, flipped, nil
}

func (l *DuesLedger) Get(ctx context.Context, dueID int) (*domain.OutstandingDue, error) {
	due, err := l.dues.FindByID(ctx, dueID)
	if err != nil {
		return nil, lookupErr("DuesLedger.Get", "due", err)
	}
	return due, nil
}

func (l *DuesLedger) Summary(ctx context.Context, userID int) (*domain.DuesSummary, error) {
	dues, err := l.dues.FindUnpaidByUser(ctx, userID)
	if err != nil {
		return nil, wrapErr("DuesLedger.Summary", err)
	}
	summary := &domain.DuesSummary{UserID: userID, Dues: dues}
	for _, d := range dues {
		summary.Outstanding += d.Amount
	}
	summary.Outstanding = pricing.RoundCents(summary.Outstanding)
	if summary.Dues == nil {
		summary.Dues = []domain.OutstandingDue{}
	}
	return summary, nil
}

// CheckBookingAllowed is the gate applied before a reservation: the user's
// total, and optionally the vehicle's, must not exceed the threshold.
func (l *DuesLedger) CheckBookingAllowed(ctx context.Context, userID, vehicleID int) error {
	total, err := l.TotalOutstanding(ctx, userID)
	if err != nil {
		return err
	}
	if total > l.policy.DuesThreshold {
		return domain.DuesOutstanding(total)
	}
	if !l.policy.BlockOnVehicleDues {
		return nil
	}
	vehicleTotal, err := l.OutstandingForVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	if vehicleTotal > l.policy.DuesThreshold {
		return domain.DuesOutstanding(vehicleTotal)
	}
	return nil
}

func dueEvent(d *domain.OutstandingDue) domain.DueEvent {
	return domain.DueEvent{DueID: d.ID, UserID: d.UserID, VehicleID: d.VehicleID, BookingID: d.BookingID, Amount: d.Amount}
}
