package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

func TestDuesBlockBookingUntilSettled(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	area := h.newArea(t, domain.ClassCounters{Small: 2}, nil, 50)
	v := h.newVehicle(t, h.driver, "KA07GG0001", domain.ClassSmall)

	due, err := h.dues.Record(ctx, h.driver.UserID, v.ID, 0, 50)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	_, err = h.bookings.CreateReservation(ctx, h.driver, domain.CreateReservationDTO{VehicleID: v.ID, AreaID: area.ID})
	if !errors.Is(err, domain.ErrDuesOutstanding) {
		t.Fatalf("got %v, want DuesOutstanding", err)
	}
	if occ := h.area(t, area.ID).Occupancy.Small; occ != 0 {
		t.Errorf("rejected booking touched occupancy: %d", occ)
	}

	if _, err := h.dues.Settle(ctx, due.ID); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)
}

func TestSettleDueIsIdempotent(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	due, err := h.dues.Record(ctx, h.driver.UserID, 1, 0, 12.345)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if due.Amount != 12.35 {
		t.Errorf("amount = %.3f, want rounded to 12.35", due.Amount)
	}

	first, err := h.dues.Settle(ctx, due.ID)
	if err != nil || !first.IsPaid {
		t.Fatalf("first settle = %+v, %v", first, err)
	}
	second, err := h.dues.Settle(ctx, due.ID)
	if err != nil || !second.IsPaid || !second.PaidAt.Equal(first.PaidAt) {
		t.Fatalf("second settle = %+v, %v", second, err)
	}
	if n := h.notifier.count(domain.TopicDueSettled); n != 1 {
		t.Errorf("due.settled published %d times", n)
	}

	if _, err := h.dues.Record(ctx, h.driver.UserID, 1, 0, 0); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("zero due: got %v", err)
	}
	if _, err := h.dues.Settle(ctx, 404); domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("unknown due: got %v", err)
	}
}

func TestVehicleScopedDues(t *testing.T) {
	tests := []struct {
		name      string
		block     bool
		wantError bool
	}{
		{"blocked", true, true},
		{"allowed", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.BlockOnVehicleDues = tt.block
			h := newHarness(t, policy)
			ctx := context.Background()
			area := h.newArea(t, domain.ClassCounters{Small: 1}, nil, 50)

			friend := h.newUser(t, "friend", domain.RoleDriver)
			v := h.newVehicle(t, h.driver, "KA07GG0002", domain.ClassSmall)
			if err := h.vehicles.GrantAccess(ctx, h.driver, v.ID, friend.UserID); err != nil {
				t.Fatalf("GrantAccess: %v", err)
			}
			// The debt was run up by the friend but follows the vehicle.
			if _, err := h.dues.Record(ctx, friend.UserID, v.ID, 0, 25); err != nil {
				t.Fatalf("Record: %v", err)
			}

			_, err := h.bookings.CreateReservation(ctx, h.driver, domain.CreateReservationDTO{VehicleID: v.ID, AreaID: area.ID})
			if tt.wantError != errors.Is(err, domain.ErrDuesOutstanding) {
				t.Fatalf("got %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDuesThreshold(t *testing.T) {
	policy := DefaultPolicy()
	policy.DuesThreshold = 100
	h := newHarness(t, policy)
	ctx := context.Background()

	if _, err := h.dues.Record(ctx, h.driver.UserID, 1, 0, 100); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := h.dues.CheckBookingAllowed(ctx, h.driver.UserID, 1); err != nil {
		t.Errorf("at threshold: %v", err)
	}
	if _, err := h.dues.Record(ctx, h.driver.UserID, 1, 0, 0.01); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := h.dues.CheckBookingAllowed(ctx, h.driver.UserID, 1); !errors.Is(err, domain.ErrDuesOutstanding) {
		t.Errorf("above threshold: got %v", err)
	}
}
