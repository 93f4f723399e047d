package service

import (
	"context"
	"testing"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

func TestSchedulerCancelsNoShow(t *testing.T) {
	tests := []struct {
		name       string
		charge     bool
		wantDue    float64
		wantTopics int
	}{
		{name: "charged", charge: true, wantDue: 30, wantTopics: 1},
		{name: "free", charge: false, wantDue: 0, wantTopics: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.ChargeNoShow = tt.charge
			h := newHarness(t, policy)
			area := h.newArea(t, domain.ClassCounters{Small: 2}, []float64{1.0}, 60)
			v := h.newVehicle(t, h.driver, "KA06FF0001", domain.ClassSmall)
			b := h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)

			h.clock.Advance(29 * time.Minute)
			if r := h.scheduler.Tick(context.Background()); r.Expired != 0 {
				t.Fatalf("expired before grace ran out: %+v", r)
			}

			h.clock.Advance(2 * time.Minute)
			r := h.scheduler.Tick(context.Background())
			if r.Expired != 1 || r.Failed != 0 {
				t.Fatalf("tick = %+v, want one expiry", r)
			}

			got := h.booking(t, b.ID)
			if got.Status != domain.BookingNoShow {
				t.Errorf("status = %s", got.Status)
			}
			if sl := h.slot(t, b.SlotID); sl.Status != domain.SlotAvailable {
				t.Errorf("slot = %s, want AVAILABLE", sl.Status)
			}
			if occ := h.area(t, area.ID).Occupancy.Small; occ != 0 {
				t.Errorf("occupancy = %d", occ)
			}
			total, _ := h.dues.TotalOutstanding(context.Background(), h.driver.UserID)
			if total != tt.wantDue {
				t.Errorf("dues = %.2f, want %.2f", total, tt.wantDue)
			}
			if n := h.notifier.count(domain.TopicDueRecorded); n != tt.wantTopics {
				t.Errorf("due.recorded = %d, want %d", n, tt.wantTopics)
			}
			if h.notifier.count(domain.TopicBookingNoShow) != 1 {
				t.Error("no booking.no_show notification")
			}

			if r := h.scheduler.Tick(context.Background()); r.Expired != 0 {
				t.Errorf("second tick expired again: %+v", r)
			}
		})
	}
}

func TestReaperLosesToCheckIn(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	area := h.newArea(t, domain.ClassCounters{Small: 1}, nil, 50)
	v := h.newVehicle(t, h.driver, "KA06FF0002", domain.ClassSmall)
	b := h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)

	h.clock.Advance(31 * time.Minute)
	selected, err := h.store.Bookings().FindExpiredReservations(ctx, h.clock.Now())
	if err != nil || len(selected) != 1 {
		t.Fatalf("selection = %v, %v", selected, err)
	}

	// The driver arrives between selection and the reaper's write.
	if _, err := h.bookings.CheckIn(ctx, b.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	_, err = h.bookings.ExpireNoShow(ctx, selected[0])
	if domain.KindOf(err) != domain.KindContended {
		t.Fatalf("ExpireNoShow: got %v, want CONTENDED", err)
	}
	if got := h.booking(t, b.ID); got.Status != domain.BookingActiveParking {
		t.Errorf("status = %s, want ACTIVE_PARKING", got.Status)
	}
	if sl := h.slot(t, b.SlotID); sl.Status != domain.SlotOccupied {
		t.Errorf("slot = %s, want OCCUPIED", sl.Status)
	}
	if total, _ := h.dues.TotalOutstanding(ctx, h.driver.UserID); total != 0 {
		t.Errorf("dues = %.2f, want none", total)
	}
}

func TestSchedulerFlagsLongSessions(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	area := h.newArea(t, domain.ClassCounters{Medium: 1}, nil, 50)
	v := h.newVehicle(t, h.driver, "KA06FF0003", domain.ClassMedium)
	b := h.reserve(t, h.driver, v, area.ID, domain.IntentArrivingNow)

	h.clock.Advance(25 * time.Hour)
	r := h.scheduler.Tick(context.Background())
	if r.Flagged != 1 {
		t.Fatalf("tick = %+v, want one flag", r)
	}
	got := h.booking(t, b.ID)
	if !got.FlaggedForReview || !got.FlaggedAt.Valid {
		t.Errorf("booking not flagged: %+v", got)
	}
	if got.Status != domain.BookingActiveParking {
		t.Errorf("flagging changed status to %s", got.Status)
	}

	if r := h.scheduler.Tick(context.Background()); r.Flagged != 0 {
		t.Errorf("flagged twice: %+v", r)
	}
}
