package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

func TestReservationFailsWhenClassIsFull(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	area := h.newArea(t, domain.ClassCounters{Small: 2}, []float64{0.0, 1.0}, 40)

	for i := 1; i <= 2; i++ {
		v := h.newVehicle(t, h.driver, fmt.Sprintf("KA01AB000%d", i), domain.ClassSmall)
		h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)
	}

	third := h.newVehicle(t, h.driver, "KA01AB0003", domain.ClassSmall)
	_, err := h.bookings.CreateReservation(context.Background(), h.driver, domain.CreateReservationDTO{VehicleID: third.ID, AreaID: area.ID})
	if !errors.Is(err, domain.ErrNoAvailableSlot) {
		t.Fatalf("third reservation: got %v, want NoAvailableSlot", err)
	}

	got := h.area(t, area.ID)
	if got.Occupancy.Small != 2 {
		t.Errorf("occupancy = %d, want 2", got.Occupancy.Small)
	}
	if got.DemandIndex.Small != 1 {
		t.Errorf("demand index = %d, want 1 for a full area", got.DemandIndex.Small)
	}
}

func TestReservationTakesLowestLabelAndSnapshotsRate(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	area := h.newArea(t, domain.ClassCounters{Small: 4}, nil, 80)

	v1 := h.newVehicle(t, h.driver, "KA01AB1111", domain.ClassSmall)
	b1 := h.reserve(t, h.driver, v1, area.ID, domain.IntentReserveAhead)
	if sl := h.slot(t, b1.SlotID); sl.Label != "S_G_01" || sl.Status != domain.SlotReserved {
		t.Fatalf("first slot = %s %s, want S_G_01 RESERVED", sl.Label, sl.Status)
	}
	// 1 of 4 occupied: floor(1*3/4) = 0
	if b1.Multiplier != 0.0 || b1.ReservationRate != 0 {
		t.Errorf("first booking multiplier %.2f rate %.2f, want 0", b1.Multiplier, b1.ReservationRate)
	}

	v2 := h.newVehicle(t, h.driver, "KA01AB2222", domain.ClassSmall)
	b2 := h.reserve(t, h.driver, v2, area.ID, domain.IntentReserveAhead)
	// 2 of 4: floor(2*3/4) = 1
	if b2.Multiplier != 0.35 || b2.ReservationRate != 28 {
		t.Errorf("second booking multiplier %.2f rate %.2f, want 0.35 and 28", b2.Multiplier, b2.ReservationRate)
	}
	if b2.ParkingRate != 80 {
		t.Errorf("parking rate = %.2f, want base 80", b2.ParkingRate)
	}
	if !b2.ExpectedEndTime.Equal(t0.Add(30 * time.Minute)) {
		t.Errorf("expected end = %s", b2.ExpectedEndTime)
	}

	// The snapshot survives later repricing.
	if _, err := h.areas.UpdateMultipliers(context.Background(), h.owner, area.ID, []float64{1, 1, 1, 1}); err != nil {
		t.Fatalf("UpdateMultipliers: %v", err)
	}
	if got := h.booking(t, b2.ID); got.ReservationRate != 28 {
		t.Errorf("rate changed to %.2f after repricing", got.ReservationRate)
	}
	if h.notifier.count(domain.TopicBookingReserved) != 2 {
		t.Errorf("reserved notifications = %d, want 2", h.notifier.count(domain.TopicBookingReserved))
	}
}

func TestCheckInReservationFee(t *testing.T) {
	tests := []struct {
		name    string
		arrival time.Duration
		wantFee float64
	}{
		{"inside waiver", 5 * time.Minute, 0},
		{"at waiver boundary", 10 * time.Minute, 0},
		{"fifteen minutes", 15 * time.Minute, 15},
		// The whole interval since reservation is billed once the waiver is
		// exceeded. One worked example quotes 15 here; it contradicts that rule
		// and the rule wins, so this stays at 20.
		{"twenty minutes", 20 * time.Minute, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultPolicy())
			area := h.newArea(t, domain.ClassCounters{Medium: 3}, []float64{1.0}, 60)
			v := h.newVehicle(t, h.driver, "MH12DE1433", domain.ClassMedium)
			b := h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)

			h.clock.Advance(tt.arrival)
			got, err := h.bookings.CheckIn(context.Background(), b.ID)
			if err != nil {
				t.Fatalf("CheckIn: %v", err)
			}
			if got.Status != domain.BookingActiveParking {
				t.Errorf("status = %s", got.Status)
			}
			if got.ReservationFee != tt.wantFee {
				t.Errorf("reservation fee = %.2f, want %.2f", got.ReservationFee, tt.wantFee)
			}
			if !got.ArrivalTime.Valid || !got.ArrivalTime.Time.Equal(t0.Add(tt.arrival)) {
				t.Errorf("arrival = %v", got.ArrivalTime)
			}
			if sl := h.slot(t, b.SlotID); sl.Status != domain.SlotOccupied {
				t.Errorf("slot = %s, want OCCUPIED", sl.Status)
			}
			if occ := h.area(t, area.ID).Occupancy.Medium; occ != 1 {
				t.Errorf("occupancy = %d, want 1", occ)
			}
		})
	}
}

func TestFullLifecycle(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	area := h.newArea(t, domain.ClassCounters{Large: 2}, []float64{1.0}, 60)
	v := h.newVehicle(t, h.driver, "dl 3c 1234", domain.ClassLarge)
	b := h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)

	h.clock.Advance(20 * time.Minute)
	if _, err := h.bookings.CheckIn(ctx, b.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	h.clock.Advance(2 * time.Hour)
	out, err := h.bookings.CheckOut(ctx, b.ID)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.Status != domain.BookingPaymentPending {
		t.Fatalf("status = %s", out.Status)
	}
	if out.ParkingFee != 120 || out.AmountPending != 140 {
		t.Errorf("parking fee %.2f pending %.2f, want 120 and 140", out.ParkingFee, out.AmountPending)
	}
	if sl := h.slot(t, b.SlotID); sl.Status != domain.SlotAvailable {
		t.Errorf("slot after checkout = %s, want AVAILABLE", sl.Status)
	}
	if occ := h.area(t, area.ID).Occupancy.Large; occ != 0 {
		t.Errorf("occupancy after checkout = %d", occ)
	}

	done, err := h.bookings.Settle(ctx, b.ID, 140, false)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if done.Status != domain.BookingCompleted || done.AmountPaid != 140 {
		t.Errorf("settled = %s paid %.2f", done.Status, done.AmountPaid)
	}
	if !done.ExitToken.Valid || !strings.HasPrefix(done.ExitToken.String, "exit_") {
		t.Errorf("exit token = %v", done.ExitToken)
	}

	again, err := h.bookings.Settle(ctx, b.ID, 140, false)
	if !errors.Is(err, domain.ErrInvalidTransition) || again != nil {
		t.Fatalf("second settle: got %v, want InvalidTransition", err)
	}
	if got := h.booking(t, b.ID); got.Revision != done.Revision || got.ExitToken != done.ExitToken {
		t.Errorf("second settle changed the booking")
	}

	want := []string{domain.TopicBookingReserved, domain.TopicBookingCheckedIn, domain.TopicBookingCheckedOut, domain.TopicBookingCompleted}
	var booking []string
	for _, topic := range h.notifier.topics() {
		if strings.HasPrefix(topic, "booking.") {
			booking = append(booking, topic)
		}
	}
	if fmt.Sprint(booking) != fmt.Sprint(want) {
		t.Errorf("booking notifications = %v, want %v", booking, want)
	}
}

func TestSettleShortPayment(t *testing.T) {
	setup := func(t *testing.T) (*harness, *domain.Booking) {
		h := newHarness(t, DefaultPolicy())
		area := h.newArea(t, domain.ClassCounters{Small: 1}, []float64{1.0}, 60)
		v := h.newVehicle(t, h.driver, "KA05MN7788", domain.ClassSmall)
		b := h.reserve(t, h.driver, v, area.ID, domain.IntentArrivingNow)
		h.clock.Advance(time.Hour)
		if _, err := h.bookings.CheckOut(context.Background(), b.ID); err != nil {
			t.Fatalf("CheckOut: %v", err)
		}
		return h, b
	}

	t.Run("rejected without abandon", func(t *testing.T) {
		h, b := setup(t)
		before := h.booking(t, b.ID)
		_, err := h.bookings.Settle(context.Background(), b.ID, 20, false)
		if !errors.Is(err, domain.ErrInsufficientPayment) {
			t.Fatalf("got %v, want InsufficientPayment", err)
		}
		after := h.booking(t, b.ID)
		if after.Status != domain.BookingPaymentPending || after.Revision != before.Revision {
			t.Errorf("booking changed: %s rev %d", after.Status, after.Revision)
		}
	})

	t.Run("abandon defaults and records the shortfall", func(t *testing.T) {
		h, b := setup(t)
		got, err := h.bookings.Settle(context.Background(), b.ID, 20, true)
		if err != nil {
			t.Fatalf("Settle: %v", err)
		}
		if got.Status != domain.BookingDefaulted {
			t.Fatalf("status = %s", got.Status)
		}
		total, _ := h.dues.TotalOutstanding(context.Background(), h.driver.UserID)
		if total != 40 {
			t.Errorf("outstanding = %.2f, want 40", total)
		}
	})

	t.Run("negative amount", func(t *testing.T) {
		h, b := setup(t)
		if _, err := h.bookings.Settle(context.Background(), b.ID, -1, false); domain.KindOf(err) != domain.KindValidation {
			t.Errorf("got %v, want validation error", err)
		}
	})
}

func TestArrivingNowStartsParking(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	area := h.newArea(t, domain.ClassCounters{Small: 1}, nil, 50)
	v := h.newVehicle(t, h.driver, "TN09BZ4455", domain.ClassSmall)

	b := h.reserve(t, h.driver, v, area.ID, domain.IntentArrivingNow)
	if b.Status != domain.BookingActiveParking || !b.ArrivalTime.Valid {
		t.Fatalf("booking = %s arrival %v", b.Status, b.ArrivalTime)
	}
	if b.ReservationFee != 0 {
		t.Errorf("reservation fee = %.2f", b.ReservationFee)
	}
	if sl := h.slot(t, b.SlotID); sl.Status != domain.SlotOccupied {
		t.Errorf("slot = %s, want OCCUPIED", sl.Status)
	}
	if occ := h.area(t, area.ID).Occupancy.Small; occ != 1 {
		t.Errorf("occupancy = %d", occ)
	}
}

func TestInvalidTransitionsLeaveBookingUntouched(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	area := h.newArea(t, domain.ClassCounters{Small: 2}, nil, 50)
	v := h.newVehicle(t, h.driver, "KA01AA0001", domain.ClassSmall)
	b := h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)

	ops := map[string]func() error{
		"checkout reserved": func() error { _, err := h.bookings.CheckOut(ctx, b.ID); return err },
		"settle reserved":   func() error { _, err := h.bookings.Settle(ctx, b.ID, 0, false); return err },
		"default reserved":  func() error { _, err := h.bookings.ForceDefault(ctx, h.admin, b.ID); return err },
	}
	for name, op := range ops {
		before := h.booking(t, b.ID)
		if err := op(); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("%s: got %v, want InvalidTransition", name, err)
		}
		after := h.booking(t, b.ID)
		if after.Status != before.Status || after.Revision != before.Revision {
			t.Errorf("%s: booking changed to %s rev %d", name, after.Status, after.Revision)
		}
	}

	if _, err := h.bookings.CheckIn(ctx, b.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := h.bookings.CheckIn(ctx, b.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("double check-in: got %v", err)
	}
	if _, err := h.bookings.CheckIn(ctx, 999); domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("unknown booking: got %v", err)
	}
}

func TestVehicleBusyAndAccess(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	area := h.newArea(t, domain.ClassCounters{Small: 3}, nil, 50)
	v := h.newVehicle(t, h.driver, "KA01AA0002", domain.ClassSmall)
	h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)

	_, err := h.bookings.CreateReservation(ctx, h.driver, domain.CreateReservationDTO{VehicleID: v.ID, AreaID: area.ID})
	if !errors.Is(err, domain.ErrVehicleBusy) {
		t.Fatalf("second booking: got %v, want VehicleBusy", err)
	}
	if occ := h.area(t, area.ID).Occupancy.Small; occ != 1 {
		t.Errorf("occupancy = %d, want 1", occ)
	}

	stranger := h.newUser(t, "stranger", domain.RoleDriver)
	other := h.newVehicle(t, h.driver, "KA01AA0003", domain.ClassSmall)
	_, err = h.bookings.CreateReservation(ctx, stranger, domain.CreateReservationDTO{VehicleID: other.ID, AreaID: area.ID})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger: got %v, want Forbidden", err)
	}
	if err := h.vehicles.GrantAccess(ctx, h.driver, other.ID, stranger.UserID); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	h.reserve(t, stranger, other, area.ID, domain.IntentReserveAhead)
}

func TestConcurrentReservationsNeverOverbook(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxRetries = 1000
	h := newHarness(t, policy)
	const capacity, drivers = 20, 30
	area := h.newArea(t, domain.ClassCounters{Small: capacity}, nil, 50)

	vehicles := make([]*domain.Vehicle, drivers)
	for i := range vehicles {
		vehicles[i] = h.newVehicle(t, h.driver, fmt.Sprintf("KA02CC%04d", i), domain.ClassSmall)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       = map[int]bool{}
		noSlot    int
		contended int
	)
	start := make(chan struct{})
	for _, v := range vehicles {
		wg.Add(1)
		go func(v *domain.Vehicle) {
			defer wg.Done()
			<-start
			b, err := h.bookings.CreateReservation(context.Background(), h.driver, domain.CreateReservationDTO{VehicleID: v.ID, AreaID: area.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				if won[b.SlotID] {
					t.Errorf("slot %d booked twice", b.SlotID)
				}
				won[b.SlotID] = true
			case errors.Is(err, domain.ErrNoAvailableSlot):
				noSlot++
			case errors.Is(err, domain.ErrContended):
				contended++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(v)
	}
	close(start)
	wg.Wait()

	if len(won) > capacity {
		t.Fatalf("%d bookings for %d slots", len(won), capacity)
	}
	if contended == 0 && len(won) != capacity {
		t.Errorf("won %d, want all %d slots taken", len(won), capacity)
	}
	if len(won)+noSlot+contended != drivers {
		t.Errorf("outcomes do not add up: %d + %d + %d", len(won), noSlot, contended)
	}
	got := h.area(t, area.ID)
	if got.Occupancy.Small != len(won) {
		t.Errorf("occupancy %d != bookings %d", got.Occupancy.Small, len(won))
	}
	if reserved := countSlots(t, h, area.ID, domain.SlotReserved); reserved != len(won) {
		t.Errorf("reserved slots %d != bookings %d", reserved, len(won))
	}
}

func TestCancelledReservationReleasesSlot(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	area := h.newArea(t, domain.ClassCounters{Small: 2}, nil, 50)
	v := h.newVehicle(t, h.driver, "KA03DD0001", domain.ClassSmall)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.notifier.onPublish = func(topic string) {
		if topic == domain.TopicSlotAvailability {
			cancel()
		}
	}

	_, err := h.bookings.CreateReservation(ctx, h.driver, domain.CreateReservationDTO{VehicleID: v.ID, AreaID: area.ID})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	h.notifier.onPublish = nil

	if occ := h.area(t, area.ID).Occupancy.Small; occ != 0 {
		t.Errorf("occupancy = %d, want 0", occ)
	}
	if n := countSlots(t, h, area.ID, domain.SlotAvailable); n != 2 {
		t.Errorf("available = %d, want 2", n)
	}
	if list, _ := h.bookings.ListForUser(context.Background(), h.driver.UserID); len(list) != 0 {
		t.Errorf("bookings left behind: %d", len(list))
	}
}

func TestForceDefault(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	area := h.newArea(t, domain.ClassCounters{Small: 2}, []float64{1.0}, 60)
	v := h.newVehicle(t, h.driver, "KA04EE0001", domain.ClassSmall)
	b := h.reserve(t, h.driver, v, area.ID, domain.IntentArrivingNow)
	h.clock.Advance(time.Hour)

	guard := h.newUser(t, "guard", domain.RoleDriver)
	if _, err := h.bookings.ForceDefault(ctx, h.driver, b.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("driver: got %v, want Forbidden", err)
	}
	if _, err := h.bookings.ForceDefault(ctx, domain.Actor{UserID: guard.UserID, Role: domain.RoleGuard}, b.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("unassigned guard: got %v, want Forbidden", err)
	}
	if err := h.areas.AssignGuard(ctx, h.owner, area.ID, guard.UserID); err != nil {
		t.Fatalf("AssignGuard: %v", err)
	}

	got, err := h.bookings.ForceDefault(ctx, domain.Actor{UserID: guard.UserID, Role: domain.RoleGuard}, b.ID)
	if err != nil {
		t.Fatalf("ForceDefault: %v", err)
	}
	if got.Status != domain.BookingDefaulted || got.ParkingFee != 60 {
		t.Errorf("booking = %s fee %.2f", got.Status, got.ParkingFee)
	}
	if sl := h.slot(t, b.SlotID); sl.Status != domain.SlotAvailable {
		t.Errorf("slot = %s, want AVAILABLE", sl.Status)
	}
	summary, err := h.dues.Summary(ctx, h.driver.UserID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Outstanding != 60 || len(summary.Dues) != 1 || summary.Dues[0].BookingID != b.ID {
		t.Errorf("summary = %+v", summary)
	}
}
