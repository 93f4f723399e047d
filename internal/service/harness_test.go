package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository/memory"
)

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type published struct {
	topic   string
	payload any
}

type recordingNotifier struct {
	mu        sync.Mutex
	events    []published
	onPublish func(topic string)
}

func (n *recordingNotifier) Publish(ctx context.Context, topic string, payload any) {
	n.mu.Lock()
	n.events = append(n.events, published{topic: topic, payload: payload})
	hook := n.onPublish
	n.mu.Unlock()
	if hook != nil {
		hook(topic)
	}
}

func (n *recordingNotifier) topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.topic
	}
	return out
}

func (n *recordingNotifier) count(topic string) int {
	c := 0
	for _, t := range n.topics() {
		if t == topic {
			c++
		}
	}
	return c
}

type harness struct {
	store     *memory.Store
	clock     *testClock
	notifier  *recordingNotifier
	policy    Policy
	pricing   *PricingEngine
	inventory *SlotInventory
	dues      *DuesLedger
	bookings  *BookingService
	areas     *AreaService
	vehicles  *VehicleService
	payments  *PaymentService
	gateway   *SimulatedGateway
	scheduler *ExpiryScheduler

	owner  domain.Actor
	driver domain.Actor
	admin  domain.Actor
}

func newHarness(t *testing.T, policy Policy) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(),
		clock:    &testClock{now: t0},
		notifier: &recordingNotifier{},
		policy:   policy,
	}
	now := h.clock.Now
	h.pricing = NewPricingEngine(h.store.Areas(), policy)
	h.inventory = NewSlotInventory(h.store.Areas(), h.store.Slots(), h.pricing, h.notifier, policy)
	h.dues = NewDuesLedger(h.store.Dues(), h.notifier, policy, now)
	h.bookings = NewBookingService(h.store.Bookings(), h.store.Vehicles(), h.store.Areas(), h.inventory, h.pricing, h.dues, h.notifier, policy, now)
	h.areas = NewAreaService(h.store.Areas(), h.store.Users(), h.inventory, h.pricing, policy, 30*time.Minute, 10*time.Minute)
	h.vehicles = NewVehicleService(h.store.Vehicles(), h.store.Users(), h.dues)
	h.gateway = NewSimulatedGateway()
	h.payments = NewPaymentService(h.gateway, h.bookings, h.dues)
	h.scheduler = NewExpiryScheduler(h.store.Bookings(), h.bookings, time.Minute, policy, now)

	h.owner = h.newUser(t, "owner", domain.RoleAreaOwner)
	h.driver = h.newUser(t, "driver", domain.RoleDriver)
	h.admin = h.newUser(t, "admin", domain.RoleAdmin)
	return h
}

func (h *harness) newUser(t *testing.T, name, role string) domain.Actor {
	t.Helper()
	u, err := h.store.Users().Create(context.Background(), &domain.User{Username: name, Password: "x", Role: role})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return domain.Actor{UserID: u.ID, Role: u.Role}
}

// newArea creates an area owned by h.owner and opens every generated slot.
func (h *harness) newArea(t *testing.T, capacity domain.ClassCounters, table []float64, rate float64) *domain.Area {
	t.Helper()
	ctx := context.Background()
	area, err := h.areas.CreateArea(ctx, h.owner, domain.CreateAreaDTO{
		Name:        "Test Area",
		Address:     "1 Test Road",
		Capacity:    capacity,
		BaseRates:   &domain.ClassRates{Small: rate, Medium: rate, Large: rate},
		Multipliers: table,
	})
	if err != nil {
		t.Fatalf("CreateArea: %v", err)
	}
	slots, err := h.inventory.SlotsByArea(ctx, area.ID)
	if err != nil {
		t.Fatalf("SlotsByArea: %v", err)
	}
	for _, sl := range slots {
		if _, err := h.inventory.SetSlotStatus(ctx, sl.ID, domain.SlotAvailable); err != nil {
			t.Fatalf("open slot %s: %v", sl.Label, err)
		}
	}
	return h.area(t, area.ID)
}

func (h *harness) area(t *testing.T, id int) *domain.Area {
	t.Helper()
	a, err := h.store.Areas().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find area %d: %v", id, err)
	}
	return a
}

func (h *harness) slot(t *testing.T, id int) *domain.Slot {
	t.Helper()
	sl, err := h.store.Slots().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find slot %d: %v", id, err)
	}
	return sl
}

func (h *harness) booking(t *testing.T, id int) *domain.Booking {
	t.Helper()
	b, err := h.store.Bookings().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find booking %d: %v", id, err)
	}
	return b
}

func (h *harness) newVehicle(t *testing.T, actor domain.Actor, plate string, class domain.VehicleClass) *domain.Vehicle {
	t.Helper()
	v, err := h.vehicles.Register(context.Background(), actor, domain.RegisterVehicleDTO{Plate: plate, Class: class})
	if err != nil {
		t.Fatalf("register vehicle %s: %v", plate, err)
	}
	return v
}

func (h *harness) reserve(t *testing.T, actor domain.Actor, vehicle *domain.Vehicle, areaID int, intent domain.BookingIntent) *domain.Booking {
	t.Helper()
	b, err := h.bookings.CreateReservation(context.Background(), actor, domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		AreaID:    areaID,
		Intent:    intent,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	return b
}

func countSlots(t *testing.T, h *harness, areaID int, status domain.SlotStatus) int {
	t.Helper()
	slots, err := h.inventory.SlotsByArea(context.Background(), areaID)
	if err != nil {
		t.Fatalf("SlotsByArea: %v", err)
	}
	n := 0
	for _, sl := range slots {
		if sl.Status == status {
			n++
		}
	}
	return n
}
