package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCanTransition(t *testing.T) {
	all := []BookingStatus{BookingReserved, BookingActiveParking, BookingPaymentPending, BookingCompleted, BookingNoShow, BookingDefaulted}
	allowed := map[[2]BookingStatus]bool{
		{BookingReserved, BookingActiveParking}:       true,
		{BookingReserved, BookingNoShow}:              true,
		{BookingActiveParking, BookingPaymentPending}: true,
		{BookingActiveParking, BookingDefaulted}:      true,
		{BookingPaymentPending, BookingCompleted}:     true,
		{BookingPaymentPending, BookingDefaulted}:     true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]BookingStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
	for _, s := range []BookingStatus{BookingCompleted, BookingNoShow, BookingDefaulted} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestSlotLabels(t *testing.T) {
	tests := []struct {
		class VehicleClass
		floor int
		seq   int
		want  string
	}{
		{ClassSmall, 0, 1, "S_G_01"},
		{ClassMedium, -2, 12, "M_B2_12"},
		{ClassLarge, 1, 3, "L_F1_03"},
	}
	for _, tt := range tests {
		got := SlotLabel(tt.class, tt.floor, tt.seq)
		if got != tt.want {
			t.Errorf("SlotLabel(%s, %d, %d) = %s, want %s", tt.class, tt.floor, tt.seq, got, tt.want)
		}
		if seq := LabelSequence(got); seq != tt.seq {
			t.Errorf("LabelSequence(%s) = %d", got, seq)
		}
	}
}

func TestNormalizePlate(t *testing.T) {
	for in, want := range map[string]string{
		" ka-01 ab 1234 ": "KA01AB1234",
		"DL.3C.1234":      "DL3C1234",
	} {
		if got := NormalizePlate(in); got != want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("booking 7: %w", InvalidTransition(BookingCompleted, BookingCompleted))
	if !errors.Is(wrapped, ErrInvalidTransition) {
		t.Error("wrapped transition error lost its kind")
	}
	if KindOf(wrapped) != KindInvalidTransition {
		t.Errorf("KindOf = %s", KindOf(wrapped))
	}
	if errors.Is(wrapped, ErrContended) {
		t.Error("kinds must not cross-match")
	}

	shrink := &InsufficientRemovableSlotsError{Requested: 3, Removable: 2}
	if KindOf(shrink) != KindInsufficientRemovableSlots || !errors.Is(shrink, ErrInsufficientRemovableSlots) {
		t.Error("shrink error kind")
	}
	if KindOf(errors.New("boom")) != "" || MessageOf(errors.New("boom")) != "internal error" {
		t.Error("foreign errors must stay outside the taxonomy")
	}
}

func TestAreaValidate(t *testing.T) {
	valid := func() *Area {
		return &Area{Name: "A", Multipliers: DefaultMultipliers, GracePeriod: DefaultGracePeriod, WaiverPeriod: DefaultWaiverPeriod}
	}
	tests := map[string]func(a *Area){
		"no name":         func(a *Area) { a.Name = "" },
		"negative cap":    func(a *Area) { a.Capacity.Small = -1 },
		"empty table":     func(a *Area) { a.Multipliers = nil },
		"multiplier > 1":  func(a *Area) { a.Multipliers = []float64{0.5, 1.2} },
		"zero grace":      func(a *Area) { a.GracePeriod = 0 },
		"waiver > grace":  func(a *Area) { a.WaiverPeriod = a.GracePeriod + 1 },
		"occupancy > cap": func(a *Area) { a.Occupancy.Large = 1 },
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid area: %v", err)
	}
	for name, mutate := range tests {
		a := valid()
		mutate(a)
		if err := a.Validate(); KindOf(err) != KindValidation {
			t.Errorf("%s: got %v", name, err)
		}
	}
}
