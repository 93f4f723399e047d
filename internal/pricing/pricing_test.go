package pricing

import (
	"testing"
	"time"
)

func TestFee(t *testing.T) {
	tests := []struct {
		name    string
		minutes float64
		rate    float64
		want    float64
	}{
		{"one hour", 60, 40, 40},
		{"quarter hour", 15, 40, 10},
		{"twenty minutes", 20, 30, 10},
		{"zero duration", 0, 40, 0},
		{"negative duration", -10, 40, 0},
		{"zero rate", 30, 0, 0},
		{"rounded to cents", 1, 10, 0.17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fee(tt.minutes, tt.rate); got != tt.want {
				t.Errorf("Fee(%v, %v) = %v, want %v", tt.minutes, tt.rate, got, tt.want)
			}
		})
	}
}

func TestFeeBetween(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if got := FeeBetween(start, start.Add(90*time.Minute), 20); got != 30 {
		t.Errorf("FeeBetween 90m = %v, want 30", got)
	}
	if got := FeeBetween(start, start.Add(-time.Minute), 20); got != 0 {
		t.Errorf("FeeBetween reversed = %v, want 0", got)
	}
}

func TestDemandIndex(t *testing.T) {
	tests := []struct {
		occ, capacity, n int
		want             int
	}{
		{0, 4, 4, 0},
		{1, 4, 4, 0},
		{2, 4, 4, 1},
		{3, 4, 4, 2},
		{4, 4, 4, 3},
		{5, 4, 4, 3},
		{1, 2, 2, 0},
		{2, 2, 2, 1},
		{0, 0, 4, 0},
		{3, 10, 1, 0},
	}
	for _, tt := range tests {
		if got := DemandIndex(tt.occ, tt.capacity, tt.n); got != tt.want {
			t.Errorf("DemandIndex(%d, %d, %d) = %d, want %d", tt.occ, tt.capacity, tt.n, got, tt.want)
		}
	}
}

func TestDemandIndexMonotone(t *testing.T) {
	for capacity := 1; capacity <= 25; capacity++ {
		prev := 0
		for occ := 0; occ <= capacity; occ++ {
			idx := DemandIndex(occ, capacity, 4)
			if idx < prev {
				t.Fatalf("capacity %d: index fell from %d to %d at occupancy %d", capacity, prev, idx, occ)
			}
			if idx < 0 || idx > 3 {
				t.Fatalf("capacity %d: index %d out of range", capacity, idx)
			}
			prev = idx
		}
	}
}

func TestMultiplier(t *testing.T) {
	table := []float64{0, 0.35, 0.65, 1}
	if got := Multiplier(table, 2); got != 0.65 {
		t.Errorf("Multiplier(2) = %v", got)
	}
	if got := Multiplier(table, 9); got != 1 {
		t.Errorf("Multiplier clamps high: %v", got)
	}
	if got := Multiplier(table, -1); got != 0 {
		t.Errorf("Multiplier clamps low: %v", got)
	}
	if got := Multiplier(nil, 0); got != 0 {
		t.Errorf("Multiplier(nil) = %v", got)
	}
}
