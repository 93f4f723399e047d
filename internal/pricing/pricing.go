// Package pricing holds the pure billing arithmetic: the time-based fee and
// the utilization-to-demand-index step function.
package pricing

import (
	"math"
	"time"
)

// Fee returns (minutes/60)*hourlyRate rounded to cents. Non-positive
// durations and negative rates cost nothing.
func Fee(durationMinutes, hourlyRate float64) float64 {
	if durationMinutes <= 0 || hourlyRate <= 0 {
		return 0
	}
	return RoundCents(durationMinutes / 60.0 * hourlyRate)
}

// FeeBetween bills the interval from start to end.
func FeeBetween(start, end time.Time, hourlyRate float64) float64 {
	return Fee(end.Sub(start).Minutes(), hourlyRate)
}

func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// DemandIndex maps utilization onto a table of tableLen multipliers.
// The index is floor(occupancy*(tableLen-1)/capacity) computed in integers,
// so an empty area sits at 0 and a full area at the last position. It is a
// pure function of (occupancy, capacity), hence idempotent, and monotone in
// occupancy.
func DemandIndex(occupancy, capacity, tableLen int) int {
	if tableLen <= 1 || occupancy <= 0 {
		return 0
	}
	if capacity <= 0 || occupancy >= capacity {
		return tableLen - 1
	}
	return clamp(occupancy*(tableLen-1)/capacity, 0, tableLen-1)
}

// Multiplier returns table[index] with the index clamped into range.
func Multiplier(table []float64, index int) float64 {
	if len(table) == 0 {
		return 0
	}
	return table[clamp(index, 0, len(table)-1)]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
