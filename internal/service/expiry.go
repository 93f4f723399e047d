package service

import (
	"context"
	"log"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

// ExpiryScheduler is the periodic reaper. It cancels reservations whose
// grace period ran out and flags sessions that exceeded the maximum length.
// It shares the booking state machine with request handlers, so its writes
// lose to any user transition that happened after it selected a booking.
type ExpiryScheduler struct {
	bookings repository.BookingRepository
	machine  *BookingService
	interval time.Duration
	policy   Policy
	now      Clock
}

type TickReport struct {
	Expired int
	Flagged int
	Failed  int
}

func NewExpiryScheduler(bookings repository.BookingRepository, machine *BookingService, interval time.Duration, policy Policy, now Clock) *ExpiryScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if now == nil {
		now = SystemClock
	}
	return &ExpiryScheduler{bookings: bookings, machine: machine, interval: interval, policy: policy, now: now}
}

// Run ticks until ctx is cancelled.
func (s *ExpiryScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("ExpiryScheduler: running every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("ExpiryScheduler: context cancelled, stopping.")
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			report := s.Tick(tickCtx)
			cancel()
			if report.Expired > 0 || report.Flagged > 0 || report.Failed > 0 {
				log.Printf("ExpiryScheduler: expired %d, flagged %d, failed %d", report.Expired, report.Flagged, report.Failed)
			}
		}
	}
}

// Tick processes one batch. Each booking is handled on its own; a failure is
// logged and counted and the batch carries on.
func (s *ExpiryScheduler) Tick(ctx context.Context) TickReport {
	var report TickReport
	now := s.now()

	expired, err := s.bookings.FindExpiredReservations(ctx, now)
	if err != nil {
		log.Printf("ExpiryScheduler.Tick: selecting expired reservations: %v", err)
		report.Failed++
	}
	for _, b := range expired {
		if _, err := s.machine.ExpireNoShow(ctx, b); err != nil {
			log.Printf("ExpiryScheduler.Tick: booking %d not expired: %v", b.ID, err)
			report.Failed++
			continue
		}
		report.Expired++
	}

	if s.policy.MaxSessionLength <= 0 {
		return report
	}
	long, err := s.bookings.FindSessionsStartedBefore(ctx, now.Add(-s.policy.MaxSessionLength))
	if err != nil {
		log.Printf("ExpiryScheduler.Tick: selecting long sessions: %v", err)
		report.Failed++
		return report
	}
	for _, b := range long {
		if b.FlaggedForReview {
			continue
		}
		if _, err := s.machine.FlagForReview(ctx, b); err != nil {
			log.Printf("ExpiryScheduler.Tick: booking %d not flagged: %v", b.ID, err)
			report.Failed++
			continue
		}
		report.Flagged++
	}
	return report
}
