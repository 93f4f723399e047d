package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/config"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

// Clock returns the current time. Services take one so tests can pin time.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

// Notifier is the fire-and-forget publish(topic, payload) collaborator.
// Implementations must not block the caller for long and never fail it.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, any) {}

// Policy carries the tunable business rules of the booking core.
type Policy struct {
	MaxRetries         int
	ChargeNoShow       bool
	DuesThreshold      float64
	BlockOnVehicleDues bool
	MaxSessionLength   time.Duration
	GuardMultiArea     bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:         8,
		ChargeNoShow:       true,
		DuesThreshold:      0,
		BlockOnVehicleDues: true,
		MaxSessionLength:   24 * time.Hour,
		GuardMultiArea:     false,
	}
}

func PolicyFromConfig(cfg *config.Config) Policy {
	p := DefaultPolicy()
	if cfg.MaxCASRetries > 0 {
		p.MaxRetries = cfg.MaxCASRetries
	}
	p.ChargeNoShow = cfg.NoShowCharge
	p.DuesThreshold = cfg.DuesThreshold
	p.BlockOnVehicleDues = cfg.BlockOnVehicleDues
	if cfg.MaxSessionLength > 0 {
		p.MaxSessionLength = cfg.MaxSessionLength
	}
	p.GuardMultiArea = cfg.GuardMultiArea
	return p
}

// retryOnConflict runs fn until it returns anything other than a revision
// conflict, at most attempts times, then gives up with ErrContended.
func retryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if !errors.Is(err, repository.ErrRevisionConflict) {
			return err
		}
	}
	return domain.ErrContended
}

// detached is used for compensating writes, which must run even when the
// caller's context is already cancelled.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func notFound(what string) error {
	return &domain.Error{Kind: domain.KindNotFound, Message: what + " not found"}
}

// lookupErr turns repository.ErrNotFound into a typed not-found error and
// wraps anything else with the calling operation.
func lookupErr(op, what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(what)
	}
	return wrapErr(op, err)
}

// wrapErr leaves domain errors untouched so their message stays user-facing.
func wrapErr(op string, err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func logCompensation(op string, err error) {
	if err != nil {
		log.Printf("%s: compensation failed: %v", op, err)
	}
}
