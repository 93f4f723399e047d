package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable category of a domain error.
type ErrorKind string

const (
	KindInvalidTransition          ErrorKind = "INVALID_TRANSITION"
	KindNoAvailableSlot            ErrorKind = "NO_AVAILABLE_SLOT"
	KindInsufficientRemovableSlots ErrorKind = "INSUFFICIENT_REMOVABLE_SLOTS"
	KindVehicleBusy                ErrorKind = "VEHICLE_BUSY"
	KindDuesOutstanding            ErrorKind = "DUES_OUTSTANDING"
	KindContended                  ErrorKind = "CONTENDED"
	KindNotFound                   ErrorKind = "NOT_FOUND"
	KindValidation                 ErrorKind = "VALIDATION"
	KindForbidden                  ErrorKind = "FORBIDDEN"
	KindInsufficientPayment        ErrorKind = "INSUFFICIENT_PAYMENT"
)

// Error carries a kind and a human message. Two Errors match under errors.Is
// when their kinds are equal, so the sentinels below match any instance.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition, Message: "transition not allowed from the current booking state"}
	ErrNoAvailableSlot     = &Error{Kind: KindNoAvailableSlot, Message: "no slot of the requested class is available"}
	ErrVehicleBusy         = &Error{Kind: KindVehicleBusy, Message: "vehicle already has an active booking"}
	ErrDuesOutstanding     = &Error{Kind: KindDuesOutstanding, Message: "outstanding dues must be cleared before booking"}
	ErrContended           = &Error{Kind: KindContended, Message: "resource is busy, please retry"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "record not found"}
	ErrValidation          = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "operation not permitted"}
	ErrInsufficientPayment = &Error{Kind: KindInsufficientPayment, Message: "payment does not cover the pending amount"}
)

func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewForbiddenError(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func InvalidTransition(from, to BookingStatus) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("cannot move booking from %s to %s", from, to)}
}

func DuesOutstanding(amount float64) error {
	return &Error{Kind: KindDuesOutstanding, Message: fmt.Sprintf("outstanding dues of %.2f must be cleared before booking", amount)}
}

// InsufficientRemovableSlotsError is returned by a shrinking resize that
// cannot find enough free slots.
type InsufficientRemovableSlotsError struct {
	Requested int
	Removable int
}

func (e *InsufficientRemovableSlotsError) Error() string {
	return fmt.Sprintf("cannot remove %d slots: only %d are available or in maintenance", e.Requested, e.Removable)
}

func (e *InsufficientRemovableSlotsError) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == KindInsufficientRemovableSlots
	}
	_, ok := target.(*InsufficientRemovableSlotsError)
	return ok
}

var ErrInsufficientRemovableSlots = &Error{Kind: KindInsufficientRemovableSlots, Message: "not enough removable slots"}

// KindOf extracts the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var ir *InsufficientRemovableSlotsError
	if errors.As(err, &ir) {
		return KindInsufficientRemovableSlots
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the human message of a domain error.
func MessageOf(err error) string {
	var ir *InsufficientRemovableSlotsError
	if errors.As(err, &ir) {
		return ir.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
