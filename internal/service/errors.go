package service

import "errors"

// Error categories.  Handlers map these to HTTP statuses; every specific
// error below matches exactly one of them under errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// Error is a specific failure carrying its category.
type Error struct {
	msg  string
	kind error
}

func (e *Error) Error() string { return e.msg }

// Is lets errors.Is match both the specific error and its category.
func (e *Error) Is(target error) bool { return target == e.kind }

func newError(kind error, msg string) *Error { return &Error{msg: msg, kind: kind} }

var (
	ErrEventNotFound  = newError(ErrNotFound, "event not found")
	ErrPlanNotFound   = newError(ErrNotFound, "seating plan not found")
	ErrEntryNotFound  = newError(ErrNotFound, "waiting list entry not found")
	ErrHoldNotFound   = newError(ErrNotFound, "seat hold not found")
	ErrSeatNotFound   = newError(ErrNotFound, "seat not found")
	ErrTicketNotFound = newError(ErrNotFound, "ticket not found")

	ErrDuplicateEntry  = newError(ErrConflict, "user already has an active waiting list entry")
	ErrSeatUnavailable = newError(ErrConflict, "one or more seats are not available")
	ErrHoldNotOwned    = newError(ErrConflict, "seat hold belongs to another user")
	ErrHoldExpired     = newError(ErrConflict, "seat hold has expired")
	ErrOfferExpired    = newError(ErrConflict, "offer has expired")
	ErrSeatsCommitted  = newError(ErrConflict, "seats were already held or sold")
	ErrTicketsIssued   = newError(ErrConflict, "event has issued tickets")
	ErrQueueActive     = newError(ErrConflict, "event has waiting or offered entries")

	ErrInvalidOfferState       = newError(ErrInvalidState, "entry is not an open offer for this user")
	ErrEventCancelled          = newError(ErrInvalidState, "event is cancelled")
	ErrNotSeated               = newError(ErrInvalidState, "event has no seating plan")
	ErrSeated                  = newError(ErrInvalidState, "event sells seats, not flat tickets")
	ErrSeatNotHeld             = newError(ErrInvalidState, "seat is not held by this hold")
	ErrInvalidTicketTransition = newError(ErrInvalidState, "ticket status transition not allowed")
	ErrInvalidInput            = newError(ErrInvalidState, "invalid input")

	ErrCapacityBelowSold = newError(ErrCapacityExceeded, "capacity below issued tickets")
	ErrOversell          = newError(ErrCapacityExceeded, "no capacity left")
)
