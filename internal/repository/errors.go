// Package repository holds the SQL access layer.  Every repo is a thin
// struct over *sql.DB whose methods also accept a DBTX so that the same
// statement can run inside a caller's transaction.  Not-found and
// conflict conditions surface as the sentinel errors below so higher
// layers can branch with errors.Is.
package repository

import "errors"

// ErrConflict is returned when a write cannot be applied because the row
// is no longer in the state the caller expected.
var ErrConflict = errors.New("conflict")

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrPlanNotFound   = errors.New("seating plan not found")
	ErrEntryNotFound  = errors.New("waiting list entry not found")
	ErrHoldNotFound   = errors.New("seat hold not found")
	ErrTicketNotFound = errors.New("ticket not found")
)
