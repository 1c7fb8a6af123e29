package model

import "time"

// SeatHold is a time-boxed provisional claim on a fixed set of seats.
// Holds are deleted when released or expired; a confirmed hold is kept
// so that a repeated confirm can answer idempotently.
//
// Fields:
//  ID        – primary key identifier (UUID).
//  EventID   – event whose seats are held.
//  UserID    – opaque identifier of the holder.
//  Seats     – seat coordinates fixed at creation.
//  ExpiresAt – deadline after which the hold may be expired.
//  Confirmed – true once the seats were sold to the holder.
//  CreatedAt – creation timestamp.
type SeatHold struct {
	ID        string    `json:"id"`         // seat_holds.id
	EventID   string    `json:"event_id"`   // seat_holds.event_id
	UserID    string    `json:"user_id"`    // seat_holds.user_id
	Seats     []SeatRef `json:"seats"`      // seat_hold_seats rows
	ExpiresAt time.Time `json:"expires_at"` // seat_holds.expires_at
	Confirmed bool      `json:"confirmed"`  // seat_holds.confirmed
	CreatedAt time.Time `json:"created_at"` // seat_holds.created_at
}
