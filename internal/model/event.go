package model

import "time"

// Event is a sellable occurrence with a fixed capacity descriptor.  An
// event is either flat (TotalTickets counts undifferentiated tickets) or
// seated (SeatingPlanID references the plan its seats were materialized
// from).  For seated events TotalTickets mirrors the plan capacity and is
// informational only; availability is always derived from seat rows.
//
// Fields:
//  ID            – primary key identifier (UUID).
//  Name          – display name.
//  TotalTickets  – capacity of a flat event.
//  PriceCents    – flat price; fallback minimum price for seated events.
//  SeatingPlanID – plan reference, nil for flat events.
//  IsCancelled   – set by the organizer; blocks purchases and holds.
//  CreatedAt     – creation timestamp.
type Event struct {
	ID            string    `json:"id"`                        // events.id
	Name          string    `json:"name"`                      // events.name
	TotalTickets  int       `json:"total_tickets"`             // events.total_tickets
	PriceCents    int64     `json:"price_cents"`               // events.price_cents
	SeatingPlanID *string   `json:"seating_plan_id,omitempty"` // events.seating_plan_id (nullable)
	IsCancelled   bool      `json:"is_cancelled"`              // events.is_cancelled
	CreatedAt     time.Time `json:"created_at"`                // events.created_at
}

// Seated reports whether the event sells individually addressable seats.
func (e Event) Seated() bool { return e.SeatingPlanID != nil && *e.SeatingPlanID != "" }

// Availability is the projection computed from the ticket ledger, the
// waiting list and the seat rows.  It is never stored.
type Availability struct {
	EventID        string `json:"event_id"`
	IsSoldOut      bool   `json:"is_sold_out"`
	TotalCapacity  int    `json:"total_capacity"`
	CommittedCount int    `json:"committed_count"`
	PendingCount   int    `json:"pending_count"`
	Remaining      int    `json:"remaining"`
	MinPriceCents  int64  `json:"min_price_cents"`
}
