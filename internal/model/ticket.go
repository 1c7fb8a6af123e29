package model

import "time"

// Ticket status values.  Tickets are created valid; valid may move to
// used, refunded or cancelled and used may move to refunded.  Nothing
// returns to valid.
const (
	TicketValid     = "valid"
	TicketUsed      = "used"
	TicketRefunded  = "refunded"
	TicketCancelled = "cancelled"
)

// Ticket is an issued right of entry.  SeatID and Seat are set only for
// seated purchases; WaitingListID only for flat purchases.
type Ticket struct {
	ID                string     `json:"id"`                           // tickets.id
	EventID           string     `json:"event_id"`                     // tickets.event_id
	UserID            string     `json:"user_id"`                      // tickets.user_id
	Status            string     `json:"status"`                       // tickets.status
	AmountCents       int64      `json:"amount_cents"`                 // tickets.amount_cents
	ExternalReference string     `json:"external_reference,omitempty"` // tickets.external_reference
	WaitingListID     *string    `json:"waiting_list_id,omitempty"`    // tickets.waiting_list_id (nullable)
	HoldID            *string    `json:"hold_id,omitempty"`            // tickets.hold_id (nullable)
	SeatID            *string    `json:"seat_id,omitempty"`            // tickets.seat_id (nullable)
	Seat              *SeatRef   `json:"seat,omitempty"`               // tickets.section_id/row_label/seat_number
	PurchasedAt       time.Time  `json:"purchased_at"`                 // tickets.purchased_at
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`         // tickets.updated_at (nullable)
}

// PaymentFact is what the payment collaborator reports after capture.
type PaymentFact struct {
	AmountCents       int64  `json:"amount_cents"`
	ExternalReference string `json:"external_reference"`
}

// SalesSummary aggregates an event's ledger for the organizer.
type SalesSummary struct {
	EventID       string `json:"event_id"`
	Sold          int    `json:"sold"`
	Refunded      int    `json:"refunded"`
	Cancelled     int    `json:"cancelled"`
	RevenueCents  int64  `json:"revenue_cents"`
	TotalCapacity int    `json:"total_capacity"`
}
