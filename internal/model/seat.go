package model

// Seat status values.  The only legal transitions are
// available -> held, held -> available and held -> sold.
const (
	SeatAvailable = "available"
	SeatHeld      = "held"
	SeatSold      = "sold"
)

// SeatRef addresses a seat within an event.
type SeatRef struct {
	SectionID  string `json:"section_id"`
	Row        string `json:"row"`
	SeatNumber string `json:"seat_number"`
}

// Seat is a materialized seat for one event.  Price and category are
// resolved from the plan when the seat is materialized and never change.
type Seat struct {
	ID            string  `json:"id"`                        // seats.id
	EventID       string  `json:"event_id"`                  // seats.event_id
	SectionID     string  `json:"section_id"`                // seats.section_id
	Row           string  `json:"row"`                       // seats.row_label
	SeatNumber    string  `json:"seat_number"`               // seats.seat_number
	PriceCents    int64   `json:"price_cents"`               // seats.price_cents
	Category      string  `json:"category,omitempty"`        // seats.category
	Status        string  `json:"status"`                    // seats.status
	HoldID        *string `json:"-"`                         // seats.hold_id (nullable)
	HoldExpiresAt *int64  `json:"hold_expires_at,omitempty"` // seats.hold_expires_at, unix ms (nullable)
}

// Ref returns the seat's coordinate.
func (s Seat) Ref() SeatRef {
	return SeatRef{SectionID: s.SectionID, Row: s.Row, SeatNumber: s.SeatNumber}
}

// SeatMap groups an event's seats for display.
type SeatMap struct {
	EventID       string           `json:"event_id"`
	Sections      []SeatMapSection `json:"sections"`
	MinPriceCents int64            `json:"min_price_cents"`
}

// SeatMapSection lists a section's rows in materialization order.
type SeatMapSection struct {
	SectionID string       `json:"section_id"`
	Rows      []SeatMapRow `json:"rows"`
}

// SeatMapRow lists the seats of one row.
type SeatMapRow struct {
	Row   string `json:"row"`
	Seats []Seat `json:"seats"`
}
