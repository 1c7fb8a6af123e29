package model

import "time"

// Seat categories used by plan templates and row overrides.
const (
	CategoryVIP      = "vip"
	CategoryPremium  = "premium"
	CategoryStandard = "standard"
	CategoryEconomy  = "economy"
)

// SeatingPlan is a reusable layout.  It is decoupled from any event until
// its sections are materialized into seat rows.
type SeatingPlan struct {
	ID        string    `json:"id"`         // seating_plans.id
	Name      string    `json:"name"`       // seating_plans.name
	Sections  []Section `json:"sections"`   // seating_plans.sections (JSON)
	CreatedAt time.Time `json:"created_at"` // seating_plans.created_at
}

// Section is a block of seats addressed by row identifier and seat label.
// Its capacity is len(Rows) * len(SeatLabels).
type Section struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Rows       []string      `json:"rows"`
	SeatLabels []string      `json:"seat_labels"`
	PriceCents int64         `json:"price_cents"`
	Category   string        `json:"category,omitempty"`
	RowPricing []RowOverride `json:"row_pricing,omitempty"`
}

// RowOverride replaces the section price and, when set, the category for a
// single row.
type RowOverride struct {
	Row        string `json:"row"`
	PriceCents int64  `json:"price_cents"`
	Category   string `json:"category,omitempty"`
}

// Capacity returns the number of seats the section yields.
func (s Section) Capacity() int { return len(s.Rows) * len(s.SeatLabels) }

// PriceFor resolves the price and category of a row, applying the first
// matching override.
func (s Section) PriceFor(row string) (int64, string) {
	for _, o := range s.RowPricing {
		if o.Row == row {
			cat := o.Category
			if cat == "" {
				cat = s.Category
			}
			return o.PriceCents, cat
		}
	}
	return s.PriceCents, s.Category
}

// Capacity returns the total seat count across sections.
func (p SeatingPlan) Capacity() int {
	n := 0
	for _, s := range p.Sections {
		n += s.Capacity()
	}
	return n
}
