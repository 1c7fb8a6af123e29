package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionPriceForRowOverride(t *testing.T) {
	s := Section{
		ID:         "orch",
		Rows:       []string{"A", "B"},
		SeatLabels: []string{"1", "2", "3"},
		PriceCents: 5000,
		Category:   CategoryStandard,
		RowPricing: []RowOverride{{Row: "A", PriceCents: 9000, Category: CategoryVIP}, {Row: "B", PriceCents: 6000}},
	}

	price, cat := s.PriceFor("A")
	assert.Equal(t, int64(9000), price)
	assert.Equal(t, CategoryVIP, cat)

	price, cat = s.PriceFor("B")
	assert.Equal(t, int64(6000), price)
	assert.Equal(t, CategoryStandard, cat, "override without category keeps the section category")

	price, _ = s.PriceFor("Z")
	assert.Equal(t, int64(5000), price)
	assert.Equal(t, 6, s.Capacity())
}

func TestPlanCapacity(t *testing.T) {
	p := SeatingPlan{Sections: []Section{
		{Rows: []string{"A"}, SeatLabels: []string{"1", "2"}},
		{Rows: []string{"A", "B", "C"}, SeatLabels: []string{"1"}},
	}}
	assert.Equal(t, 5, p.Capacity())
	assert.Equal(t, 0, SeatingPlan{}.Capacity())
}

func TestEventSeated(t *testing.T) {
	empty := ""
	plan := "plan-1"
	assert.False(t, Event{}.Seated())
	assert.False(t, Event{SeatingPlanID: &empty}.Seated())
	assert.True(t, Event{SeatingPlanID: &plan}.Seated())
}
