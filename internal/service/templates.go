package service

import (
	"sort"
	"strconv"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// Plan template names accepted by Catalog.CreatePlanFromTemplate.
const (
	TemplateTheater    = "theater"
	TemplateArena      = "arena"
	TemplateConference = "conference"
	TemplateStadium    = "stadium"
	TemplateCabaret    = "cabaret"
)

var planTemplates = map[string][]model.Section{
	TemplateTheater: {
		{ID: "orchestra", Name: "Orchestra", Rows: rowRange('A', 'F'), SeatLabels: seatLabels(20), PriceCents: 2500, Category: model.CategoryPremium},
		{ID: "mezzanine", Name: "Mezzanine", Rows: rowRange('G', 'J'), SeatLabels: seatLabels(20), PriceCents: 1800, Category: model.CategoryStandard},
		{ID: "balcony", Name: "Balcony", Rows: rowRange('K', 'M'), SeatLabels: seatLabels(20), PriceCents: 1200, Category: model.CategoryEconomy},
	},
	TemplateArena: {
		{ID: "vip", Name: "VIP Floor", Rows: rowRange('A', 'B'), SeatLabels: seatLabels(30), PriceCents: 5000, Category: model.CategoryVIP},
		{ID: "floor", Name: "Floor Standing", Rows: rowRange('C', 'F'), SeatLabels: seatLabels(30), PriceCents: 3000, Category: model.CategoryPremium},
		{ID: "tier1", Name: "Tier 1", Rows: rowRange('G', 'J'), SeatLabels: seatLabels(30), PriceCents: 2000, Category: model.CategoryStandard},
		{ID: "tier2", Name: "Tier 2", Rows: rowRange('K', 'N'), SeatLabels: seatLabels(30), PriceCents: 1500, Category: model.CategoryEconomy},
	},
	TemplateConference: {
		{ID: "front", Name: "Front Section", Rows: rowRange('A', 'C'), SeatLabels: seatLabels(40), PriceCents: 1500, Category: model.CategoryPremium},
		{ID: "middle", Name: "Middle Section", Rows: rowRange('D', 'G'), SeatLabels: seatLabels(40), PriceCents: 1200, Category: model.CategoryStandard},
		{ID: "back", Name: "Back Section", Rows: rowRange('H', 'K'), SeatLabels: seatLabels(40), PriceCents: 800, Category: model.CategoryEconomy},
	},
	TemplateStadium: {
		{ID: "premium", Name: "Premium Box", Rows: rowRange('A', 'B'), SeatLabels: seatLabels(20), PriceCents: 8000, Category: model.CategoryVIP},
		{ID: "vip", Name: "VIP Stands", Rows: rowRange('C', 'E'), SeatLabels: seatLabels(30), PriceCents: 5000, Category: model.CategoryPremium},
		{ID: "general", Name: "General Stands", Rows: rowRange('F', 'O'), SeatLabels: seatLabels(30), PriceCents: 2000, Category: model.CategoryStandard},
	},
	TemplateCabaret: {
		{ID: "stage", Name: "Stage Tables", Rows: rowRange('A', 'B'), SeatLabels: seatLabels(8), PriceCents: 4000, Category: model.CategoryVIP},
		{ID: "front", Name: "Front Tables", Rows: rowRange('C', 'E'), SeatLabels: seatLabels(10), PriceCents: 3000, Category: model.CategoryPremium},
		{ID: "back", Name: "Back Tables", Rows: rowRange('F', 'H'), SeatLabels: seatLabels(10), PriceCents: 2000, Category: model.CategoryStandard},
	},
}

// TemplateNames lists the known plan templates in alphabetical order.
func TemplateNames() []string {
	names := make([]string, 0, len(planTemplates))
	for n := range planTemplates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// templateSections returns a deep copy of a template's sections.
func templateSections(name string) ([]model.Section, bool) {
	src, ok := planTemplates[name]
	if !ok {
		return nil, false
	}
	out := make([]model.Section, len(src))
	for i, s := range src {
		s.Rows = append([]string(nil), s.Rows...)
		s.SeatLabels = append([]string(nil), s.SeatLabels...)
		s.RowPricing = append([]model.RowOverride(nil), s.RowPricing...)
		out[i] = s
	}
	return out, true
}

func rowRange(from, to byte) []string {
	var rows []string
	for c := from; c <= to; c++ {
		rows = append(rows, string(rune(c)))
	}
	return rows
}

func seatLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}
