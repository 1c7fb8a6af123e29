package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// Catalog is the organizer-facing surface: seating plans, events, seat
// materialization, capacity changes and cancellation.
type Catalog struct {
	c      *core
	offers *OfferManager
	holds  *HoldManager
}

// CreatePlan validates and stores a seating plan.
func (cat *Catalog) CreatePlan(ctx context.Context, name string, sections []model.Section) (*model.SeatingPlan, error) {
	if err := validatePlan(name, sections); err != nil {
		return nil, err
	}
	p := &model.SeatingPlan{ID: newID(), Name: name, Sections: sections, CreatedAt: cat.c.now()}
	if err := cat.c.store.Plans.Create(ctx, cat.c.db(), p); err != nil {
		return nil, err
	}
	cat.c.log.Info("seating plan created", "plan_id", p.ID, "sections", len(sections), "capacity", p.Capacity())
	return p, nil
}

// CreatePlanFromTemplate stores a copy of a named template.
func (cat *Catalog) CreatePlanFromTemplate(ctx context.Context, name, template string) (*model.SeatingPlan, error) {
	sections, ok := templateSections(template)
	if !ok {
		return nil, fmt.Errorf("%w: unknown template %q (want one of %s)", ErrInvalidInput, template, strings.Join(TemplateNames(), ", "))
	}
	return cat.CreatePlan(ctx, name, sections)
}

// GetPlan returns a stored plan.
func (cat *Catalog) GetPlan(ctx context.Context, id string) (*model.SeatingPlan, error) {
	p, err := cat.c.store.Plans.Get(ctx, cat.c.db(), id)
	if errors.Is(err, repository.ErrPlanNotFound) {
		return nil, ErrPlanNotFound
	}
	return p, err
}

// CreateEventInput describes a new event.  With SeatingPlanID set the
// event is seated: its seats are materialized immediately and its
// capacity is the plan's.
type CreateEventInput struct {
	Name          string `json:"name"`
	TotalTickets  int    `json:"total_tickets"`
	PriceCents    int64  `json:"price_cents"`
	SeatingPlanID string `json:"seating_plan_id"`
}

// CreateEvent stores an event, materializing its seats when it is seated.
func (cat *Catalog) CreateEvent(ctx context.Context, in CreateEventInput) (*model.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.PriceCents < 0 {
		return nil, ErrInvalidInput
	}
	e := &model.Event{ID: newID(), Name: in.Name, TotalTickets: in.TotalTickets, PriceCents: in.PriceCents, CreatedAt: cat.c.now()}
	err := repository.WithTx(ctx, cat.c.db(), func(tx *sql.Tx) error {
		if in.SeatingPlanID == "" {
			if in.TotalTickets <= 0 {
				return ErrInvalidInput
			}
			return cat.c.store.Events.CreateTx(ctx, tx, e)
		}
		plan, err := cat.c.store.Plans.Get(ctx, tx, in.SeatingPlanID)
		if errors.Is(err, repository.ErrPlanNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return err
		}
		e.SeatingPlanID = &plan.ID
		e.TotalTickets = plan.Capacity()
		if err := cat.c.store.Events.CreateTx(ctx, tx, e); err != nil {
			return err
		}
		_, err = cat.materializeTx(ctx, tx, e.ID, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	cat.c.log.Info("event created", "event_id", e.ID, "seated", e.Seated(), "capacity", e.TotalTickets)
	return e, nil
}

// GetEvent returns one event.
func (cat *Catalog) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return cat.c.event(ctx, cat.c.db(), id)
}

// ListEvents returns every event, newest first.
func (cat *Catalog) ListEvents(ctx context.Context) ([]model.Event, error) {
	return cat.c.store.Events.List(ctx, cat.c.db())
}

// MaterializeSeats snapshots plan into seat rows for the event, replacing
// any seats it already has and making the event seated.  It is rejected
// once any seat has been held or sold, any ticket issued, or anyone is
// still waiting or holding an offer, so it can only ever replace
// untouched inventory.  It returns the number of seats
// created.
func (cat *Catalog) MaterializeSeats(ctx context.Context, eventID, planID string) (int, error) {
	var n int
	err := repository.WithTx(ctx, cat.c.db(), func(tx *sql.Tx) error {
		if err := cat.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		e, err := cat.c.event(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.IsCancelled {
			return ErrEventCancelled
		}
		touched, err := cat.c.store.Seats.CountNotAvailable(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if touched > 0 {
			return ErrSeatsCommitted
		}
		if !e.Seated() {
			issued, err := cat.c.store.Tickets.CountCommitted(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if issued > 0 {
				return ErrTicketsIssued
			}
			queued, err := cat.c.store.Entries.CountActive(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if queued > 0 {
				return ErrQueueActive
			}
		}
		plan, err := cat.c.store.Plans.Get(ctx, tx, planID)
		if errors.Is(err, repository.ErrPlanNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return err
		}
		if err := cat.c.store.Seats.DeleteByEventTx(ctx, tx, eventID); err != nil {
			return err
		}
		if err := cat.c.store.Events.SetSeatingPlanTx(ctx, tx, eventID, plan.ID, plan.Capacity()); err != nil {
			return err
		}
		n, err = cat.materializeTx(ctx, tx, eventID, plan)
		return err
	})
	if err != nil {
		return 0, err
	}
	cat.c.log.Info("seats materialized", "event_id", eventID, "plan_id", planID, "seats", n)
	return n, nil
}

// materializeTx inserts one available seat per (section, row, label) in
// plan order, priced by row override or section price.
func (cat *Catalog) materializeTx(ctx context.Context, tx *sql.Tx, eventID string, plan *model.SeatingPlan) (int, error) {
	seats := make([]model.Seat, 0, plan.Capacity())
	for _, sec := range plan.Sections {
		for _, row := range sec.Rows {
			price, category := sec.PriceFor(row)
			for _, label := range sec.SeatLabels {
				seats = append(seats, model.Seat{
					ID:         newID(),
					EventID:    eventID,
					SectionID:  sec.ID,
					Row:        row,
					SeatNumber: label,
					PriceCents: price,
					Category:   category,
					Status:     model.SeatAvailable,
				})
			}
		}
	}
	if err := cat.c.store.Seats.InsertManyTx(ctx, tx, seats); err != nil {
		return 0, err
	}
	return len(seats), nil
}

// UpdateCapacity changes a flat event's ticket count.  It cannot drop
// below the valid and used tickets already issued; growing it offers the
// new slots to the queue.
func (cat *Catalog) UpdateCapacity(ctx context.Context, eventID string, total int) (*model.Event, error) {
	if total < 0 {
		return nil, ErrInvalidInput
	}
	var (
		e       *model.Event
		granted []model.WaitingListEntry
	)
	err := repository.WithTx(ctx, cat.c.db(), func(tx *sql.Tx) error {
		if err := cat.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		e, err = cat.c.event(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.Seated() {
			return ErrSeated
		}
		committed, err := cat.c.store.Tickets.CountCommitted(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if total < committed {
			return fmt.Errorf("%w: %d tickets issued", ErrCapacityBelowSold, committed)
		}
		if err := cat.c.store.Events.UpdateTotalTicketsTx(ctx, tx, eventID, total); err != nil {
			return err
		}
		grew := total > e.TotalTickets
		e.TotalTickets = total
		if grew {
			granted, err = cat.offers.promoteTx(ctx, tx, eventID, cat.c.now())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	cat.c.announceOffers(ctx, granted)
	return e, nil
}

// CancelEvent marks the event cancelled, deletes its waiting list and
// releases every unconfirmed hold.  Events with valid or used tickets
// cannot be cancelled; they must be refunded first.
func (cat *Catalog) CancelEvent(ctx context.Context, eventID string) error {
	var removed int64
	err := repository.WithTx(ctx, cat.c.db(), func(tx *sql.Tx) error {
		if err := cat.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		committed, err := cat.c.store.Tickets.CountCommitted(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if committed > 0 {
			return ErrTicketsIssued
		}
		if err := cat.c.store.Events.MarkCancelledTx(ctx, tx, eventID); err != nil {
			return err
		}
		removed, err = cat.c.store.Entries.DeleteByEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		holds, err := cat.c.store.Holds.UnconfirmedIDs(ctx, tx, eventID)
		if err != nil {
			return err
		}
		for _, id := range holds {
			if err := cat.holds.releaseTx(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	cat.c.log.Info("event cancelled", "event_id", eventID, "waiting_list_removed", removed)
	return nil
}

func validatePlan(name string, sections []model.Section) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: plan name is required", ErrInvalidInput)
	}
	if len(sections) == 0 {
		return fmt.Errorf("%w: plan has no sections", ErrInvalidInput)
	}
	ids := map[string]bool{}
	for _, s := range sections {
		if s.ID == "" || ids[s.ID] {
			return fmt.Errorf("%w: section ids must be unique and non-empty", ErrInvalidInput)
		}
		ids[s.ID] = true
		if len(s.Rows) == 0 || len(s.SeatLabels) == 0 {
			return fmt.Errorf("%w: section %s has no seats", ErrInvalidInput, s.ID)
		}
		if s.PriceCents < 0 {
			return fmt.Errorf("%w: section %s has a negative price", ErrInvalidInput, s.ID)
		}
		if hasDuplicate(s.Rows) || hasDuplicate(s.SeatLabels) {
			return fmt.Errorf("%w: section %s repeats a row or seat label", ErrInvalidInput, s.ID)
		}
		for _, o := range s.RowPricing {
			if o.PriceCents < 0 {
				return fmt.Errorf("%w: row %s of section %s has a negative price", ErrInvalidInput, o.Row, s.ID)
			}
		}
	}
	return nil
}

func hasDuplicate(xs []string) bool {
	seen := make(map[string]bool, len(xs))
	for _, x := range xs {
		if x == "" || seen[x] {
			return true
		}
		seen[x] = true
	}
	return false
}
