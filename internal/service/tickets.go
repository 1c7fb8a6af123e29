package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// ticketTransitions lists the allowed forward moves of a ticket.
var ticketTransitions = map[string][]string{
	model.TicketValid: {model.TicketUsed, model.TicketRefunded, model.TicketCancelled},
	model.TicketUsed:  {model.TicketRefunded},
}

// CanTransition reports whether a ticket may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, s := range ticketTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Ledger reads the append-only ticket record and applies the few status
// changes tickets allow.
type Ledger struct {
	c      *core
	offers *OfferManager
	avail  *AvailabilityCalculator
}

// Get returns one ticket.
func (l *Ledger) Get(ctx context.Context, id string) (*model.Ticket, error) {
	t, err := l.c.store.Tickets.Get(ctx, l.c.db(), id)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// ListByUser returns the user's tickets, newest first.
func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]model.Ticket, error) {
	return l.c.store.Tickets.ListByUser(ctx, l.c.db(), userID)
}

// ListByEvent returns the event's tickets in purchase order.
func (l *Ledger) ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	return l.c.store.Tickets.ListByEvent(ctx, l.c.db(), eventID)
}

// ListByUserAndEvent returns the user's tickets for one event.
func (l *Ledger) ListByUserAndEvent(ctx context.Context, userID, eventID string) ([]model.Ticket, error) {
	return l.c.store.Tickets.ListByUserAndEvent(ctx, l.c.db(), userID, eventID)
}

// HasTicket reports whether the user holds a valid or used ticket for
// the event.
func (l *Ledger) HasTicket(ctx context.Context, userID, eventID string) (bool, error) {
	ts, err := l.ListByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		return false, err
	}
	for _, t := range ts {
		if t.Status == model.TicketValid || t.Status == model.TicketUsed {
			return true, nil
		}
	}
	return false, nil
}

// UpdateStatus moves a ticket forward.  Refunding or cancelling a ticket
// of a flat event frees its slot, which is offered to the queue in the
// same transaction.  Seats of a seated event stay sold.
func (l *Ledger) UpdateStatus(ctx context.Context, ticketID, to string) (*model.Ticket, error) {
	pre, err := l.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	var (
		out     *model.Ticket
		granted []model.WaitingListEntry
	)
	err = repository.WithTx(ctx, l.c.db(), func(tx *sql.Tx) error {
		if err := l.c.lock(ctx, tx, pre.EventID); err != nil {
			return err
		}
		t, err := l.c.store.Tickets.Get(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !CanTransition(t.Status, to) {
			return ErrInvalidTicketTransition
		}
		now := l.c.now()
		ok, err := l.c.store.Tickets.UpdateStatusTx(ctx, tx, ticketID, t.Status, to, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTicketTransition
		}
		freed := to == model.TicketRefunded || to == model.TicketCancelled
		if freed {
			granted, err = l.offers.promoteTx(ctx, tx, t.EventID, now)
			if err != nil {
				return err
			}
		}
		t.Status = to
		t.UpdatedAt = &now
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.c.log.Info("ticket status changed", "ticket_id", ticketID, "event_id", out.EventID, "status", to)
	l.c.announceOffers(ctx, granted)
	return out, nil
}

// SalesSummary aggregates the event's ledger for its organizer.
func (l *Ledger) SalesSummary(ctx context.Context, eventID string) (model.SalesSummary, error) {
	e, err := l.c.event(ctx, l.c.db(), eventID)
	if err != nil {
		return model.SalesSummary{}, err
	}
	s, err := l.c.store.Tickets.Summary(ctx, l.c.db(), eventID)
	if err != nil {
		return s, err
	}
	av, err := l.avail.compute(ctx, l.c.db(), e, l.c.now())
	if err != nil {
		return s, err
	}
	s.TotalCapacity = av.TotalCapacity
	return s, nil
}
