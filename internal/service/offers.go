package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// OfferManager turns waiting entries into time-boxed purchase offers and
// returns lapsed offers to the pool.
type OfferManager struct {
	c     *core
	avail *AvailabilityCalculator
}

// Promote offers free capacity to the oldest waiting entries of the event.
// It is a no-op when nothing is free.
func (m *OfferManager) Promote(ctx context.Context, eventID string) error {
	var granted []model.WaitingListEntry
	err := repository.WithTx(ctx, m.c.db(), func(tx *sql.Tx) error {
		if err := m.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		granted, err = m.promoteTx(ctx, tx, eventID, m.c.now())
		return err
	})
	if err != nil {
		return err
	}
	m.c.announceOffers(ctx, granted)
	return nil
}

// promoteTx must run with the event lock held.  Each granted offer gets
// its expiry scheduled before the transaction commits; if scheduling
// fails the whole promotion rolls back.  A timer left behind by a failed
// commit either finds the entry still waiting, or finds it offered again
// with a later deadline; Expire ignores it in both cases.
func (m *OfferManager) promoteTx(ctx context.Context, tx *sql.Tx, eventID string, now time.Time) ([]model.WaitingListEntry, error) {
	e, err := m.c.event(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if e.IsCancelled || e.Seated() {
		return nil, nil
	}
	av, err := m.avail.compute(ctx, tx, e, now)
	if err != nil {
		return nil, err
	}
	if av.Remaining <= 0 {
		return nil, nil
	}
	candidates, err := m.c.store.Entries.OldestWaiting(ctx, tx, eventID, av.Remaining)
	if err != nil {
		return nil, err
	}
	deadline := now.Add(m.c.offerWindow)
	granted := make([]model.WaitingListEntry, 0, len(candidates))
	for _, cand := range candidates {
		ok, err := m.c.store.Entries.OfferTx(ctx, tx, cand.ID, deadline, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := m.c.scheduler.ScheduleOfferExpiry(ctx, cand.ID, eventID, deadline); err != nil {
			return nil, fmt.Errorf("schedule offer expiry for %s: %w", cand.ID, err)
		}
		cand.Status = model.EntryOffered
		cand.OfferExpiresAt = &deadline
		granted = append(granted, cand)
	}
	return granted, nil
}

// Expire is the offer timer callback.  An entry that is no longer offered
// (purchased, released, already expired, or deleted with its event) is
// left alone and nil is returned, as is an offer whose deadline is still
// ahead.  Otherwise the entry expires and the freed slot is promoted to
// the next waiting entrant.
func (m *OfferManager) Expire(ctx context.Context, entryID, eventID string) error {
	var granted []model.WaitingListEntry
	err := repository.WithTx(ctx, m.c.db(), func(tx *sql.Tx) error {
		if err := m.c.lock(ctx, tx, eventID); err != nil {
			if errors.Is(err, ErrEventNotFound) {
				return nil
			}
			return err
		}
		entry, err := m.c.store.Entries.Get(ctx, tx, entryID)
		if errors.Is(err, repository.ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if entry.EventID != eventID {
			return nil
		}
		now := m.c.now()
		if entry.OfferExpiresAt != nil && now.Before(*entry.OfferExpiresAt) {
			return nil
		}
		granted, err = m.closeOfferTx(ctx, tx, entry, now)
		return err
	})
	if err != nil {
		return err
	}
	m.c.log.Debug("offer expiry handled", "entry_id", entryID, "event_id", eventID, "promoted", len(granted))
	m.c.announceOffers(ctx, granted)
	return nil
}

// Release gives up the user's open offer.  The end state is the same as
// a timeout.  Releasing an entry that is not currently offered is a
// no-op; the entry is returned in whatever state it is in.
func (m *OfferManager) Release(ctx context.Context, entryID, eventID, userID string) (*model.WaitingListEntry, error) {
	var (
		granted []model.WaitingListEntry
		out     *model.WaitingListEntry
	)
	err := repository.WithTx(ctx, m.c.db(), func(tx *sql.Tx) error {
		if err := m.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		entry, err := m.entry(ctx, tx, entryID, eventID)
		if err != nil {
			return err
		}
		if entry.UserID != userID {
			return ErrInvalidOfferState
		}
		now := m.c.now()
		granted, err = m.closeOfferTx(ctx, tx, entry, now)
		if err != nil {
			return err
		}
		if entry.Status == model.EntryOffered {
			entry.Status = model.EntryExpired
			entry.OfferExpiresAt = nil
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.c.announceOffers(ctx, granted)
	return out, nil
}

// closeOfferTx expires an offered entry and cascades the slot.  Entries
// in any other state are untouched.
func (m *OfferManager) closeOfferTx(ctx context.Context, tx *sql.Tx, entry *model.WaitingListEntry, now time.Time) ([]model.WaitingListEntry, error) {
	if entry.Status != model.EntryOffered {
		return nil, nil
	}
	ok, err := m.c.store.Entries.TransitionTx(ctx, tx, entry.ID, model.EntryOffered, model.EntryExpired, now)
	if err != nil || !ok {
		return nil, err
	}
	return m.promoteTx(ctx, tx, entry.EventID, now)
}

// Purchase converts the user's open offer into a valid ticket for the
// amount reported by payment.  It never promotes: the capacity was
// already reserved by the offer.
func (m *OfferManager) Purchase(ctx context.Context, entryID, eventID, userID string, payment model.PaymentFact) (*model.Ticket, error) {
	if payment.AmountCents < 0 {
		return nil, ErrInvalidInput
	}
	var ticket *model.Ticket
	err := repository.WithTx(ctx, m.c.db(), func(tx *sql.Tx) error {
		if err := m.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		entry, err := m.entry(ctx, tx, entryID, eventID)
		if err != nil {
			return err
		}
		if entry.Status != model.EntryOffered || entry.UserID != userID {
			return ErrInvalidOfferState
		}
		e, err := m.c.event(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.IsCancelled {
			return ErrEventCancelled
		}
		if e.Seated() {
			return ErrSeated
		}
		now := m.c.now()
		if entry.OfferExpiresAt == nil || !now.Before(*entry.OfferExpiresAt) {
			return ErrOfferExpired
		}
		committed, err := m.c.store.Tickets.CountCommitted(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if committed >= e.TotalTickets {
			return ErrOversell
		}

		t := &model.Ticket{
			ID:                newID(),
			EventID:           eventID,
			UserID:            userID,
			Status:            model.TicketValid,
			AmountCents:       payment.AmountCents,
			ExternalReference: payment.ExternalReference,
			WaitingListID:     &entry.ID,
			PurchasedAt:       now,
		}
		if err := m.c.store.Tickets.InsertTx(ctx, tx, t); err != nil {
			return err
		}
		ok, err := m.c.store.Entries.TransitionTx(ctx, tx, entry.ID, model.EntryOffered, model.EntryPurchased, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidOfferState
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.c.announceTickets(ctx, []model.Ticket{*ticket})
	return ticket, nil
}

// SweepExpired runs Expire for offers whose window closed at least grace
// ago.  It recovers offers whose timer was lost and returns how many
// entries it visited.
func (m *OfferManager) SweepExpired(ctx context.Context, grace time.Duration, limit int) (int, error) {
	cutoff := m.c.now().Add(-grace)
	overdue, err := m.c.store.Entries.ListOverdueOffers(ctx, m.c.db(), repository.Millis(cutoff), limit)
	if err != nil {
		return 0, err
	}
	for _, e := range overdue {
		if err := m.Expire(ctx, e.ID, e.EventID); err != nil {
			return 0, fmt.Errorf("expire offer %s: %w", e.ID, err)
		}
	}
	return len(overdue), nil
}

func (m *OfferManager) entry(ctx context.Context, q repository.DBTX, entryID, eventID string) (*model.WaitingListEntry, error) {
	entry, err := m.c.store.Entries.Get(ctx, q, entryID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	if entry.EventID != eventID {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}
