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

// HoldManager lets users claim specific seats of a seated event for a
// short window and converts confirmed holds into sold seats and tickets.
// It is independent of the waiting list.
type HoldManager struct {
	c     *core
	avail *AvailabilityCalculator
}

// Hold claims every requested seat for the user or none of them.  Holds
// of the event whose deadline already passed are released first, so
// their seats can be claimed again before their timers fire.
func (h *HoldManager) Hold(ctx context.Context, eventID, userID string, refs []model.SeatRef) (*model.SeatHold, error) {
	refs, err := dedupeRefs(refs)
	if err != nil {
		return nil, err
	}
	if userID == "" || len(refs) == 0 {
		return nil, ErrInvalidInput
	}
	var hold *model.SeatHold
	err = repository.WithTx(ctx, h.c.db(), func(tx *sql.Tx) error {
		if err := h.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		e, err := h.c.event(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.IsCancelled {
			return ErrEventCancelled
		}
		if !e.Seated() {
			return ErrNotSeated
		}
		now := h.c.now()
		if err := h.releaseExpiredTx(ctx, tx, eventID, now); err != nil {
			return err
		}

		found, err := h.c.store.Seats.FindByRefs(ctx, tx, eventID, refs)
		if err != nil {
			return err
		}
		byRef := make(map[model.SeatRef]model.Seat, len(found))
		for _, s := range found {
			byRef[s.Ref()] = s
		}
		seats := make([]model.Seat, 0, len(refs))
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			s, ok := byRef[ref]
			if !ok {
				return fmt.Errorf("%w: %s/%s/%s", ErrSeatNotFound, ref.SectionID, ref.Row, ref.SeatNumber)
			}
			if s.Status != model.SeatAvailable {
				return ErrSeatUnavailable
			}
			seats = append(seats, s)
			ids = append(ids, s.ID)
		}

		hold = &model.SeatHold{
			ID:        newID(),
			EventID:   eventID,
			UserID:    userID,
			Seats:     refs,
			ExpiresAt: now.Add(h.c.holdWindow).Truncate(time.Millisecond),
			CreatedAt: now,
		}
		n, err := h.c.store.Seats.ClaimTx(ctx, tx, ids, hold.ID, repository.Millis(hold.ExpiresAt))
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return ErrSeatUnavailable
		}
		if err := h.c.store.Holds.CreateTx(ctx, tx, hold, seats); err != nil {
			return err
		}
		if err := h.c.scheduler.ScheduleHoldExpiry(ctx, hold.ID, hold.ExpiresAt); err != nil {
			return fmt.Errorf("schedule hold expiry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.c.log.Info("seats held", "event_id", eventID, "user_id", userID, "hold_id", hold.ID, "seats", len(hold.Seats), "expires_at", hold.ExpiresAt)
	return hold, nil
}

// ReleaseHold returns the hold's seats to the pool and deletes it.  A
// confirmed hold is left untouched.
func (h *HoldManager) ReleaseHold(ctx context.Context, holdID string) error {
	return h.release(ctx, holdID, "", false)
}

// ReleaseOwnHold is ReleaseHold for a caller that must own the hold.
func (h *HoldManager) ReleaseOwnHold(ctx context.Context, holdID, userID string) error {
	return h.release(ctx, holdID, userID, false)
}

// ExpireHold is the hold timer callback.  A missing or confirmed hold, or
// one whose deadline has not been reached, is left alone and nil is
// returned; otherwise it behaves like ReleaseHold.
func (h *HoldManager) ExpireHold(ctx context.Context, holdID string) error {
	err := h.release(ctx, holdID, "", true)
	if errors.Is(err, ErrHoldNotFound) || errors.Is(err, ErrEventNotFound) {
		return nil
	}
	return err
}

func (h *HoldManager) release(ctx context.Context, holdID, userID string, onlyIfDue bool) error {
	// The hold is read once outside the transaction to learn its event,
	// then again under the event lock.
	pre, err := h.hold(ctx, h.c.db(), holdID)
	if err != nil {
		return err
	}
	released := false
	err = repository.WithTx(ctx, h.c.db(), func(tx *sql.Tx) error {
		if err := h.c.lock(ctx, tx, pre.EventID); err != nil {
			return err
		}
		cur, err := h.hold(ctx, tx, holdID)
		if err != nil {
			return err
		}
		if userID != "" && cur.UserID != userID {
			return ErrHoldNotOwned
		}
		if cur.Confirmed {
			return nil
		}
		if onlyIfDue && h.c.now().Before(cur.ExpiresAt) {
			return nil
		}
		released = true
		return h.releaseTx(ctx, tx, cur.ID)
	})
	if err != nil {
		return err
	}
	if released {
		h.c.log.Info("seat hold released", "hold_id", holdID, "event_id", pre.EventID, "expired", onlyIfDue)
	}
	return nil
}

func (h *HoldManager) releaseTx(ctx context.Context, tx *sql.Tx, holdID string) error {
	if _, err := h.c.store.Seats.ReleaseByHoldTx(ctx, tx, holdID); err != nil {
		return err
	}
	return h.c.store.Holds.DeleteTx(ctx, tx, holdID)
}

// releaseExpiredTx releases every unconfirmed hold of the event whose
// deadline is at or before now.
func (h *HoldManager) releaseExpiredTx(ctx context.Context, tx *sql.Tx, eventID string, now time.Time) error {
	ids, err := h.c.store.Holds.ExpiredIDs(ctx, tx, eventID, repository.Millis(now))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := h.releaseTx(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmSeats sells the hold's seats to its owner, issuing one ticket per
// seat at the seat's price.  Confirming an already confirmed hold returns
// the tickets issued the first time.  Any seat that is no longer held by
// this hold aborts the whole confirmation.
func (h *HoldManager) ConfirmSeats(ctx context.Context, holdID, userID string, payment model.PaymentFact) ([]model.Ticket, error) {
	pre, err := h.hold(ctx, h.c.db(), holdID)
	if err != nil {
		return nil, err
	}
	var (
		tickets []model.Ticket
		issued  bool
	)
	err = repository.WithTx(ctx, h.c.db(), func(tx *sql.Tx) error {
		if err := h.c.lock(ctx, tx, pre.EventID); err != nil {
			return err
		}
		hold, err := h.hold(ctx, tx, holdID)
		if err != nil {
			return err
		}
		if hold.UserID != userID {
			return ErrHoldNotOwned
		}
		if hold.Confirmed {
			tickets, err = h.ticketsOfHold(ctx, tx, hold)
			return err
		}
		now := h.c.now()
		if !now.Before(hold.ExpiresAt) {
			return ErrHoldExpired
		}
		e, err := h.c.event(ctx, tx, hold.EventID)
		if err != nil {
			return err
		}
		if e.IsCancelled {
			return ErrEventCancelled
		}

		ids, err := h.c.store.Holds.SeatIDs(ctx, tx, holdID)
		if err != nil {
			return err
		}
		seats, err := h.c.store.Seats.GetByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(seats) != len(ids) {
			return ErrSeatNotHeld
		}
		var total int64
		for _, s := range seats {
			if s.Status != model.SeatHeld || s.HoldID == nil || *s.HoldID != holdID {
				return ErrSeatNotHeld
			}
			total += s.PriceCents
		}
		n, err := h.c.store.Seats.SellByHoldTx(ctx, tx, holdID, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return ErrSeatNotHeld
		}

		tickets = make([]model.Ticket, 0, len(seats))
		for _, s := range seats {
			ref := s.Ref()
			t := model.Ticket{
				ID:                newID(),
				EventID:           hold.EventID,
				UserID:            userID,
				Status:            model.TicketValid,
				AmountCents:       s.PriceCents,
				ExternalReference: payment.ExternalReference,
				HoldID:            &hold.ID,
				SeatID:            &s.ID,
				Seat:              &ref,
				PurchasedAt:       now,
			}
			if err := h.c.store.Tickets.InsertTx(ctx, tx, &t); err != nil {
				return err
			}
			tickets = append(tickets, t)
		}
		ok, err := h.c.store.Holds.ConfirmTx(ctx, tx, holdID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSeatNotHeld
		}
		if payment.AmountCents != total {
			h.c.log.Warn("payment amount differs from seat prices", "hold_id", holdID, "paid_cents", payment.AmountCents, "expected_cents", total)
		}
		issued = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if issued {
		h.c.announceTickets(ctx, tickets)
	}
	return tickets, nil
}

// ActiveHold returns the user's live, unconfirmed hold on the event, or
// nil when there is none.
func (h *HoldManager) ActiveHold(ctx context.Context, eventID, userID string) (*model.SeatHold, error) {
	hold, err := h.c.store.Holds.ActiveByUser(ctx, h.c.db(), eventID, userID, repository.Millis(h.c.now()))
	if errors.Is(err, repository.ErrHoldNotFound) {
		return nil, nil
	}
	return hold, err
}

// Get returns a hold by id.
func (h *HoldManager) Get(ctx context.Context, holdID string) (*model.SeatHold, error) {
	return h.hold(ctx, h.c.db(), holdID)
}

// SeatMap returns the event's seats grouped by section and row.  A held
// seat whose deadline has passed is shown as available.
func (h *HoldManager) SeatMap(ctx context.Context, eventID string) (*model.SeatMap, error) {
	e, err := h.c.event(ctx, h.c.db(), eventID)
	if err != nil {
		return nil, err
	}
	if !e.Seated() {
		return nil, ErrNotSeated
	}
	seats, err := h.c.store.Seats.ListByEvent(ctx, h.c.db(), eventID)
	if err != nil {
		return nil, err
	}
	nowMs := repository.Millis(h.c.now())
	m := &model.SeatMap{EventID: eventID, MinPriceCents: e.PriceCents}
	sectionIdx := map[string]int{}
	rowIdx := map[string]int{}
	for i, s := range seats {
		if s.Status == model.SeatHeld && s.HoldExpiresAt != nil && *s.HoldExpiresAt <= nowMs {
			s.Status = model.SeatAvailable
			s.HoldExpiresAt = nil
		}
		if i == 0 || s.PriceCents < m.MinPriceCents {
			m.MinPriceCents = s.PriceCents
		}
		si, ok := sectionIdx[s.SectionID]
		if !ok {
			si = len(m.Sections)
			sectionIdx[s.SectionID] = si
			m.Sections = append(m.Sections, model.SeatMapSection{SectionID: s.SectionID})
		}
		sec := &m.Sections[si]
		key := s.SectionID + "\x00" + s.Row
		ri, ok := rowIdx[key]
		if !ok {
			ri = len(sec.Rows)
			rowIdx[key] = ri
			sec.Rows = append(sec.Rows, model.SeatMapRow{Row: s.Row})
		}
		sec.Rows[ri].Seats = append(sec.Rows[ri].Seats, s)
	}
	return m, nil
}

// SweepExpired runs ExpireHold for unconfirmed holds whose deadline passed
// at least grace ago and returns how many it visited.
func (h *HoldManager) SweepExpired(ctx context.Context, grace time.Duration, limit int) (int, error) {
	cutoff := h.c.now().Add(-grace)
	ids, err := h.c.store.Holds.ListOverdue(ctx, h.c.db(), repository.Millis(cutoff), limit)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := h.ExpireHold(ctx, id); err != nil {
			return 0, fmt.Errorf("expire hold %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func (h *HoldManager) hold(ctx context.Context, q repository.DBTX, id string) (*model.SeatHold, error) {
	hold, err := h.c.store.Holds.Get(ctx, q, id)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return nil, ErrHoldNotFound
	}
	return hold, err
}

func (h *HoldManager) ticketsOfHold(ctx context.Context, q repository.DBTX, hold *model.SeatHold) ([]model.Ticket, error) {
	all, err := h.c.store.Tickets.ListByUserAndEvent(ctx, q, hold.UserID, hold.EventID)
	if err != nil {
		return nil, err
	}
	var out []model.Ticket
	for _, t := range all {
		if t.HoldID != nil && *t.HoldID == hold.ID {
			out = append(out, t)
		}
	}
	return out, nil
}

// dedupeRefs collapses repeated refs.  A ref missing any part rejects the
// whole request, so a hold never covers less than was asked for.
func dedupeRefs(refs []model.SeatRef) ([]model.SeatRef, error) {
	seen := make(map[model.SeatRef]struct{}, len(refs))
	out := make([]model.SeatRef, 0, len(refs))
	for _, r := range refs {
		if r.SectionID == "" || r.Row == "" || r.SeatNumber == "" {
			return nil, fmt.Errorf("%w: seat ref needs section_id, row and seat_number", ErrInvalidInput)
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
