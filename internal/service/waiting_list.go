package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// WaitingList is the per-event FIFO queue in front of flat ticket sales.
type WaitingList struct {
	c      *core
	offers *OfferManager
}

// JoinResult is the outcome of a join: the entry and whether it was
// offered straight away or left waiting.
type JoinResult struct {
	Entry  model.WaitingListEntry `json:"entry"`
	Status string                 `json:"status"`
}

// Join queues the user for the event.  The entry is inserted as waiting
// and promotion runs in the same transaction, so a user who finds free
// capacity (and nobody older waiting) comes out offered, while earlier
// entrants always keep precedence.  A user holding any non-expired entry
// for the event gets ErrDuplicateEntry.
func (w *WaitingList) Join(ctx context.Context, eventID, userID string) (*JoinResult, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	var (
		granted []model.WaitingListEntry
		entry   model.WaitingListEntry
	)
	err := repository.WithTx(ctx, w.c.db(), func(tx *sql.Tx) error {
		if err := w.c.lock(ctx, tx, eventID); err != nil {
			return err
		}
		e, err := w.c.event(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.IsCancelled {
			return ErrEventCancelled
		}
		if e.Seated() {
			return ErrSeated
		}
		if _, err := w.c.store.Entries.FindActive(ctx, tx, eventID, userID); err == nil {
			return ErrDuplicateEntry
		} else if !errors.Is(err, repository.ErrEntryNotFound) {
			return err
		}

		now := w.c.now()
		created, err := w.nextCreatedAt(ctx, tx, eventID, now)
		if err != nil {
			return err
		}
		entry = model.WaitingListEntry{
			ID:        newID(),
			EventID:   eventID,
			UserID:    userID,
			Status:    model.EntryWaiting,
			CreatedAt: created,
		}
		if err := w.c.store.Entries.CreateTx(ctx, tx, &entry); err != nil {
			return err
		}
		granted, err = w.offers.promoteTx(ctx, tx, eventID, now)
		if err != nil {
			return err
		}
		for _, g := range granted {
			if g.ID == entry.ID {
				entry = g
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.c.log.Info("joined waiting list", "event_id", eventID, "user_id", userID, "entry_id", entry.ID, "status", entry.Status)
	w.c.announceOffers(ctx, granted)
	return &JoinResult{Entry: entry, Status: entry.Status}, nil
}

// nextCreatedAt returns now, bumped past the event's newest entry so that
// creation times within an event are strictly increasing and positions
// never tie.
func (w *WaitingList) nextCreatedAt(ctx context.Context, q repository.DBTX, eventID string, now time.Time) (time.Time, error) {
	latest, err := w.c.store.Entries.LatestCreatedAt(ctx, q, eventID)
	if err != nil {
		return time.Time{}, err
	}
	created := now.Truncate(time.Millisecond)
	if repository.Millis(created) <= latest {
		created = repository.FromMillis(latest + 1)
	}
	return created, nil
}

// Position returns the user's 1-based rank among the event's waiting and
// offered entries, or nil when the user has no non-expired entry.
// Offered entries ahead still count, so the displayed rank does not jump
// while someone in front decides on their offer.
func (w *WaitingList) Position(ctx context.Context, eventID, userID string) (*model.QueuePosition, error) {
	entry, err := w.c.store.Entries.FindActive(ctx, w.c.db(), eventID, userID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ahead, err := w.c.store.Entries.CountAhead(ctx, w.c.db(), eventID, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &model.QueuePosition{Entry: *entry, Position: ahead + 1}, nil
}

// ListByUser returns the user's entries across events, newest first.
func (w *WaitingList) ListByUser(ctx context.Context, userID string) ([]model.WaitingListEntry, error) {
	return w.c.store.Entries.ListByUser(ctx, w.c.db(), userID)
}
