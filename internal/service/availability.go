package service

import (
	"context"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// AvailabilityCalculator projects remaining capacity from the ledger, the
// waiting list and the seat rows.  Nothing it returns is stored.
type AvailabilityCalculator struct {
	c *core
}

// Compute returns the event's availability as of now.
func (a *AvailabilityCalculator) Compute(ctx context.Context, eventID string) (model.Availability, error) {
	e, err := a.c.event(ctx, a.c.db(), eventID)
	if err != nil {
		return model.Availability{}, err
	}
	return a.compute(ctx, a.c.db(), e, a.c.now())
}

// compute works on any handle so transactions can reuse it after taking
// the event lock.
func (a *AvailabilityCalculator) compute(ctx context.Context, q repository.DBTX, e *model.Event, now time.Time) (model.Availability, error) {
	av := model.Availability{EventID: e.ID, MinPriceCents: e.PriceCents}
	if e.Seated() {
		counts, err := a.c.store.Seats.Counts(ctx, q, e.ID, repository.Millis(now))
		if err != nil {
			return av, err
		}
		av.TotalCapacity = counts.Total
		av.CommittedCount = counts.Sold
		av.PendingCount = counts.HeldLive
		if counts.MinPrice.Valid {
			av.MinPriceCents = counts.MinPrice.Int64
		}
	} else {
		committed, err := a.c.store.Tickets.CountCommitted(ctx, q, e.ID)
		if err != nil {
			return av, err
		}
		pending, err := a.c.store.Entries.CountLiveOffers(ctx, q, e.ID, repository.Millis(now))
		if err != nil {
			return av, err
		}
		av.TotalCapacity = e.TotalTickets
		av.CommittedCount = committed
		av.PendingCount = pending
	}
	av.Remaining = max(0, av.TotalCapacity-(av.CommittedCount+av.PendingCount))
	av.IsSoldOut = av.Remaining <= 0
	return av, nil
}
