// Package service implements the reservation engine: availability
// projection, the per-event waiting list, time-boxed offers, seat holds
// and the ticket ledger.  Every state transition runs in one SQL
// transaction that first takes the event's lock row; expiry is driven by
// a durable Scheduler whose callbacks re-check state and no-op when the
// entity has moved on.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-reservation/internal/clock"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// Default policy windows.
const (
	DefaultOfferWindow = 15 * time.Minute
	DefaultHoldWindow  = 10 * time.Minute
)

// Scheduler arranges deferred expiry callbacks.  Implementations must
// deliver at or after the given instant, at least once.
type Scheduler interface {
	ScheduleOfferExpiry(ctx context.Context, entryID, eventID string, at time.Time) error
	ScheduleHoldExpiry(ctx context.Context, holdID string, at time.Time) error
}

// Publisher announces committed outcomes to downstream consumers.
// Failures are logged by the engine and never undo the transition.
type Publisher interface {
	PublishOfferGranted(ctx context.Context, entry model.WaitingListEntry) error
	PublishTicketsIssued(ctx context.Context, tickets []model.Ticket) error
}

// Engine groups the reservation components over one store.
type Engine struct {
	Availability *AvailabilityCalculator
	Queue        *WaitingList
	Offers       *OfferManager
	Holds        *HoldManager
	Ledger       *Ledger
	Catalog      *Catalog
}

// Option customizes an Engine.
type Option func(*core)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(cr *core) {
		if c != nil {
			cr.clock = c
		}
	}
}

// WithPublisher sets the event publisher.  Without one, nothing is published.
func WithPublisher(p Publisher) Option {
	return func(cr *core) {
		if p != nil {
			cr.publisher = p
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cr *core) {
		if l != nil {
			cr.log = l
		}
	}
}

// WithOfferWindow overrides how long an offer stays open.
func WithOfferWindow(d time.Duration) Option {
	return func(cr *core) {
		if d > 0 {
			cr.offerWindow = d
		}
	}
}

// WithHoldWindow overrides how long a seat hold lasts.
func WithHoldWindow(d time.Duration) Option {
	return func(cr *core) {
		if d > 0 {
			cr.holdWindow = d
		}
	}
}

// New builds an Engine.  sched must not be nil.
func New(store *repository.Store, sched Scheduler, opts ...Option) *Engine {
	if store == nil || sched == nil {
		panic("service: nil store or scheduler passed to New")
	}
	c := &core{
		store:       store,
		scheduler:   sched,
		publisher:   nopPublisher{},
		clock:       clock.Real(),
		log:         slog.Default(),
		offerWindow: DefaultOfferWindow,
		holdWindow:  DefaultHoldWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "reservation")

	avail := &AvailabilityCalculator{c: c}
	offers := &OfferManager{c: c, avail: avail}
	holds := &HoldManager{c: c, avail: avail}
	return &Engine{
		Availability: avail,
		Queue:        &WaitingList{c: c, offers: offers},
		Offers:       offers,
		Holds:        holds,
		Ledger:       &Ledger{c: c, offers: offers, avail: avail},
		Catalog:      &Catalog{c: c, offers: offers, holds: holds},
	}
}

// core carries the dependencies shared by every component.
type core struct {
	store       *repository.Store
	scheduler   Scheduler
	publisher   Publisher
	clock       clock.Clock
	log         *slog.Logger
	offerWindow time.Duration
	holdWindow  time.Duration
}

func (c *core) now() time.Time { return c.clock.Now() }

func (c *core) db() *sql.DB { return c.store.DB }

// lock takes the event's lock row.  It must precede every read in the
// transaction so that the reads observe all earlier commits on the event.
func (c *core) lock(ctx context.Context, tx *sql.Tx, eventID string) error {
	if err := c.store.Events.LockTx(ctx, tx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	return nil
}

func (c *core) event(ctx context.Context, q repository.DBTX, id string) (*model.Event, error) {
	e, err := c.store.Events.Get(ctx, q, id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, ErrEventNotFound
	}
	return e, err
}

func (c *core) announceOffers(ctx context.Context, entries []model.WaitingListEntry) {
	for _, e := range entries {
		c.log.Info("offer granted", "event_id", e.EventID, "entry_id", e.ID, "user_id", e.UserID, "expires_at", e.OfferExpiresAt)
		if err := c.publisher.PublishOfferGranted(context.WithoutCancel(ctx), e); err != nil {
			c.log.Warn("publish offer granted failed", "entry_id", e.ID, "err", err)
		}
	}
}

func (c *core) announceTickets(ctx context.Context, tickets []model.Ticket) {
	if len(tickets) == 0 {
		return
	}
	c.log.Info("tickets issued", "event_id", tickets[0].EventID, "user_id", tickets[0].UserID, "count", len(tickets))
	if err := c.publisher.PublishTicketsIssued(context.WithoutCancel(ctx), tickets); err != nil {
		c.log.Warn("publish tickets issued failed", "event_id", tickets[0].EventID, "err", err)
	}
}

func newID() string { return uuid.NewString() }

type nopPublisher struct{}

func (nopPublisher) PublishOfferGranted(context.Context, model.WaitingListEntry) error { return nil }
func (nopPublisher) PublishTicketsIssued(context.Context, []model.Ticket) error { return nil }
