package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/clock"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
	"github.com/iliyamo/event-ticket-reservation/internal/storetest"
)

var t0 = time.Date(2026, 6, 12, 19, 30, 0, 0, time.UTC)

type offerTimer struct {
	EntryID, EventID string
	At               time.Time
}

type holdTimer struct {
	HoldID string
	At     time.Time
}

// recordingScheduler stands in for the durable scheduler; tests fire the
// recorded timers by calling the engine callbacks themselves.
// Setting failOfferCall makes only that (1-based) offer schedule fail.
type recordingScheduler struct {
	mu            sync.Mutex
	offers        []offerTimer
	holds         []holdTimer
	err           error
	offerCalls    int
	failOfferCall int
}

func (s *recordingScheduler) ScheduleOfferExpiry(_ context.Context, entryID, eventID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.offerCalls++
	if s.offerCalls == s.failOfferCall {
		return errors.New("scheduler unavailable")
	}
	s.offers = append(s.offers, offerTimer{EntryID: entryID, EventID: eventID, At: at})
	return nil
}

func (s *recordingScheduler) ScheduleHoldExpiry(_ context.Context, holdID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.holds = append(s.holds, holdTimer{HoldID: holdID, At: at})
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	offers  []model.WaitingListEntry
	tickets [][]model.Ticket
}

func (p *recordingPublisher) PublishOfferGranted(_ context.Context, e model.WaitingListEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers = append(p.offers, e)
	return nil
}

func (p *recordingPublisher) PublishTicketsIssued(_ context.Context, ts []model.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickets = append(p.tickets, ts)
	return nil
}

type harness struct {
	ctx   context.Context
	store *repository.Store
	clock *clock.Fake
	sched *recordingScheduler
	pub   *recordingPublisher
	eng   *service.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:   context.Background(),
		store: repository.NewStore(storetest.Open(t)),
		clock: clock.NewFake(t0),
		sched: &recordingScheduler{},
		pub:   &recordingPublisher{},
	}
	h.eng = service.New(h.store, h.sched,
		service.WithClock(h.clock),
		service.WithPublisher(h.pub),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return h
}

func (h *harness) flatEvent(t *testing.T, total int) *model.Event {
	t.Helper()
	e, err := h.eng.Catalog.CreateEvent(h.ctx, service.CreateEventInput{Name: "Flat gig", TotalTickets: total, PriceCents: 4500})
	require.NoError(t, err)
	return e
}

func (h *harness) seatedEvent(t *testing.T, sections []model.Section) *model.Event {
	t.Helper()
	plan, err := h.eng.Catalog.CreatePlan(h.ctx, "Hall", sections)
	require.NoError(t, err)
	e, err := h.eng.Catalog.CreateEvent(h.ctx, service.CreateEventInput{Name: "Seated gig", PriceCents: 9900, SeatingPlanID: plan.ID})
	require.NoError(t, err)
	return e
}

func (h *harness) join(t *testing.T, eventID, userID string) *service.JoinResult {
	t.Helper()
	res, err := h.eng.Queue.Join(h.ctx, eventID, userID)
	require.NoError(t, err)
	return res
}

func (h *harness) entry(t *testing.T, id string) *model.WaitingListEntry {
	t.Helper()
	e, err := h.store.Entries.Get(h.ctx, h.store.DB, id)
	require.NoError(t, err)
	return e
}

func (h *harness) seat(t *testing.T, eventID string, ref model.SeatRef) model.Seat {
	t.Helper()
	seats, err := h.store.Seats.FindByRefs(h.ctx, h.store.DB, eventID, []model.SeatRef{ref})
	require.NoError(t, err)
	require.Len(t, seats, 1)
	return seats[0]
}

func (h *harness) availability(t *testing.T, eventID string) model.Availability {
	t.Helper()
	av, err := h.eng.Availability.Compute(h.ctx, eventID)
	require.NoError(t, err)
	return av
}

func pay(cents int64) model.PaymentFact {
	return model.PaymentFact{AmountCents: cents, ExternalReference: "pi_test"}
}

func ref(section, row, number string) model.SeatRef {
	return model.SeatRef{SectionID: section, Row: row, SeatNumber: number}
}
