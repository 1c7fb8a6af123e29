package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

var issued = time.Date(2026, 6, 12, 19, 31, 0, 0, time.UTC)

func seatedTickets() []model.Ticket {
	holdID := "hold-1"
	return []model.Ticket{
		{ID: "t1", EventID: "ev", UserID: "u1", AmountCents: 7500, ExternalReference: "pi_1", HoldID: &holdID,
			Seat: &model.SeatRef{SectionID: "stalls", Row: "A", SeatNumber: "1"}, PurchasedAt: issued},
		{ID: "t2", EventID: "ev", UserID: "u1", AmountCents: 3000, ExternalReference: "pi_1", HoldID: &holdID,
			Seat: &model.SeatRef{SectionID: "balcony", Row: "A", SeatNumber: "2"}, PurchasedAt: issued},
	}
}

func TestNewTicketsIssuedEvent(t *testing.T) {
	ev := NewTicketsIssuedEvent(seatedTickets())
	assert.Equal(t, "ev", ev.EventID)
	assert.Equal(t, []string{"t1", "t2"}, ev.TicketIDs)
	assert.Equal(t, []string{"stalls/A/1", "balcony/A/2"}, ev.Seats)
	assert.EqualValues(t, 10500, ev.TotalAmountCents)
	assert.Equal(t, "2026-06-12T19:31:00Z", ev.IssuedAt)

	assert.Empty(t, NewTicketsIssuedEvent(nil).TicketIDs)
}

func TestFormatLines(t *testing.T) {
	line := FormatTicketsIssued(NewTicketsIssuedEvent(seatedTickets()))
	assert.Equal(t, "[2026-06-12T19:31:00Z] Tickets issued | event_id=ev | user_id=u1 | tickets=2 | total=10500 cents | ref=\"pi_1\" | seats=[stalls/A/1,balcony/A/2]\n", line)

	flat := FormatTicketsIssued(TicketsIssuedEvent{EventID: "ev", UserID: "u2", TicketIDs: []string{"t3"}, TotalAmountCents: 4500, IssuedAt: "x"})
	assert.Contains(t, flat, "seats=[]")

	deadline := issued.Add(15 * time.Minute)
	offer := FormatOfferGranted(NewOfferGrantedEvent(model.WaitingListEntry{ID: "e1", EventID: "ev", UserID: "u3", OfferExpiresAt: &deadline}))
	assert.Equal(t, "[2026-06-12T19:46:00Z] Offer granted | entry_id=e1 | event_id=ev | user_id=u3\n", offer)
}

func TestConsumerHandleAppends(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("amqp://unused", dir)

	body, err := json.Marshal(NewTicketsIssuedEvent(seatedTickets()))
	require.NoError(t, err)
	require.NoError(t, c.Handle(TicketsIssuedQueue, body))
	require.NoError(t, c.Handle(TicketsIssuedQueue, body))

	got, err := os.ReadFile(filepath.Join(dir, "tickets.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(got), "\n"))

	assert.Error(t, c.Handle(OfferGrantedQueue, []byte("{")))
	assert.Error(t, c.Handle("unknown", body))
	_, err = os.Stat(filepath.Join(dir, "offers.log"))
	assert.True(t, os.IsNotExist(err))
}
