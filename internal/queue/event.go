// Package queue defines the messages the reservation engine publishes to
// RabbitMQ, the publisher that sends them and the consumer that records
// them.
package queue

import (
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

const (
	TicketsIssuedQueue = "tickets.issued"
	OfferGrantedQueue  = "offers.granted"
)

// TicketsIssuedEvent is published once per purchase or seat confirmation.
// It carries enough for downstream consumers to notify or log without
// reading the primary database.
type TicketsIssuedEvent struct {
	EventID           string   `json:"event_id"`
	UserID            string   `json:"user_id"`
	TicketIDs         []string `json:"ticket_ids"`
	Seats             []string `json:"seats,omitempty"`
	TotalAmountCents  int64    `json:"total_amount_cents"`
	ExternalReference string   `json:"external_reference,omitempty"`
	IssuedAt          string   `json:"issued_at"`
}

// OfferGrantedEvent is published when a waiting entry becomes offered.
type OfferGrantedEvent struct {
	EntryID        string `json:"entry_id"`
	EventID        string `json:"event_id"`
	UserID         string `json:"user_id"`
	OfferExpiresAt string `json:"offer_expires_at"`
}

// NewTicketsIssuedEvent summarizes one batch of tickets.  All tickets are
// assumed to share event, user and payment reference.
func NewTicketsIssuedEvent(tickets []model.Ticket) TicketsIssuedEvent {
	var ev TicketsIssuedEvent
	if len(tickets) == 0 {
		return ev
	}
	first := tickets[0]
	ev.EventID = first.EventID
	ev.UserID = first.UserID
	ev.ExternalReference = first.ExternalReference
	ev.IssuedAt = first.PurchasedAt.UTC().Format(time.RFC3339)
	for _, t := range tickets {
		ev.TicketIDs = append(ev.TicketIDs, t.ID)
		ev.TotalAmountCents += t.AmountCents
		if t.Seat != nil {
			ev.Seats = append(ev.Seats, t.Seat.SectionID+"/"+t.Seat.Row+"/"+t.Seat.SeatNumber)
		}
	}
	return ev
}

// NewOfferGrantedEvent builds the message for an offered entry.
func NewOfferGrantedEvent(e model.WaitingListEntry) OfferGrantedEvent {
	ev := OfferGrantedEvent{EntryID: e.ID, EventID: e.EventID, UserID: e.UserID}
	if e.OfferExpiresAt != nil {
		ev.OfferExpiresAt = e.OfferExpiresAt.UTC().Format(time.RFC3339)
	}
	return ev
}
