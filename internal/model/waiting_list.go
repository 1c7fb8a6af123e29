package model

import "time"

// Waiting-list entry status values.  waiting -> offered -> purchased, or
// offered -> expired.  Only expired entries let a user join again.
const (
	EntryWaiting   = "waiting"
	EntryOffered   = "offered"
	EntryPurchased = "purchased"
	EntryExpired   = "expired"
)

// WaitingListEntry is a user's place in an event's FIFO queue.
type WaitingListEntry struct {
	ID             string     `json:"id"`                         // waiting_list.id
	EventID        string     `json:"event_id"`                   // waiting_list.event_id
	UserID         string     `json:"user_id"`                    // waiting_list.user_id
	Status         string     `json:"status"`                     // waiting_list.status
	OfferExpiresAt *time.Time `json:"offer_expires_at,omitempty"` // waiting_list.offer_expires_at (nullable)
	CreatedAt      time.Time  `json:"created_at"`                 // waiting_list.created_at
}

// QueuePosition is a user's 1-based rank among the event's waiting and
// offered entries.
type QueuePosition struct {
	Entry    WaitingListEntry `json:"entry"`
	Position int              `json:"position"`
}
