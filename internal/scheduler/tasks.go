// Package scheduler delivers the engine's deferred expiry callbacks through
// asynq.  Offer and hold deadlines become tasks processed at the deadline;
// a periodic sweep re-drives anything whose task was lost.
package scheduler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
)

const (
	TypeOfferExpire = "offer:expire"
	TypeHoldExpire  = "hold:expire"
	TypeSweep       = "reservations:sweep"
)

// Queue names and their weights on the worker.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Task payloads
type OfferExpirePayload struct {
	EntryID string `json:"entry_id"`
	EventID string `json:"event_id"`
}

type HoldExpirePayload struct {
	HoldID string `json:"hold_id"`
}

func NewOfferExpireTask(entryID, eventID string) (*asynq.Task, error) {
	b, err := json.Marshal(OfferExpirePayload{EntryID: entryID, EventID: eventID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOfferExpire, b), nil
}

func NewHoldExpireTask(holdID string) (*asynq.Task, error) {
	b, err := json.Marshal(HoldExpirePayload{HoldID: holdID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeHoldExpire, b), nil
}

// offerTaskID and holdTaskID make enqueueing idempotent.  The offer id
// carries the deadline: an entry whose promotion rolled back can be offered
// again later, and that offer needs its own timer rather than the stale one.
// A hold has exactly one deadline.
func offerTaskID(entryID string, at time.Time) string {
	return "offer-expire:" + entryID + ":" + strconv.FormatInt(at.UnixMilli(), 10)
}

func holdTaskID(holdID string) string { return "hold-expire:" + holdID }

// RedisOpt maps the shared Redis settings onto asynq's connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: cfg.TLSConfig(),
	}
}

// sweepSpec is the cron spec for the periodic sweep.
func sweepSpec(every time.Duration) string {
	if every < time.Second {
		every = time.Minute
	}
	return fmt.Sprintf("@every %s", every)
}
