package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// OfferExpirer is the offer side of the engine the worker drives.
type OfferExpirer interface {
	Expire(ctx context.Context, entryID, eventID string) error
	SweepExpired(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// HoldExpirer is the seat-hold side of the engine the worker drives.
type HoldExpirer interface {
	ExpireHold(ctx context.Context, holdID string) error
	SweepExpired(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// Worker handles expiry tasks.
type Worker struct {
	Offers     OfferExpirer
	Holds      HoldExpirer
	SweepGrace time.Duration
	SweepLimit int
	Log        *slog.Logger
}

// NewServeMux routes every task type to the worker.
func NewServeMux(w *Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOfferExpire, w.HandleOfferExpire)
	mux.HandleFunc(TypeHoldExpire, w.HandleHoldExpire)
	mux.HandleFunc(TypeSweep, w.HandleSweep)
	return mux
}

func (w *Worker) HandleOfferExpire(ctx context.Context, t *asynq.Task) error {
	var p OfferExpirePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.EntryID == "" || p.EventID == "" {
		return fmt.Errorf("bad %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return w.Offers.Expire(ctx, p.EntryID, p.EventID)
}

func (w *Worker) HandleHoldExpire(ctx context.Context, t *asynq.Task) error {
	var p HoldExpirePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.HoldID == "" {
		return fmt.Errorf("bad %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return w.Holds.ExpireHold(ctx, p.HoldID)
}

// HandleSweep expires offers and holds whose deadline passed more than
// SweepGrace ago.  Both sweeps run even if the first one fails.
func (w *Worker) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	limit := w.SweepLimit
	if limit <= 0 {
		limit = 500
	}
	offers, oerr := w.Offers.SweepExpired(ctx, w.SweepGrace, limit)
	holds, herr := w.Holds.SweepExpired(ctx, w.SweepGrace, limit)
	if offers > 0 || holds > 0 {
		w.logger().Info("sweep recovered overdue deadlines", "offers", offers, "holds", holds)
	}
	return errors.Join(oerr, herr)
}

func (w *Worker) logger() *slog.Logger {
	if w.Log == nil {
		return slog.Default()
	}
	return w.Log
}

// NewServer builds the asynq worker server.
func NewServer(opt asynq.RedisClientOpt, concurrency int, log *slog.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
			QueueLow:      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", "type", task.Type(), "payload", string(task.Payload()), "err", err)
		}),
	})
}

// NewPeriodic registers the sweep on an asynq scheduler.  The caller runs
// it with Run or Start.
func NewPeriodic(opt asynq.RedisClientOpt, every time.Duration) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(opt, nil)
	if _, err := s.Register(sweepSpec(every), asynq.NewTask(TypeSweep, nil), asynq.Queue(QueueLow), asynq.MaxRetry(0)); err != nil {
		return nil, fmt.Errorf("register sweep: %w", err)
	}
	return s, nil
}
