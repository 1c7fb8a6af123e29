package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// enqueuer is the part of *asynq.Client the scheduler needs.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client schedules expiry callbacks as asynq tasks.  It satisfies the
// engine's Scheduler interface.
type Client struct {
	enq    enqueuer
	closer func() error
}

// NewClient connects an asynq client to Redis.
func NewClient(opt asynq.RedisClientOpt) *Client {
	c := asynq.NewClient(opt)
	return &Client{enq: c, closer: c.Close}
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// ScheduleOfferExpiry enqueues an offer:expire task processed at at.
func (c *Client) ScheduleOfferExpiry(ctx context.Context, entryID, eventID string, at time.Time) error {
	task, err := NewOfferExpireTask(entryID, eventID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, at, offerTaskID(entryID, at))
}

// ScheduleHoldExpiry enqueues a hold:expire task processed at at.
func (c *Client) ScheduleHoldExpiry(ctx context.Context, holdID string, at time.Time) error {
	task, err := NewHoldExpireTask(holdID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, at, holdTaskID(holdID))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, at time.Time, id string) error {
	_, err := c.enq.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(id),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(10),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}
