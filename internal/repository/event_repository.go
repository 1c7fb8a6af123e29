package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to db.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for callers that open transactions
// spanning several repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, name, total_tickets, price_cents, seating_plan_id, is_cancelled, created_at`

// LockTx bumps the event's lock_version.  It must be the first write of
// any transaction that changes capacity or claims inventory for the
// event: the row lock it takes serializes concurrent transactions on the
// same event until commit.  Returns ErrEventNotFound for an unknown id.
func (r *EventRepo) LockTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `UPDATE events SET lock_version = lock_version + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CreateTx inserts e.  ID and CreatedAt must already be set.
func (r *EventRepo) CreateTx(ctx context.Context, q DBTX, e *model.Event) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO events (id, name, total_tickets, price_cents, seating_plan_id, is_cancelled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.TotalTickets, e.PriceCents, nullString(e.SeatingPlanID), e.IsCancelled, Millis(e.CreatedAt),
	)
	return err
}

// Get loads one event.
func (r *EventRepo) Get(ctx context.Context, q DBTX, id string) (*model.Event, error) {
	row := q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return e, err
}

// List returns every event, newest first.
func (r *EventRepo) List(ctx context.Context, q DBTX) ([]model.Event, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// UpdateTotalTicketsTx sets the event's capacity.
func (r *EventRepo) UpdateTotalTicketsTx(ctx context.Context, q DBTX, id string, total int) error {
	_, err := q.ExecContext(ctx, `UPDATE events SET total_tickets = ? WHERE id = ?`, total, id)
	return err
}

// SetSeatingPlanTx points the event at plan and sets its capacity to match.
func (r *EventRepo) SetSeatingPlanTx(ctx context.Context, q DBTX, id, planID string, capacity int) error {
	_, err := q.ExecContext(ctx, `UPDATE events SET seating_plan_id = ?, total_tickets = ? WHERE id = ?`, planID, capacity, id)
	return err
}

// MarkCancelledTx flags the event as cancelled.
func (r *EventRepo) MarkCancelledTx(ctx context.Context, q DBTX, id string) error {
	_, err := q.ExecContext(ctx, `UPDATE events SET is_cancelled = ? WHERE id = ?`, true, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*model.Event, error) {
	var (
		e       model.Event
		planID  sql.NullString
		created int64
	)
	if err := s.Scan(&e.ID, &e.Name, &e.TotalTickets, &e.PriceCents, &planID, &e.IsCancelled, &created); err != nil {
		return nil, err
	}
	e.SeatingPlanID = stringPtr(planID)
	e.CreatedAt = FromMillis(created)
	return &e, nil
}
