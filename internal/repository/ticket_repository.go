package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// TicketRepo is the append-only ticket ledger.  Rows are never deleted;
// only their status moves forward.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to db.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, event_id, user_id, status, amount_cents, external_reference, waiting_list_id, hold_id,
	seat_id, section_id, row_label, seat_number, purchased_at, updated_at`

// InsertTx appends t to the ledger.  ID and PurchasedAt must already be set.
func (r *TicketRepo) InsertTx(ctx context.Context, q DBTX, t *model.Ticket) error {
	var section, row, number sql.NullString
	if t.Seat != nil {
		section = sql.NullString{String: t.Seat.SectionID, Valid: true}
		row = sql.NullString{String: t.Seat.Row, Valid: true}
		number = sql.NullString{String: t.Seat.SeatNumber, Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO tickets (id, event_id, user_id, status, amount_cents, external_reference, waiting_list_id, hold_id,
		                      seat_id, section_id, row_label, seat_number, purchased_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.EventID, t.UserID, t.Status, t.AmountCents, t.ExternalReference,
		nullString(t.WaitingListID), nullString(t.HoldID), nullString(t.SeatID),
		section, row, number, Millis(t.PurchasedAt),
	)
	return err
}

// Get loads one ticket.
func (r *TicketRepo) Get(ctx context.Context, q DBTX, id string) (*model.Ticket, error) {
	out, err := r.query(ctx, q, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrTicketNotFound
	}
	return &out[0], nil
}

// ListByUser returns the user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, q DBTX, userID string) ([]model.Ticket, error) {
	return r.query(ctx, q, `SELECT `+ticketColumns+` FROM tickets WHERE user_id = ? ORDER BY purchased_at DESC, id`, userID)
}

// ListByEvent returns the event's tickets in purchase order.
func (r *TicketRepo) ListByEvent(ctx context.Context, q DBTX, eventID string) ([]model.Ticket, error) {
	return r.query(ctx, q, `SELECT `+ticketColumns+` FROM tickets WHERE event_id = ? ORDER BY purchased_at, id`, eventID)
}

// ListByUserAndEvent returns the user's tickets for one event.
func (r *TicketRepo) ListByUserAndEvent(ctx context.Context, q DBTX, userID, eventID string) ([]model.Ticket, error) {
	return r.query(ctx, q,
		`SELECT `+ticketColumns+` FROM tickets WHERE user_id = ? AND event_id = ? ORDER BY purchased_at, id`,
		userID, eventID)
}

// CountCommitted counts valid and used tickets of the event.
func (r *TicketRepo) CountCommitted(ctx context.Context, q DBTX, eventID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = ? AND status IN (?, ?)`,
		eventID, model.TicketValid, model.TicketUsed,
	).Scan(&n)
	return n, err
}

// UpdateStatusTx moves a ticket from one status to another.  It reports
// false when the ticket was not in from.
func (r *TicketRepo) UpdateStatusTx(ctx context.Context, q DBTX, id, from, to string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, Millis(now), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Summary aggregates the event's ledger.  Revenue counts valid and used
// tickets only.
func (r *TicketRepo) Summary(ctx context.Context, q DBTX, eventID string) (model.SalesSummary, error) {
	s := model.SalesSummary{EventID: eventID}
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status IN (?, ?) THEN amount_cents ELSE 0 END), 0)
		   FROM tickets WHERE event_id = ?`,
		model.TicketValid, model.TicketUsed, model.TicketRefunded, model.TicketCancelled,
		model.TicketValid, model.TicketUsed, eventID,
	).Scan(&s.Sold, &s.Refunded, &s.Cancelled, &s.RevenueCents)
	return s, err
}

func (r *TicketRepo) query(ctx context.Context, q DBTX, query string, args ...any) ([]model.Ticket, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		var (
			t                    model.Ticket
			entryID, holdID      sql.NullString
			seatID, section, row sql.NullString
			number               sql.NullString
			purchased            int64
			updated              sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.EventID, &t.UserID, &t.Status, &t.AmountCents, &t.ExternalReference,
			&entryID, &holdID, &seatID, &section, &row, &number, &purchased, &updated); err != nil {
			return nil, err
		}
		t.WaitingListID = stringPtr(entryID)
		t.HoldID = stringPtr(holdID)
		t.SeatID = stringPtr(seatID)
		if section.Valid {
			t.Seat = &model.SeatRef{SectionID: section.String, Row: row.String, SeatNumber: number.String}
		}
		t.PurchasedAt = FromMillis(purchased)
		t.UpdatedAt = timePtr(updated)
		out = append(out, t)
	}
	return out, rows.Err()
}
