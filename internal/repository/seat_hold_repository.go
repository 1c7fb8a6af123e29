package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// SeatHoldRepo provides data access to seat_holds and the fixed seat list
// of each hold in seat_hold_seats.  Expiry comparisons use the caller's
// clock in unix milliseconds, never the database clock.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a SeatHoldRepo bound to db.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// CreateTx inserts the hold and its seat list.  seats must be the
// materialized seats the hold claims, in request order.
func (r *SeatHoldRepo) CreateTx(ctx context.Context, q DBTX, h *model.SeatHold, seats []model.Seat) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO seat_holds (id, event_id, user_id, expires_at, confirmed, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.EventID, h.UserID, Millis(h.ExpiresAt), h.Confirmed, Millis(h.CreatedAt),
	); err != nil {
		return err
	}
	if len(seats) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO seat_hold_seats (hold_id, position, seat_id, section_id, row_label, seat_number) VALUES `)
	args := make([]any, 0, len(seats)*6)
	for i, s := range seats {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, h.ID, i, s.ID, s.SectionID, s.Row, s.SeatNumber)
	}
	_, err := q.ExecContext(ctx, sb.String(), args...)
	return err
}

// Get loads a hold with its seat list.
func (r *SeatHoldRepo) Get(ctx context.Context, q DBTX, id string) (*model.SeatHold, error) {
	var (
		h       model.SeatHold
		expires int64
		created int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, expires_at, confirmed, created_at FROM seat_holds WHERE id = ?`, id,
	).Scan(&h.ID, &h.EventID, &h.UserID, &expires, &h.Confirmed, &created)
	if err == sql.ErrNoRows {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, err
	}
	h.ExpiresAt = FromMillis(expires)
	h.CreatedAt = FromMillis(created)

	refs, _, err := r.seatList(ctx, q, id)
	if err != nil {
		return nil, err
	}
	h.Seats = refs
	return &h, nil
}

// SeatIDs returns the ids of the seats the hold references, in order.
func (r *SeatHoldRepo) SeatIDs(ctx context.Context, q DBTX, holdID string) ([]string, error) {
	_, ids, err := r.seatList(ctx, q, holdID)
	return ids, err
}

func (r *SeatHoldRepo) seatList(ctx context.Context, q DBTX, holdID string) ([]model.SeatRef, []string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seat_id, section_id, row_label, seat_number FROM seat_hold_seats WHERE hold_id = ? ORDER BY position`, holdID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var (
		refs []model.SeatRef
		ids  []string
	)
	for rows.Next() {
		var (
			id  string
			ref model.SeatRef
		)
		if err := rows.Scan(&id, &ref.SectionID, &ref.Row, &ref.SeatNumber); err != nil {
			return nil, nil, err
		}
		refs = append(refs, ref)
		ids = append(ids, id)
	}
	return refs, ids, rows.Err()
}

// ConfirmTx flags the hold confirmed.  It reports false if it already was.
func (r *SeatHoldRepo) ConfirmTx(ctx context.Context, q DBTX, id string) (bool, error) {
	res, err := q.ExecContext(ctx, `UPDATE seat_holds SET confirmed = ? WHERE id = ? AND confirmed = ?`, true, id, false)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeleteTx removes the hold and its seat list.
func (r *SeatHoldRepo) DeleteTx(ctx context.Context, q DBTX, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM seat_hold_seats WHERE hold_id = ?`, id); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `DELETE FROM seat_holds WHERE id = ?`, id)
	return err
}

// ActiveByUser returns the user's newest unconfirmed hold on the event
// that has not yet expired at nowMs, or ErrHoldNotFound.
func (r *SeatHoldRepo) ActiveByUser(ctx context.Context, q DBTX, eventID, userID string, nowMs int64) (*model.SeatHold, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM seat_holds
		  WHERE event_id = ? AND user_id = ? AND confirmed = ? AND expires_at > ?
		  ORDER BY created_at DESC LIMIT 1`,
		eventID, userID, false, nowMs,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, q, id)
}

// ExpiredIDs returns unconfirmed holds of the event whose deadline passed
// at or before nowMs.
func (r *SeatHoldRepo) ExpiredIDs(ctx context.Context, q DBTX, eventID string, nowMs int64) ([]string, error) {
	return r.ids(ctx, q,
		`SELECT id FROM seat_holds WHERE event_id = ? AND confirmed = ? AND expires_at <= ? ORDER BY expires_at, id`,
		eventID, false, nowMs)
}

// UnconfirmedIDs returns every unconfirmed hold of the event.
func (r *SeatHoldRepo) UnconfirmedIDs(ctx context.Context, q DBTX, eventID string) ([]string, error) {
	return r.ids(ctx, q,
		`SELECT id FROM seat_holds WHERE event_id = ? AND confirmed = ? ORDER BY created_at, id`,
		eventID, false)
}

// ListOverdue returns unconfirmed holds of any event whose deadline
// passed at or before nowMs.
func (r *SeatHoldRepo) ListOverdue(ctx context.Context, q DBTX, nowMs int64, limit int) ([]string, error) {
	return r.ids(ctx, q,
		`SELECT id FROM seat_holds WHERE confirmed = ? AND expires_at <= ? ORDER BY expires_at, id LIMIT ?`,
		false, nowMs, limit)
}

func (r *SeatHoldRepo) ids(ctx context.Context, q DBTX, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
