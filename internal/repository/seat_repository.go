package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// SeatRepo manages the materialized seats of seated events.  Status
// changes are compare-and-swap updates: callers compare the returned row
// count with the number of seats they meant to move.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to db.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, event_id, section_id, row_label, seat_number, price_cents, category, status, hold_id, hold_expires_at`

// seatInsertBatch keeps multi-row inserts well under driver placeholder limits.
const seatInsertBatch = 200

// InsertManyTx inserts seats in batches, preserving slice order in the
// ordinal column.
func (r *SeatRepo) InsertManyTx(ctx context.Context, q DBTX, seats []model.Seat) error {
	for start := 0; start < len(seats); start += seatInsertBatch {
		end := min(start+seatInsertBatch, len(seats))
		var sb strings.Builder
		sb.WriteString(`INSERT INTO seats (id, event_id, section_id, row_label, seat_number, ordinal, price_cents, category, status) VALUES `)
		args := make([]any, 0, (end-start)*9)
		for i, s := range seats[start:end] {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, s.ID, s.EventID, s.SectionID, s.Row, s.SeatNumber, start+i, s.PriceCents, s.Category, s.Status)
		}
		if _, err := q.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByEventTx removes every seat of the event.
func (r *SeatRepo) DeleteByEventTx(ctx context.Context, q DBTX, eventID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM seats WHERE event_id = ?`, eventID)
	return err
}

// CountNotAvailable counts seats of the event that are held or sold.
func (r *SeatRepo) CountNotAvailable(ctx context.Context, q DBTX, eventID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE event_id = ? AND status <> ?`, eventID, model.SeatAvailable).Scan(&n)
	return n, err
}

// SeatCounts is the aggregate the availability projection needs.
type SeatCounts struct {
	Total    int
	Sold     int
	HeldLive int
	MinPrice sql.NullInt64
}

// Counts aggregates the event's seats.  A held seat counts as live only
// while its hold_expires_at is after nowMs.
func (r *SeatRepo) Counts(ctx context.Context, q DBTX, eventID string, nowMs int64) (SeatCounts, error) {
	var c SeatCounts
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? AND hold_expires_at > ? THEN 1 ELSE 0 END), 0),
		        MIN(price_cents)
		   FROM seats WHERE event_id = ?`,
		model.SeatSold, model.SeatHeld, nowMs, eventID,
	).Scan(&c.Total, &c.Sold, &c.HeldLive, &c.MinPrice)
	return c, err
}

// ListByEvent returns the event's seats in materialization order.
func (r *SeatRepo) ListByEvent(ctx context.Context, q DBTX, eventID string) ([]model.Seat, error) {
	return r.query(ctx, q, `SELECT `+seatColumns+` FROM seats WHERE event_id = ? ORDER BY ordinal`, eventID)
}

// FindByRefs resolves coordinates to seats.  Unknown coordinates are
// simply absent from the result.
func (r *SeatRepo) FindByRefs(ctx context.Context, q DBTX, eventID string, refs []model.SeatRef) ([]model.Seat, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	conds := make([]string, len(refs))
	args := make([]any, 0, 1+len(refs)*3)
	args = append(args, eventID)
	for i, ref := range refs {
		conds[i] = "(section_id = ? AND row_label = ? AND seat_number = ?)"
		args = append(args, ref.SectionID, ref.Row, ref.SeatNumber)
	}
	return r.query(ctx, q,
		`SELECT `+seatColumns+` FROM seats WHERE event_id = ? AND (`+strings.Join(conds, " OR ")+`) ORDER BY ordinal`,
		args...)
}

// GetByIDs loads seats by primary key.
func (r *SeatRepo) GetByIDs(ctx context.Context, q DBTX, ids []string) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, q,
		`SELECT `+seatColumns+` FROM seats WHERE id IN (`+placeholders(len(ids))+`) ORDER BY ordinal`,
		stringArgs(ids)...)
}

// ClaimTx moves the given seats from available to held for holdID.  Only
// seats that were available are touched; the caller must compare the
// returned count with len(ids) and roll back on a mismatch.
func (r *SeatRepo) ClaimTx(ctx context.Context, q DBTX, ids []string, holdID string, expiresAtMs int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{model.SeatHeld, holdID, expiresAtMs, model.SeatAvailable}, stringArgs(ids)...)
	res, err := q.ExecContext(ctx,
		`UPDATE seats SET status = ?, hold_id = ?, hold_expires_at = ?
		  WHERE status = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseByHoldTx returns every seat still held by holdID to available.
func (r *SeatRepo) ReleaseByHoldTx(ctx context.Context, q DBTX, holdID string) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE seats SET status = ?, hold_id = NULL, hold_expires_at = NULL
		  WHERE hold_id = ? AND status = ?`,
		model.SeatAvailable, holdID, model.SeatHeld)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SellByHoldTx moves the given seats from held-by-holdID to sold.  The
// caller must compare the returned count with len(ids).
func (r *SeatRepo) SellByHoldTx(ctx context.Context, q DBTX, holdID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{model.SeatSold, holdID, model.SeatHeld}, stringArgs(ids)...)
	res, err := q.ExecContext(ctx,
		`UPDATE seats SET status = ?, hold_expires_at = NULL
		  WHERE hold_id = ? AND status = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SeatRepo) query(ctx context.Context, q DBTX, query string, args ...any) ([]model.Seat, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var (
			s       model.Seat
			holdID  sql.NullString
			expires sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.EventID, &s.SectionID, &s.Row, &s.SeatNumber, &s.PriceCents, &s.Category, &s.Status, &holdID, &expires); err != nil {
			return nil, err
		}
		s.HoldID = stringPtr(holdID)
		if expires.Valid {
			v := expires.Int64
			s.HoldExpiresAt = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
