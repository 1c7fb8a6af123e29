package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// WaitingListRepo manages waiting_list rows.  Entries are never deleted
// except when their event is cancelled; terminal states are kept as
// history.
type WaitingListRepo struct {
	db *sql.DB
}

// NewWaitingListRepo returns a WaitingListRepo bound to db.
func NewWaitingListRepo(db *sql.DB) *WaitingListRepo { return &WaitingListRepo{db: db} }

const entryColumns = `id, event_id, user_id, status, offer_expires_at, created_at`

// CreateTx inserts e.  ID and CreatedAt must already be set.
func (r *WaitingListRepo) CreateTx(ctx context.Context, q DBTX, e *model.WaitingListEntry) error {
	created := Millis(e.CreatedAt)
	_, err := q.ExecContext(ctx,
		`INSERT INTO waiting_list (id, event_id, user_id, status, offer_expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EventID, e.UserID, e.Status, nullMillis(e.OfferExpiresAt), created, created,
	)
	return err
}

// Get loads one entry.
func (r *WaitingListRepo) Get(ctx context.Context, q DBTX, id string) (*model.WaitingListEntry, error) {
	rows, err := r.query(ctx, q, `SELECT `+entryColumns+` FROM waiting_list WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEntryNotFound
	}
	return &rows[0], nil
}

// FindActive returns the user's non-expired entry for the event, or
// ErrEntryNotFound.
func (r *WaitingListRepo) FindActive(ctx context.Context, q DBTX, eventID, userID string) (*model.WaitingListEntry, error) {
	rows, err := r.query(ctx, q,
		`SELECT `+entryColumns+` FROM waiting_list
		  WHERE event_id = ? AND user_id = ? AND status <> ?
		  ORDER BY created_at DESC LIMIT 1`,
		eventID, userID, model.EntryExpired)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEntryNotFound
	}
	return &rows[0], nil
}

// LatestCreatedAt returns the newest created_at of the event's entries in
// unix milliseconds, or 0 when the event has none.
func (r *WaitingListRepo) LatestCreatedAt(ctx context.Context, q DBTX, eventID string) (int64, error) {
	var ms sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT MAX(created_at) FROM waiting_list WHERE event_id = ?`, eventID).Scan(&ms)
	return ms.Int64, err
}

// CountAhead counts the event's waiting or offered entries created
// strictly before createdAt.
func (r *WaitingListRepo) CountAhead(ctx context.Context, q DBTX, eventID string, createdAt time.Time) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waiting_list
		  WHERE event_id = ? AND status IN (?, ?) AND created_at < ?`,
		eventID, model.EntryWaiting, model.EntryOffered, Millis(createdAt),
	).Scan(&n)
	return n, err
}

// CountActive counts the event's waiting or offered entries, lapsed
// offers included.
func (r *WaitingListRepo) CountActive(ctx context.Context, q DBTX, eventID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waiting_list WHERE event_id = ? AND status IN (?, ?)`,
		eventID, model.EntryWaiting, model.EntryOffered,
	).Scan(&n)
	return n, err
}

// CountLiveOffers counts offered entries whose window ends after nowMs.
func (r *WaitingListRepo) CountLiveOffers(ctx context.Context, q DBTX, eventID string, nowMs int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waiting_list
		  WHERE event_id = ? AND status = ? AND offer_expires_at > ?`,
		eventID, model.EntryOffered, nowMs,
	).Scan(&n)
	return n, err
}

// OldestWaiting returns up to limit waiting entries in creation order.
func (r *WaitingListRepo) OldestWaiting(ctx context.Context, q DBTX, eventID string, limit int) ([]model.WaitingListEntry, error) {
	return r.query(ctx, q,
		`SELECT `+entryColumns+` FROM waiting_list
		  WHERE event_id = ? AND status = ?
		  ORDER BY created_at, id LIMIT ?`,
		eventID, model.EntryWaiting, limit)
}

// OfferTx moves a waiting entry to offered with the given deadline.  It
// reports false when the entry was no longer waiting.
func (r *WaitingListRepo) OfferTx(ctx context.Context, q DBTX, id string, expiresAt, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE waiting_list SET status = ?, offer_expires_at = ?, updated_at = ?
		  WHERE id = ? AND status = ?`,
		model.EntryOffered, Millis(expiresAt), Millis(now), id, model.EntryWaiting)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// TransitionTx moves an entry from one status to another and clears its
// offer deadline.  It reports false when the entry was not in from.
func (r *WaitingListRepo) TransitionTx(ctx context.Context, q DBTX, id, from, to string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE waiting_list SET status = ?, offer_expires_at = NULL, updated_at = ?
		  WHERE id = ? AND status = ?`,
		to, Millis(now), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListByUser returns the user's entries across events, newest first.
func (r *WaitingListRepo) ListByUser(ctx context.Context, q DBTX, userID string) ([]model.WaitingListEntry, error) {
	return r.query(ctx, q,
		`SELECT `+entryColumns+` FROM waiting_list WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID)
}

// ListOverdueOffers returns offered entries whose window closed at or
// before nowMs.
func (r *WaitingListRepo) ListOverdueOffers(ctx context.Context, q DBTX, nowMs int64, limit int) ([]model.WaitingListEntry, error) {
	return r.query(ctx, q,
		`SELECT `+entryColumns+` FROM waiting_list
		  WHERE status = ? AND offer_expires_at <= ?
		  ORDER BY offer_expires_at, id LIMIT ?`,
		model.EntryOffered, nowMs, limit)
}

// DeleteByEventTx removes every entry of the event.
func (r *WaitingListRepo) DeleteByEventTx(ctx context.Context, q DBTX, eventID string) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM waiting_list WHERE event_id = ?`, eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *WaitingListRepo) query(ctx context.Context, q DBTX, query string, args ...any) ([]model.WaitingListEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WaitingListEntry
	for rows.Next() {
		var (
			e       model.WaitingListEntry
			expires sql.NullInt64
			created int64
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.Status, &expires, &created); err != nil {
			return nil, err
		}
		e.OfferExpiresAt = timePtr(expires)
		e.CreatedAt = FromMillis(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
