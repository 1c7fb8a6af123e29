package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// SeatingPlanRepo stores seating plans.  Sections are kept as a JSON
// document because they are only ever read and written whole.
type SeatingPlanRepo struct {
	db *sql.DB
}

// NewSeatingPlanRepo returns a SeatingPlanRepo bound to db.
func NewSeatingPlanRepo(db *sql.DB) *SeatingPlanRepo { return &SeatingPlanRepo{db: db} }

// Create inserts p.  ID and CreatedAt must already be set.
func (r *SeatingPlanRepo) Create(ctx context.Context, q DBTX, p *model.SeatingPlan) error {
	doc, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO seating_plans (id, name, sections, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, string(doc), Millis(p.CreatedAt),
	)
	return err
}

// Get loads one plan.
func (r *SeatingPlanRepo) Get(ctx context.Context, q DBTX, id string) (*model.SeatingPlan, error) {
	var (
		p       model.SeatingPlan
		doc     string
		created int64
	)
	err := q.QueryRowContext(ctx, `SELECT id, name, sections, created_at FROM seating_plans WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &doc, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(doc), &p.Sections); err != nil {
		return nil, fmt.Errorf("decode sections of plan %s: %w", id, err)
	}
	p.CreatedAt = FromMillis(created)
	return &p, nil
}
