package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// LarpRepo reads and writes the larps table.
type LarpRepo struct {
	db  Querier
	now func() time.Time
}

// GetLarp returns the LARP with the given id or ErrLarpNotFound.
func (r *LarpRepo) GetLarp(ctx context.Context, id uint64) (model.Larp, error) {
	const q = `SELECT id, name, created_at FROM larps WHERE id = ?`
	var l model.Larp
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Larp{}, ErrLarpNotFound
		}
		return model.Larp{}, err
	}
	return l, nil
}

// ListLarps returns every LARP ordered by id.
func (r *LarpRepo) ListLarps(ctx context.Context) ([]model.Larp, error) {
	const q = `SELECT id, name, created_at FROM larps ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Larp
	for rows.Next() {
		var l model.Larp
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLarp inserts l and fills in its id and creation time.
func (r *LarpRepo) CreateLarp(ctx context.Context, l *model.Larp) error {
	const q = `INSERT INTO larps (name, created_at) VALUES (?, ?)`
	now := r.now()
	res, err := r.db.ExecContext(ctx, q, l.Name, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	l.CreatedAt = now
	return nil
}

// LocationRepo reads and writes the locations table.  A NULL capacity
// means the location is not capacity-bound.
type LocationRepo struct {
	db  Querier
	now func() time.Time
}

const locationColumns = `id, larp_id, name, capacity, created_at`

func scanLocation(s interface{ Scan(...any) error }) (model.Location, error) {
	var l model.Location
	var capacity sql.NullInt64
	if err := s.Scan(&l.ID, &l.LarpID, &l.Name, &capacity, &l.CreatedAt); err != nil {
		return model.Location{}, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		l.Capacity = &c
	}
	return l, nil
}

// GetLocation returns one location or ErrLocationNotFound.
func (r *LocationRepo) GetLocation(ctx context.Context, id uint64) (model.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE id = ?`
	l, err := scanLocation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Location{}, ErrLocationNotFound
	}
	return l, err
}

// ListLocations returns the LARP's locations ordered by id.
func (r *LocationRepo) ListLocations(ctx context.Context, larpID uint64) ([]model.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE larp_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, larpID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLocation inserts l and fills in its id and creation time.
func (r *LocationRepo) CreateLocation(ctx context.Context, l *model.Location) error {
	const q = `INSERT INTO locations (larp_id, name, capacity, created_at) VALUES (?, ?, ?, ?)`
	now := r.now()
	res, err := r.db.ExecContext(ctx, q, l.LarpID, l.Name, nullInt(l.Capacity), now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	l.CreatedAt = now
	return nil
}
