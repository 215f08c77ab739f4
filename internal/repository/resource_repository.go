package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// ResourceRepo manages the planning_resources catalog.  available_from and
// available_until are optional bounds; NULL means unbounded on that side.
type ResourceRepo struct {
	db  Querier
	now func() time.Time
}

const resourceColumns = `id, larp_id, type, name, shareable, available_from, available_until, created_at`

func scanResource(s interface{ Scan(...any) error }) (model.PlanningResource, error) {
	var p model.PlanningResource
	var typ string
	var from, until sql.NullTime
	if err := s.Scan(&p.ID, &p.LarpID, &typ, &p.Name, &p.Shareable, &from, &until, &p.CreatedAt); err != nil {
		return model.PlanningResource{}, err
	}
	p.Type = model.ResourceType(typ)
	p.AvailableFrom = timePtr(from)
	p.AvailableUntil = timePtr(until)
	return p, nil
}

// GetResource returns one resource or ErrResourceNotFound.
func (r *ResourceRepo) GetResource(ctx context.Context, id uint64) (model.PlanningResource, error) {
	q := `SELECT ` + resourceColumns + ` FROM planning_resources WHERE id = ?`
	p, err := scanResource(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlanningResource{}, ErrResourceNotFound
	}
	return p, err
}

// ListResources returns the LARP's catalog ordered by id.
func (r *ResourceRepo) ListResources(ctx context.Context, larpID uint64) ([]model.PlanningResource, error) {
	q := `SELECT ` + resourceColumns + ` FROM planning_resources WHERE larp_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, larpID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PlanningResource
	for rows.Next() {
		p, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateResource inserts p and fills in its id and creation time.
func (r *ResourceRepo) CreateResource(ctx context.Context, p *model.PlanningResource) error {
	const q = `INSERT INTO planning_resources
          (larp_id, type, name, shareable, available_from, available_until, created_at)
          VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := r.now()
	res, err := r.db.ExecContext(ctx, q, p.LarpID, string(p.Type), p.Name, p.Shareable,
		nullTime(p.AvailableFrom), nullTime(p.AvailableUntil), now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.CreatedAt = now
	return nil
}

// DeleteResource removes the resource and every booking of it.  Conflict
// records that mention it are kept.
func (r *ResourceRepo) DeleteResource(ctx context.Context, id uint64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM resource_bookings WHERE resource_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM planning_resources WHERE id = ?`, id)
	return err
}
