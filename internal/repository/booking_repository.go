package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// BookingRepo manages resource_bookings.  starts_at/ends_at are NULL for
// a booking that covers its whole event; reads then report the event's
// current range so the booking follows reschedules.
type BookingRepo struct {
	db  Querier
	now func() time.Time
}

const bookingSelect = `SELECT b.id, b.larp_id, b.resource_id, b.event_id, b.starts_at, b.ends_at,
       e.start_time, e.end_time, b.created_at
     FROM resource_bookings b
     JOIN scheduled_events e ON e.id = b.event_id`

func scanBooking(s interface{ Scan(...any) error }) (model.ResourceBooking, error) {
	var b model.ResourceBooking
	var startsAt, endsAt sql.NullTime
	var evStart, evEnd time.Time
	err := s.Scan(&b.ID, &b.LarpID, &b.ResourceID, &b.EventID, &startsAt, &endsAt, &evStart, &evEnd, &b.CreatedAt)
	if err != nil {
		return model.ResourceBooking{}, err
	}
	if startsAt.Valid && endsAt.Valid {
		b.Explicit = true
		b.Range = model.NewTimeRange(startsAt.Time, endsAt.Time).UTC()
	} else {
		b.Range = model.NewTimeRange(evStart, evEnd).UTC()
	}
	return b, nil
}

// GetBooking returns one booking or ErrBookingNotFound.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (model.ResourceBooking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ResourceBooking{}, ErrBookingNotFound
	}
	return b, err
}

// CreateBooking inserts b.  A whole-event booking is stored without
// explicit bounds.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.ResourceBooking) error {
	const q = `INSERT INTO resource_bookings (larp_id, resource_id, event_id, starts_at, ends_at, created_at)
          VALUES (?, ?, ?, ?, ?, ?)`
	var start, end any
	if b.Explicit {
		start, end = b.Range.Start.UTC(), b.Range.End.UTC()
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, q, b.LarpID, b.ResourceID, b.EventID, start, end, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt = now
	return nil
}

// DeleteBooking removes a booking.  Deleting a missing id is not an error.
func (r *BookingRepo) DeleteBooking(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM resource_bookings WHERE id = ?`, id)
	return err
}

// DeleteBookingsForEvent removes every booking of the event and reports
// how many were removed.
func (r *BookingRepo) DeleteBookingsForEvent(ctx context.Context, eventID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resource_bookings WHERE event_id = ?`, eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindBookingsByEvent lists the event's bookings ordered by id.
func (r *BookingRepo) FindBookingsByEvent(ctx context.Context, eventID uint64) ([]model.ResourceBooking, error) {
	return r.query(ctx, bookingSelect+` WHERE b.event_id = ? ORDER BY b.id`, eventID)
}

// FindBookingsByResource lists every booking of the resource.
func (r *BookingRepo) FindBookingsByResource(ctx context.Context, resourceID uint64) ([]model.ResourceBooking, error) {
	return r.query(ctx, bookingSelect+` WHERE b.resource_id = ? ORDER BY b.id`, resourceID)
}

// FindBookingsForResource returns bookings of the resource on
// non-cancelled events whose effective range overlaps rng, excluding
// bookings of excludeEventID.
func (r *BookingRepo) FindBookingsForResource(ctx context.Context, resourceID uint64, rng model.TimeRange, excludeEventID uint64) ([]model.ResourceBooking, error) {
	q := bookingSelect + `
     WHERE b.resource_id = ? AND b.event_id <> ? AND e.status <> 'CANCELLED'
       AND COALESCE(b.starts_at, e.start_time) < ? AND ? < COALESCE(b.ends_at, e.end_time)
     ORDER BY b.id`
	return r.query(ctx, q, resourceID, excludeEventID, rng.End.UTC(), rng.Start.UTC())
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...any) ([]model.ResourceBooking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ResourceBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
