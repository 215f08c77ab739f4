package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// EventRepo manages scheduled_events and the character links stored in
// scheduled_event_characters.  Events are never deleted; cancellation is a
// status change so the conflict history keeps its references.
type EventRepo struct {
	db  Querier
	now func() time.Time
}

const eventColumns = `id, larp_id, title, start_time, end_time, location_id, status,
       participant_count, thread_id, created_at, updated_at`

func scanEvent(s interface{ Scan(...any) error }) (model.ScheduledEvent, error) {
	var e model.ScheduledEvent
	var location, thread sql.NullInt64
	var status string
	err := s.Scan(&e.ID, &e.LarpID, &e.Title, &e.StartTime, &e.EndTime, &location, &status,
		&e.ParticipantCount, &thread, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.ScheduledEvent{}, err
	}
	e.Status = model.EventStatus(status)
	e.LocationID = uint64Ptr(location)
	e.ThreadID = uint64Ptr(thread)
	e.StartTime, e.EndTime = e.StartTime.UTC(), e.EndTime.UTC()
	e.CharacterIDs = []uint64{}
	return e, nil
}

// GetEvent returns one event with its characters, or ErrEventNotFound.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (model.ScheduledEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM scheduled_events WHERE id = ?`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ScheduledEvent{}, ErrEventNotFound
		}
		return model.ScheduledEvent{}, err
	}
	events := []model.ScheduledEvent{e}
	if err := r.loadCharacters(ctx, events); err != nil {
		return model.ScheduledEvent{}, err
	}
	return events[0], nil
}

// ListEvents returns every event of the LARP, cancelled ones included,
// ordered by start time.
func (r *EventRepo) ListEvents(ctx context.Context, larpID uint64) ([]model.ScheduledEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM scheduled_events WHERE larp_id = ? ORDER BY start_time, id`
	return r.query(ctx, q, larpID)
}

// FindOverlappingEvents returns non-cancelled events of the LARP whose
// [start_time, end_time) overlaps rng, excluding excludeEventID.
func (r *EventRepo) FindOverlappingEvents(ctx context.Context, larpID uint64, rng model.TimeRange, excludeEventID uint64) ([]model.ScheduledEvent, error) {
	q := `SELECT ` + eventColumns + `
          FROM scheduled_events
          WHERE larp_id = ? AND id <> ? AND status <> 'CANCELLED'
            AND start_time < ? AND ? < end_time
          ORDER BY start_time, id`
	return r.query(ctx, q, larpID, excludeEventID, rng.End.UTC(), rng.Start.UTC())
}

// FindLocationOccupancy returns non-cancelled events held at the location
// during rng.
func (r *EventRepo) FindLocationOccupancy(ctx context.Context, locationID uint64, rng model.TimeRange) ([]model.ScheduledEvent, error) {
	q := `SELECT ` + eventColumns + `
          FROM scheduled_events
          WHERE location_id = ? AND status <> 'CANCELLED'
            AND start_time < ? AND ? < end_time
          ORDER BY start_time, id`
	return r.query(ctx, q, locationID, rng.End.UTC(), rng.Start.UTC())
}

// CreateEvent inserts e and its character links and fills in id and
// timestamps.
func (r *EventRepo) CreateEvent(ctx context.Context, e *model.ScheduledEvent) error {
	const q = `INSERT INTO scheduled_events
          (larp_id, title, start_time, end_time, location_id, status, participant_count, thread_id, created_at, updated_at)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := r.now()
	res, err := r.db.ExecContext(ctx, q, e.LarpID, e.Title, e.StartTime.UTC(), e.EndTime.UTC(),
		nullUint64(e.LocationID), string(e.Status), e.ParticipantCount, nullUint64(e.ThreadID), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.CreatedAt, e.UpdatedAt = now, now
	return r.insertCharacters(ctx, e.ID, e.CharacterIDs)
}

// UpdateEvent overwrites the mutable columns of e and replaces its
// character links.  ErrEventNotFound is returned when no row matches.
func (r *EventRepo) UpdateEvent(ctx context.Context, e *model.ScheduledEvent) error {
	const q = `UPDATE scheduled_events
          SET title = ?, start_time = ?, end_time = ?, location_id = ?, status = ?,
              participant_count = ?, thread_id = ?, updated_at = ?
          WHERE id = ?`
	now := r.now()
	res, err := r.db.ExecContext(ctx, q, e.Title, e.StartTime.UTC(), e.EndTime.UTC(), nullUint64(e.LocationID),
		string(e.Status), e.ParticipantCount, nullUint64(e.ThreadID), now, e.ID)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows for a no-op update, so only a missing
	// row is an error here.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var id uint64
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM scheduled_events WHERE id = ?`, e.ID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEventNotFound
			}
			return err
		}
	}
	e.UpdatedAt = now
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_event_characters WHERE event_id = ?`, e.ID); err != nil {
		return err
	}
	return r.insertCharacters(ctx, e.ID, e.CharacterIDs)
}

// insertCharacters writes all links in a single statement.  An empty
// slice is a no-op.
func (r *EventRepo) insertCharacters(ctx context.Context, eventID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `INSERT INTO scheduled_event_characters (event_id, character_id) VALUES `
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, eventID, id)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *EventRepo) query(ctx context.Context, q string, args ...any) ([]model.ScheduledEvent, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []model.ScheduledEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := r.loadCharacters(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadCharacters fills CharacterIDs for every event with one query.
func (r *EventRepo) loadCharacters(ctx context.Context, events []model.ScheduledEvent) error {
	if len(events) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(events))
	args := make([]any, 0, len(events))
	for i, e := range events {
		idx[e.ID] = i
		args = append(args, e.ID)
	}
	q := `SELECT event_id, character_id FROM scheduled_event_characters
          WHERE event_id IN (` + placeholders(len(args)) + `) ORDER BY event_id, character_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var eventID, characterID uint64
		if err := rows.Scan(&eventID, &characterID); err != nil {
			return err
		}
		if i, ok := idx[eventID]; ok {
			events[i].CharacterIDs = append(events[i].CharacterIDs, characterID)
		}
	}
	return rows.Err()
}
