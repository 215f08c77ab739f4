package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// ConflictRepo manages scheduled_event_conflicts.  open_key holds the
// conflict key while the record is unresolved and is cleared on
// resolution; a unique (larp_id, open_key) index then guarantees at most
// one unresolved record per key even under concurrent passes.
type ConflictRepo struct {
	db Querier
}

const conflictColumns = `id, larp_id, type, severity, subject_kind, event1_id, event2_id, resource_id,
       location_id, detail, detected_at, resolved, resolution_note, resolved_at, resolved_by`

func scanConflict(s interface{ Scan(...any) error }) (model.Conflict, error) {
	var c model.Conflict
	var typ, kind string
	var sev int
	var event1 uint64
	var event2, resource, location, resolvedBy sql.NullInt64
	var note sql.NullString
	var resolvedAt sql.NullTime
	err := s.Scan(&c.ID, &c.LarpID, &typ, &sev, &kind, &event1, &event2, &resource, &location,
		&c.Detail, &c.DetectedAt, &c.Resolved, &note, &resolvedAt, &resolvedBy)
	if err != nil {
		return model.Conflict{}, err
	}
	subj, err := model.SubjectsFromColumns(model.SubjectKind(kind), event1, uint64Ptr(event2), uint64Ptr(resource), uint64Ptr(location))
	if err != nil {
		return model.Conflict{}, fmt.Errorf("conflict %d: %w", c.ID, err)
	}
	c.Type = model.ConflictType(typ)
	c.Severity = model.Severity(sev)
	c.Subjects = subj
	c.DetectedAt = c.DetectedAt.UTC()
	c.ResolutionNote = stringPtr(note)
	c.ResolvedAt = timePtr(resolvedAt)
	c.ResolvedBy = uint64Ptr(resolvedBy)
	return c, nil
}

// GetConflict returns one conflict or ErrConflictNotFound.
func (r *ConflictRepo) GetConflict(ctx context.Context, id uint64) (model.Conflict, error) {
	q := `SELECT ` + conflictColumns + ` FROM scheduled_event_conflicts WHERE id = ?`
	c, err := scanConflict(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conflict{}, ErrConflictNotFound
	}
	return c, err
}

// FindOpenConflict returns the unresolved record with the key, or nil.
func (r *ConflictRepo) FindOpenConflict(ctx context.Context, larpID uint64, key string) (*model.Conflict, error) {
	q := `SELECT ` + conflictColumns + ` FROM scheduled_event_conflicts WHERE larp_id = ? AND open_key = ?`
	c, err := scanConflict(r.db.QueryRowContext(ctx, q, larpID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertConflict stores c as an unresolved record.  It reports false,
// without error, when an unresolved record with the same key already
// exists.
func (r *ConflictRepo) InsertConflict(ctx context.Context, c *model.Conflict) (bool, error) {
	const q = `INSERT INTO scheduled_event_conflicts
          (larp_id, type, severity, subject_kind, event1_id, event2_id, resource_id, location_id,
           detail, detected_at, resolved, open_key)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
          ON DUPLICATE KEY UPDATE id = id`
	kind, event1, event2, resource, location := model.SubjectColumns(c.Subjects)
	res, err := r.db.ExecContext(ctx, q, c.LarpID, string(c.Type), int(c.Severity), string(kind), event1,
		nullUint64(event2), nullUint64(resource), nullUint64(location), c.Detail, c.DetectedAt.UTC(), c.Key())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	c.ID = uint64(id)
	return true, nil
}

// ListUnresolvedConflicts returns the LARP's open records.
func (r *ConflictRepo) ListUnresolvedConflicts(ctx context.Context, larpID uint64) ([]model.Conflict, error) {
	q := `SELECT ` + conflictColumns + ` FROM scheduled_event_conflicts
          WHERE larp_id = ? AND resolved = 0 ORDER BY severity DESC, detected_at DESC, id DESC`
	return r.query(ctx, q, larpID)
}

// ListConflictsForEvent returns every record, resolved or not, that
// references the event.
func (r *ConflictRepo) ListConflictsForEvent(ctx context.Context, eventID uint64) ([]model.Conflict, error) {
	q := `SELECT ` + conflictColumns + ` FROM scheduled_event_conflicts
          WHERE event1_id = ? OR event2_id = ? ORDER BY id`
	return r.query(ctx, q, eventID, eventID)
}

// ResolveConflict marks an unresolved record resolved and frees its key.
// Resolving an already resolved record changes nothing.
func (r *ConflictRepo) ResolveConflict(ctx context.Context, id uint64, note *string, by *uint64, at time.Time) error {
	const q = `UPDATE scheduled_event_conflicts
          SET resolved = 1, resolution_note = ?, resolved_at = ?, resolved_by = ?, open_key = NULL
          WHERE id = ? AND resolved = 0`
	_, err := r.db.ExecContext(ctx, q, nullString(note), at.UTC(), nullUint64(by), id)
	return err
}

func (r *ConflictRepo) query(ctx context.Context, q string, args ...any) ([]model.Conflict, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
