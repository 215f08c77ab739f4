package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository"
)

// ConflictLedger is the durable record of detected conflicts.
type ConflictLedger struct {
	tx Tx
}

// Conflicts returns the conflict ledger bound to tx.
func Conflicts(tx Tx) ConflictLedger {
	return ConflictLedger{tx: tx}
}

// ListUnresolved returns the LARP's open conflicts, most severe first and
// most recently detected first within a severity.
func (l ConflictLedger) ListUnresolved(ctx context.Context, larpID uint64) ([]model.Conflict, error) {
	cs, err := l.tx.ListUnresolvedConflicts(ctx, larpID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if !a.DetectedAt.Equal(b.DetectedAt) {
			return a.DetectedAt.After(b.DetectedAt)
		}
		return a.ID > b.ID
	})
	return cs, nil
}

// ListForEvent returns every conflict referencing the event, resolved ones
// included, most severe first and unresolved before resolved.
func (l ConflictLedger) ListForEvent(ctx context.Context, eventID uint64) ([]model.Conflict, error) {
	cs, err := l.tx.ListConflictsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Resolved != b.Resolved {
			return !a.Resolved
		}
		if !a.DetectedAt.Equal(b.DetectedAt) {
			return a.DetectedAt.After(b.DetectedAt)
		}
		return a.ID > b.ID
	})
	return cs, nil
}

// Resolve marks a conflict resolved.  Resolving an already resolved
// conflict returns it unchanged, keeping the original note and time.
func (l ConflictLedger) Resolve(ctx context.Context, larpID, conflictID uint64, note *string, by *uint64, at time.Time) (model.Conflict, error) {
	c, err := l.tx.GetConflict(ctx, conflictID)
	if err != nil {
		return model.Conflict{}, err
	}
	if c.LarpID != larpID {
		return model.Conflict{}, repository.ErrConflictNotFound
	}
	if c.Resolved {
		return c, nil
	}
	at = at.UTC()
	if err := l.tx.ResolveConflict(ctx, conflictID, note, by, at); err != nil {
		return model.Conflict{}, err
	}
	c.Resolved = true
	c.ResolutionNote = note
	c.ResolvedAt = &at
	c.ResolvedBy = by
	return c, nil
}

// Reconcile writes the detector's findings.  A finding whose key already
// has an unresolved record is skipped; otherwise a new unresolved record
// is inserted, even if resolved records with the same key exist.  Nothing
// is ever resolved or deleted here.  The inserted conflicts are returned.
func (l ConflictLedger) Reconcile(ctx context.Context, larpID uint64, found []model.Conflict, now time.Time) ([]model.Conflict, error) {
	var inserted []model.Conflict
	for _, c := range found {
		if c.LarpID != larpID {
			return nil, fmt.Errorf("conflict %s belongs to larp %d, not %d", c.Key(), c.LarpID, larpID)
		}
		if err := model.ValidateSubjects(c.Type, c.Subjects); err != nil {
			return nil, err
		}
		open, err := l.tx.FindOpenConflict(ctx, larpID, c.Key())
		if err != nil {
			return nil, fmt.Errorf("find open conflict %s: %w", c.Key(), err)
		}
		if open != nil {
			continue
		}
		c.ID = 0
		c.DetectedAt = now.UTC()
		c.Resolved = false
		c.ResolutionNote, c.ResolvedAt, c.ResolvedBy = nil, nil, nil
		ok, err := l.tx.InsertConflict(ctx, &c)
		if err != nil {
			return nil, fmt.Errorf("insert conflict %s: %w", c.Key(), err)
		}
		// ok is false when a concurrent pass inserted the same key first.
		if ok {
			inserted = append(inserted, c)
		}
	}
	return inserted, nil
}
