package memrepo

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository"
)

func (t *tx) GetConflict(_ context.Context, id uint64) (model.Conflict, error) {
	c, ok := t.st.conflicts[id]
	if !ok {
		return model.Conflict{}, repository.ErrConflictNotFound
	}
	return c, nil
}

func (t *tx) FindOpenConflict(_ context.Context, larpID uint64, key string) (*model.Conflict, error) {
	for _, c := range t.st.conflicts {
		if c.LarpID == larpID && !c.Resolved && c.Key() == key {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertConflict(ctx context.Context, c *model.Conflict) (bool, error) {
	open, err := t.FindOpenConflict(ctx, c.LarpID, c.Key())
	if err != nil {
		return false, err
	}
	if open != nil {
		return false, nil
	}
	c.ID = t.st.id()
	t.st.conflicts[c.ID] = *c
	return true, nil
}

func (t *tx) ListUnresolvedConflicts(_ context.Context, larpID uint64) ([]model.Conflict, error) {
	return t.conflicts(func(c model.Conflict) bool { return c.LarpID == larpID && !c.Resolved }), nil
}

func (t *tx) ListConflictsForEvent(_ context.Context, eventID uint64) ([]model.Conflict, error) {
	return t.conflicts(func(c model.Conflict) bool { return c.References(eventID) }), nil
}

func (t *tx) ResolveConflict(_ context.Context, id uint64, note *string, by *uint64, at time.Time) error {
	c, ok := t.st.conflicts[id]
	if !ok {
		return repository.ErrConflictNotFound
	}
	if c.Resolved {
		return nil
	}
	c.Resolved = true
	c.ResolutionNote = note
	c.ResolvedBy = by
	c.ResolvedAt = &at
	t.st.conflicts[id] = c
	return nil
}

func (t *tx) conflicts(keep func(model.Conflict) bool) []model.Conflict {
	var out []model.Conflict
	for _, c := range t.st.conflicts {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
