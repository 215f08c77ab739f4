package memrepo

import (
	"context"
	"sort"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository"
)

func (t *tx) GetEvent(_ context.Context, id uint64) (model.ScheduledEvent, error) {
	e, ok := t.st.events[id]
	if !ok {
		return model.ScheduledEvent{}, repository.ErrEventNotFound
	}
	return copyEvent(e), nil
}

func (t *tx) ListEvents(_ context.Context, larpID uint64) ([]model.ScheduledEvent, error) {
	return t.events(func(e model.ScheduledEvent) bool { return e.LarpID == larpID }), nil
}

func (t *tx) FindOverlappingEvents(_ context.Context, larpID uint64, r model.TimeRange, excludeEventID uint64) ([]model.ScheduledEvent, error) {
	return t.events(func(e model.ScheduledEvent) bool {
		return e.LarpID == larpID && e.ID != excludeEventID && !e.Cancelled() && e.Range().Overlaps(r)
	}), nil
}

func (t *tx) FindLocationOccupancy(_ context.Context, locationID uint64, r model.TimeRange) ([]model.ScheduledEvent, error) {
	return t.events(func(e model.ScheduledEvent) bool {
		return e.LocationID != nil && *e.LocationID == locationID && !e.Cancelled() && e.Range().Overlaps(r)
	}), nil
}

func (t *tx) CreateEvent(_ context.Context, e *model.ScheduledEvent) error {
	e.ID = t.st.id()
	e.CreatedAt = t.stamp()
	e.UpdatedAt = e.CreatedAt
	t.st.events[e.ID] = copyEvent(*e)
	return nil
}

func (t *tx) UpdateEvent(_ context.Context, e *model.ScheduledEvent) error {
	old, ok := t.st.events[e.ID]
	if !ok {
		return repository.ErrEventNotFound
	}
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = t.stamp()
	t.st.events[e.ID] = copyEvent(*e)
	return nil
}

// events returns matching events ordered by start time then id.
func (t *tx) events(keep func(model.ScheduledEvent) bool) []model.ScheduledEvent {
	var out []model.ScheduledEvent
	for _, e := range t.st.events {
		if keep(e) {
			out = append(out, copyEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyEvent(e model.ScheduledEvent) model.ScheduledEvent {
	e.CharacterIDs = append([]uint64{}, e.CharacterIDs...)
	return e
}
