package memrepo

import (
	"context"
	"sort"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository"
)

func (t *tx) GetResource(_ context.Context, id uint64) (model.PlanningResource, error) {
	r, ok := t.st.resources[id]
	if !ok {
		return model.PlanningResource{}, repository.ErrResourceNotFound
	}
	return r, nil
}

func (t *tx) ListResources(_ context.Context, larpID uint64) ([]model.PlanningResource, error) {
	var out []model.PlanningResource
	for _, r := range t.st.resources {
		if r.LarpID == larpID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) CreateResource(_ context.Context, r *model.PlanningResource) error {
	r.ID = t.st.id()
	r.CreatedAt = t.stamp()
	t.st.resources[r.ID] = *r
	return nil
}

func (t *tx) DeleteResource(_ context.Context, id uint64) error {
	delete(t.st.resources, id)
	for bid, b := range t.st.bookings {
		if b.ResourceID == id {
			delete(t.st.bookings, bid)
		}
	}
	return nil
}

func (t *tx) GetBooking(_ context.Context, id uint64) (model.ResourceBooking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return model.ResourceBooking{}, repository.ErrBookingNotFound
	}
	return t.effective(b), nil
}

func (t *tx) CreateBooking(_ context.Context, b *model.ResourceBooking) error {
	if _, ok := t.st.events[b.EventID]; !ok {
		return repository.ErrEventNotFound
	}
	if _, ok := t.st.resources[b.ResourceID]; !ok {
		return repository.ErrResourceNotFound
	}
	b.ID = t.st.id()
	b.CreatedAt = t.stamp()
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *tx) DeleteBooking(_ context.Context, id uint64) error {
	delete(t.st.bookings, id)
	return nil
}

func (t *tx) DeleteBookingsForEvent(_ context.Context, eventID uint64) (int64, error) {
	var n int64
	for id, b := range t.st.bookings {
		if b.EventID == eventID {
			delete(t.st.bookings, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) FindBookingsByEvent(_ context.Context, eventID uint64) ([]model.ResourceBooking, error) {
	return t.bookings(func(b model.ResourceBooking) bool { return b.EventID == eventID }), nil
}

func (t *tx) FindBookingsByResource(_ context.Context, resourceID uint64) ([]model.ResourceBooking, error) {
	return t.bookings(func(b model.ResourceBooking) bool { return b.ResourceID == resourceID }), nil
}

func (t *tx) FindBookingsForResource(_ context.Context, resourceID uint64, r model.TimeRange, excludeEventID uint64) ([]model.ResourceBooking, error) {
	return t.bookings(func(b model.ResourceBooking) bool {
		if b.ResourceID != resourceID || b.EventID == excludeEventID {
			return false
		}
		ev, ok := t.st.events[b.EventID]
		return ok && !ev.Cancelled() && b.Range.Overlaps(r)
	}), nil
}

// bookings filters on the effective range and orders by id.
func (t *tx) bookings(keep func(model.ResourceBooking) bool) []model.ResourceBooking {
	var out []model.ResourceBooking
	for _, b := range t.st.bookings {
		if b = t.effective(b); keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// effective fills Range from the event for whole-event bookings.
func (t *tx) effective(b model.ResourceBooking) model.ResourceBooking {
	if !b.Explicit {
		if ev, ok := t.st.events[b.EventID]; ok {
			b.Range = ev.Range()
		}
	}
	return b
}
