// Package memrepo is an in-memory implementation of scheduler.Store.  It
// serializes every transaction behind one mutex and applies a
// transaction's writes only when it succeeds, which gives the same
// all-or-nothing behaviour as the MySQL store.  It backs tests and local
// demos.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// Store keeps all planning data in process memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// New returns an empty store.  now defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{st: newState(), now: now}
}

// InTx runs fn against a private copy of the data and publishes the copy
// only when fn returns nil.
func (s *Store) InTx(ctx context.Context, larpID uint64, fn func(tx scheduler.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if larpID != 0 {
		if _, ok := s.st.larps[larpID]; !ok {
			return repository.ErrLarpNotFound
		}
	}
	work := s.st.clone()
	if err := fn(&tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// ConflictCount returns the number of stored conflict records.
func (s *Store) ConflictCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.conflicts)
}

type state struct {
	nextID    uint64
	larps     map[uint64]model.Larp
	locations map[uint64]model.Location
	events    map[uint64]model.ScheduledEvent
	resources map[uint64]model.PlanningResource
	bookings  map[uint64]model.ResourceBooking
	conflicts map[uint64]model.Conflict
}

func newState() *state {
	return &state{
		larps:     map[uint64]model.Larp{},
		locations: map[uint64]model.Location{},
		events:    map[uint64]model.ScheduledEvent{},
		resources: map[uint64]model.PlanningResource{},
		bookings:  map[uint64]model.ResourceBooking{},
		conflicts: map[uint64]model.Conflict{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.larps {
		c.larps[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.events {
		v.CharacterIDs = append([]uint64(nil), v.CharacterIDs...)
		c.events[k] = v
	}
	for k, v := range s.resources {
		c.resources[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.conflicts {
		c.conflicts[k] = v
	}
	return c
}

func (s *state) id() uint64 {
	s.nextID++
	return s.nextID
}

// tx implements scheduler.Tx over one working copy.
type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) stamp() time.Time { return t.now().UTC() }

func (t *tx) GetLarp(_ context.Context, id uint64) (model.Larp, error) {
	l, ok := t.st.larps[id]
	if !ok {
		return model.Larp{}, repository.ErrLarpNotFound
	}
	return l, nil
}

func (t *tx) ListLarps(_ context.Context) ([]model.Larp, error) {
	out := make([]model.Larp, 0, len(t.st.larps))
	for _, l := range t.st.larps {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) CreateLarp(_ context.Context, l *model.Larp) error {
	l.ID = t.st.id()
	l.CreatedAt = t.stamp()
	t.st.larps[l.ID] = *l
	return nil
}

func (t *tx) GetLocation(_ context.Context, id uint64) (model.Location, error) {
	l, ok := t.st.locations[id]
	if !ok {
		return model.Location{}, repository.ErrLocationNotFound
	}
	return l, nil
}

func (t *tx) ListLocations(_ context.Context, larpID uint64) ([]model.Location, error) {
	var out []model.Location
	for _, l := range t.st.locations {
		if l.LarpID == larpID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) CreateLocation(_ context.Context, l *model.Location) error {
	l.ID = t.st.id()
	l.CreatedAt = t.stamp()
	t.st.locations[l.ID] = *l
	return nil
}
