package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository/memrepo"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

var day = time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC)

// at parses "15:04" on the test day.
func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	tod, err := time.Parse("15:04", hhmm)
	require.NoError(t, err)
	return day.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *flakyStore
	svc   *scheduler.Service
	larp  model.Larp
}

func newFixture(t *testing.T, opts ...scheduler.Option) *fixture {
	return newFixtureWithPolicy(t, scheduler.DefaultPolicy(), opts...)
}

func newFixtureWithPolicy(t *testing.T, p scheduler.Policy, opts ...scheduler.Option) *fixture {
	t.Helper()
	clock := day
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	store := &flakyStore{Store: memrepo.New(now), failAfter: -1}
	opts = append([]scheduler.Option{scheduler.WithClock(now)}, opts...)
	svc := scheduler.NewService(store, p, opts...)
	ctx := context.Background()
	larp, err := svc.CreateLarp(ctx, "Crown of Ash")
	require.NoError(t, err)
	return &fixture{t: t, ctx: ctx, store: store, svc: svc, larp: larp}
}

func (f *fixture) event(title, start, end string, mods ...func(*scheduler.EventInput)) model.ScheduledEvent {
	f.t.Helper()
	in := scheduler.EventInput{Title: title, StartTime: at(f.t, start), EndTime: at(f.t, end), Status: "CONFIRMED"}
	for _, m := range mods {
		m(&in)
	}
	ev, err := f.svc.CreateEvent(f.ctx, f.larp.ID, in)
	require.NoError(f.t, err)
	return ev
}

func withCharacters(ids ...uint64) func(*scheduler.EventInput) {
	return func(in *scheduler.EventInput) { in.CharacterIDs = ids }
}

func withLocation(id uint64, participants int) func(*scheduler.EventInput) {
	return func(in *scheduler.EventInput) {
		in.LocationID = &id
		in.ParticipantCount = participants
	}
}

func withThread(id uint64) func(*scheduler.EventInput) {
	return func(in *scheduler.EventInput) { in.ThreadID = &id }
}

func (f *fixture) resource(typ, name string, shareable bool) model.PlanningResource {
	f.t.Helper()
	r, err := f.svc.CreateResource(f.ctx, f.larp.ID, scheduler.ResourceInput{Type: typ, Name: name, Shareable: shareable})
	require.NoError(f.t, err)
	return r
}

func (f *fixture) book(res model.PlanningResource, ev model.ScheduledEvent) model.ResourceBooking {
	f.t.Helper()
	b, err := f.svc.Book(f.ctx, f.larp.ID, scheduler.BookingRequest{ResourceID: res.ID, EventID: ev.ID})
	require.NoError(f.t, err)
	return b
}

func (f *fixture) unresolved() []scheduler.ConflictView {
	f.t.Helper()
	vs, err := f.svc.ListUnresolvedConflicts(f.ctx, f.larp.ID)
	require.NoError(f.t, err)
	return vs
}

// flakyStore wraps memrepo and can fail InsertConflict after a number of
// successful inserts within one transaction.  failAfter < 0 disables it.
type flakyStore struct {
	*memrepo.Store
	failAfter int
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) InTx(ctx context.Context, larpID uint64, fn func(tx scheduler.Tx) error) error {
	return s.Store.InTx(ctx, larpID, func(tx scheduler.Tx) error {
		return fn(&flakyTx{Tx: tx, failAfter: s.failAfter})
	})
}

type flakyTx struct {
	scheduler.Tx
	failAfter int
	inserts   int
}

func (t *flakyTx) InsertConflict(ctx context.Context, c *model.Conflict) (bool, error) {
	if t.failAfter >= 0 && t.inserts >= t.failAfter {
		return false, errDiskFull
	}
	t.inserts++
	return t.Tx.InsertConflict(ctx, c)
}

type recordingNotifier struct {
	calls [][]model.Conflict
}

func (n *recordingNotifier) ConflictsDetected(_ context.Context, _ uint64, cs []model.Conflict) error {
	n.calls = append(n.calls, cs)
	return nil
}
