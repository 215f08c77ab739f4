package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

func TestHeraldDoubleBooking(t *testing.T) {
	f := newFixture(t)
	herald := f.resource("npc", "Herald", false)
	a := f.event("Opening court", "10:00", "12:00")
	f.book(herald, a)
	b := f.event("Tournament", "11:00", "13:00")
	f.book(herald, b)

	res, err := f.svc.Reevaluate(f.ctx, f.larp.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Empty(t, res.Inserted, "the booking pass already recorded it")

	open := f.unresolved()
	require.Len(t, open, 1)
	c := open[0].Conflict
	assert.Equal(t, model.ConflictResourceDoubleBooking, c.Type)
	assert.Equal(t, model.SeverityCritical, c.Severity)
	assert.Equal(t, model.NewEventPair(a.ID, b.ID), c.Subjects)
	require.Len(t, open[0].Events, 2)
	assert.Equal(t, "Opening court", open[0].Events[0].Title)
	assert.Equal(t, "Tournament", open[0].Events[1].Title)
}

func TestDoubleBookingIsSymmetric(t *testing.T) {
	for _, name := range []string{"first", "second"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			herald := f.resource("npc", "Herald", false)
			a := f.event("A", "10:00", "12:00")
			b := f.event("B", "11:00", "13:00")
			if name == "first" {
				f.book(herald, b)
				f.book(herald, a)
			} else {
				f.book(herald, a)
				f.book(herald, b)
			}
			for _, id := range []uint64{a.ID, b.ID} {
				_, err := f.svc.Reevaluate(f.ctx, f.larp.ID, id)
				require.NoError(t, err)
			}
			open := f.unresolved()
			require.Len(t, open, 1)
			assert.Equal(t, model.NewEventPair(a.ID, b.ID), open[0].Conflict.Subjects)
			assert.Equal(t, 1, f.store.ConflictCount())
		})
	}
}

func TestShareableResourceDoesNotDoubleBook(t *testing.T) {
	f := newFixture(t)
	banner := f.resource("prop", "Royal banner", true)
	a := f.event("A", "10:00", "12:00")
	b := f.event("B", "11:00", "13:00")
	f.book(banner, a)
	f.book(banner, b)
	assert.Empty(t, f.unresolved())
}

func TestDisjointRangesNeverConflict(t *testing.T) {
	f := newFixture(t)
	herald := f.resource("staff-gm", "Herald", false)
	a := f.event("A", "10:00", "12:00", withCharacters(7), withThread(1))
	b := f.event("B", "12:00", "13:00", withCharacters(7), withThread(1))
	f.book(herald, a)
	f.book(herald, b)
	for _, id := range []uint64{a.ID, b.ID} {
		res, err := f.svc.Reevaluate(f.ctx, f.larp.ID, id)
		require.NoError(t, err)
		assert.Zero(t, res.Found)
	}
	assert.Zero(t, f.store.ConflictCount())
}

func TestExplicitSubRangesThatDoNotTouch(t *testing.T) {
	f := newFixture(t)
	herald := f.resource("npc", "Herald", false)
	a := f.event("A", "10:00", "12:00")
	b := f.event("B", "11:00", "13:00")

	r1 := model.NewTimeRange(at(t, "10:00"), at(t, "10:30"))
	_, err := f.svc.Book(f.ctx, f.larp.ID, scheduler.BookingRequest{ResourceID: herald.ID, EventID: a.ID, Range: &r1})
	require.NoError(t, err)
	r2 := model.NewTimeRange(at(t, "11:00"), at(t, "12:00"))
	_, err = f.svc.Book(f.ctx, f.larp.ID, scheduler.BookingRequest{ResourceID: herald.ID, EventID: b.ID, Range: &r2})
	require.NoError(t, err)

	assert.Empty(t, f.unresolved())
}

func TestGreatHallCapacity(t *testing.T) {
	f := newFixture(t)
	capacity := 50
	hall, err := f.svc.CreateLocation(f.ctx, f.larp.ID, scheduler.LocationInput{Name: "Great Hall", Capacity: &capacity})
	require.NoError(t, err)

	a := f.event("Feast", "14:00", "15:00", withLocation(hall.ID, 30))
	b := f.event("Duel", "14:30", "15:30", withLocation(hall.ID, 25))

	open := f.unresolved()
	require.Len(t, open, 1)
	c := open[0].Conflict
	assert.Equal(t, model.ConflictLocationCapacity, c.Type)
	assert.Equal(t, model.SeverityWarning, c.Severity)
	assert.Equal(t, model.NewEventPair(a.ID, b.ID), c.Subjects)
	assert.Contains(t, c.Detail, "55")
}

func TestGreatHallWithinCapacity(t *testing.T) {
	f := newFixture(t)
	capacity := 50
	hall, err := f.svc.CreateLocation(f.ctx, f.larp.ID, scheduler.LocationInput{Name: "Great Hall", Capacity: &capacity})
	require.NoError(t, err)
	f.event("Feast", "14:00", "15:00", withLocation(hall.ID, 30))
	f.event("Duel", "14:30", "15:30", withLocation(hall.ID, 20))
	assert.Empty(t, f.unresolved())
}

func TestGreatHallSequentialEventsWithinCapacity(t *testing.T) {
	f := newFixture(t)
	capacity := 50
	hall, err := f.svc.CreateLocation(f.ctx, f.larp.ID, scheduler.LocationInput{Name: "Great Hall", Capacity: &capacity})
	require.NoError(t, err)
	morning := f.event("Morning", "10:00", "11:00", withLocation(hall.ID, 30))
	evening := f.event("Evening", "13:00", "14:00", withLocation(hall.ID, 30))
	long := f.event("Long", "10:00", "14:00", withLocation(hall.ID, 0))

	for _, id := range []uint64{morning.ID, evening.ID, long.ID} {
		_, err := f.svc.Reevaluate(f.ctx, f.larp.ID, id)
		require.NoError(t, err)
	}
	assert.Empty(t, f.unresolved(), "the hall never holds more than 30 at once")
}

func TestGreatHallPeakReported(t *testing.T) {
	f := newFixture(t)
	capacity := 50
	hall, err := f.svc.CreateLocation(f.ctx, f.larp.ID, scheduler.LocationInput{Name: "Great Hall", Capacity: &capacity})
	require.NoError(t, err)
	f.event("Morning", "10:00", "11:00", withLocation(hall.ID, 30))
	f.event("Evening", "13:00", "14:00", withLocation(hall.ID, 30))
	f.event("Long", "10:00", "14:00", withLocation(hall.ID, 25))

	open := f.unresolved()
	require.Len(t, open, 1)
	assert.Equal(t, model.ConflictLocationCapacity, open[0].Conflict.Type)
	assert.Contains(t, open[0].Conflict.Detail, "expects 55 attendees")
}

func TestSingleEventOverCapacity(t *testing.T) {
	f := newFixture(t)
	capacity := 10
	tent, err := f.svc.CreateLocation(f.ctx, f.larp.ID, scheduler.LocationInput{Name: "Healer's tent", Capacity: &capacity})
	require.NoError(t, err)
	ev := f.event("Plague ward", "09:00", "10:00", withLocation(tent.ID, 12))

	open := f.unresolved()
	require.Len(t, open, 1)
	assert.Equal(t, model.EventAndLocation{Event: ev.ID, Location: tent.ID}, open[0].Conflict.Subjects)
	require.NotNil(t, open[0].LocationName)
	assert.Equal(t, "Healer's tent", *open[0].LocationName)
}

func TestBookedResourcesCountTowardsCapacity(t *testing.T) {
	f := newFixture(t)
	capacity := 30
	hall, err := f.svc.CreateLocation(f.ctx, f.larp.ID, scheduler.LocationInput{Name: "Great Hall", Capacity: &capacity})
	require.NoError(t, err)
	ev := f.event("Feast", "14:00", "15:00", withLocation(hall.ID, 30))
	assert.Empty(t, f.unresolved())

	f.book(f.resource("npc", "Cook", false), ev)
	require.Len(t, f.unresolved(), 1)
}

func TestQueenMiraCannotBeInTwoPlaces(t *testing.T) {
	f := newFixture(t)
	const queenMira = 7
	a := f.event("Audience", "09:00", "10:00", withCharacters(queenMira))
	c := f.event("Coronation rehearsal", "09:30", "10:30", withCharacters(queenMira, 8))

	open := f.unresolved()
	require.Len(t, open, 1)
	got := open[0].Conflict
	assert.Equal(t, model.ConflictCharacterImpossible, got.Type)
	assert.Equal(t, model.SeverityCritical, got.Severity)
	assert.Equal(t, model.NewEventPair(a.ID, c.ID), got.Subjects)
}

func TestStaffOverload(t *testing.T) {
	f := newFixture(t)
	gwen := f.resource("staff-gm", "Gwen", true)
	a := f.event("A", "10:00", "12:00")
	b := f.event("B", "11:00", "13:00")
	f.book(gwen, a)
	f.book(gwen, b)

	open := f.unresolved()
	require.Len(t, open, 1)
	c := open[0].Conflict
	assert.Equal(t, model.ConflictStaffOverload, c.Type)
	assert.Equal(t, model.SeverityWarning, c.Severity)
	assert.Equal(t, model.EventAndResource{Event: b.ID, Resource: gwen.ID}, c.Subjects)
	require.NotNil(t, open[0].ResourceName)
	assert.Equal(t, "Gwen", *open[0].ResourceName)
}

func TestNonShareableStaffIsBothDoubleBookedAndOverloaded(t *testing.T) {
	f := newFixture(t)
	medic := f.resource("staff-safety", "Medic", false)
	a := f.event("A", "10:00", "12:00")
	b := f.event("B", "11:00", "13:00")
	f.book(medic, a)
	f.book(medic, b)

	open := f.unresolved()
	require.Len(t, open, 2)
	assert.Equal(t, model.ConflictResourceDoubleBooking, open[0].Conflict.Type, "critical first")
	assert.Equal(t, model.ConflictStaffOverload, open[1].Conflict.Type)
}

func TestStaffOverloadThresholdIsPolicy(t *testing.T) {
	p := scheduler.DefaultPolicy()
	p.StaffMaxConcurrent = 2
	f := newFixtureWithPolicy(t, p)
	gwen := f.resource("staff-gm", "Gwen", true)
	a := f.event("A", "10:00", "12:00")
	b := f.event("B", "11:00", "13:00")
	c := f.event("C", "11:30", "12:30")
	f.book(gwen, a)
	f.book(gwen, b)
	assert.Empty(t, f.unresolved())

	f.book(gwen, c)
	open := f.unresolved()
	require.Len(t, open, 1)
	assert.Equal(t, model.EventAndResource{Event: c.ID, Resource: gwen.ID}, open[0].Conflict.Subjects)
}

func TestStaffOverloadCountsPeakNotTotal(t *testing.T) {
	p := scheduler.DefaultPolicy()
	p.StaffMaxConcurrent = 2
	f := newFixtureWithPolicy(t, p)
	alex := f.resource("staff-gm", "Alex", true)
	a := f.event("A", "10:00", "11:00")
	b := f.event("B", "13:00", "14:00")
	c := f.event("C", "10:00", "14:00")
	f.book(alex, a)
	f.book(alex, b)
	f.book(alex, c)

	for _, id := range []uint64{a.ID, b.ID, c.ID} {
		_, err := f.svc.Reevaluate(f.ctx, f.larp.ID, id)
		require.NoError(t, err)
	}
	assert.Empty(t, f.unresolved(), "Alex never runs more than two events at once")
}

func TestStaffOverloadDetailReportsPeak(t *testing.T) {
	f := newFixture(t)
	alex := f.resource("staff-gm", "Alex", true)
	a := f.event("A", "10:00", "11:00")
	b := f.event("B", "13:00", "14:00")
	c := f.event("C", "10:00", "14:00")
	f.book(alex, a)
	f.book(alex, b)
	f.book(alex, c)

	var found bool
	for _, v := range f.unresolved() {
		if v.Conflict.Subjects != (model.EventAndResource{Event: c.ID, Resource: alex.ID}) {
			continue
		}
		found = true
		assert.Contains(t, v.Conflict.Detail, "carries 2 concurrent bookings")
		assert.Contains(t, v.Conflict.Detail, "(limit 1)")
	}
	assert.True(t, found)
}

func TestTimelineOverlap(t *testing.T) {
	f := newFixture(t)
	a := f.event("Letter arrives", "10:00", "11:00", withThread(3))
	b := f.event("Letter is forged", "10:30", "11:30", withThread(3))
	f.event("Unrelated market", "10:30", "11:30", withThread(4))

	open := f.unresolved()
	require.Len(t, open, 1)
	c := open[0].Conflict
	assert.Equal(t, model.ConflictTimelineOverlap, c.Type)
	assert.Equal(t, model.SeverityInfo, c.Severity)
	assert.Equal(t, model.NewEventPair(a.ID, b.ID), c.Subjects)
}

func TestTimelineOverlapSkipsRelatedPairs(t *testing.T) {
	f := newFixture(t)
	f.event("Letter arrives", "10:00", "11:00", withThread(3), withCharacters(7))
	f.event("Letter is forged", "10:30", "11:30", withThread(3), withCharacters(7))

	open := f.unresolved()
	require.Len(t, open, 1)
	assert.Equal(t, model.ConflictCharacterImpossible, open[0].Conflict.Type)
}

func TestTimelineOverlapCanBeDisabled(t *testing.T) {
	p := scheduler.DefaultPolicy()
	p.TimelineOverlap = false
	f := newFixtureWithPolicy(t, p)
	f.event("Letter arrives", "10:00", "11:00", withThread(3))
	f.event("Letter is forged", "10:30", "11:30", withThread(3))
	assert.Empty(t, f.unresolved())
}

func TestUnresolvedOrderedBySeverity(t *testing.T) {
	f := newFixture(t)
	f.event("A", "10:00", "11:00", withThread(3))
	f.event("B", "10:30", "11:30", withThread(3))
	f.event("C", "10:45", "11:15", withCharacters(9))
	f.event("D", "10:50", "11:10", withCharacters(9))

	open := f.unresolved()
	require.Len(t, open, 2)
	assert.Equal(t, model.SeverityCritical, open[0].Conflict.Severity)
	assert.Equal(t, model.SeverityInfo, open[1].Conflict.Severity)
}
