package calendar

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/larp-planner/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestSlugAndFilename(t *testing.T) {
	assert.Equal(t, "shadows-of-vael", Slug(model.Larp{ID: 3, Name: "Shadows of Vael!"}))
	assert.Equal(t, "larp-3.ics", Filename(model.Larp{ID: 3, Name: "!!!"}))
	assert.Equal(t, "event-9@shadows-of-vael.larp-planner", EventUID(model.Larp{ID: 3, Name: "Shadows of Vael"}, 9))
}

func TestRenderParsesBack(t *testing.T) {
	day := time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC)
	larp := model.Larp{ID: 1, Name: "Shadows of Vael"}
	events := []model.ScheduledEvent{
		{
			ID: 3, LarpID: 1, Title: "Throne Room Audience",
			StartTime: day.Add(10 * time.Hour), EndTime: day.Add(11 * time.Hour),
			LocationID: ptr(uint64(7)), Status: model.EventConfirmed,
			CharacterIDs: []uint64{42}, ParticipantCount: 30, ThreadID: ptr(uint64(2)),
		},
		{
			ID: 4, LarpID: 1, Title: "Feast",
			StartTime: day.Add(19 * time.Hour), EndTime: day.Add(22 * time.Hour),
			Status: model.EventCancelled,
		},
	}
	locations := map[uint64]model.Location{7: {ID: 7, Name: "Great Hall"}}

	out := Render(larp, events, locations, day)
	assert.Contains(t, out, "PRODID:"+productID)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	parsed := cal.Events()
	require.Len(t, parsed, 2)

	first := parsed[0]
	assert.Equal(t, "event-3@shadows-of-vael.larp-planner", first.Id())
	assert.Equal(t, "Throne Room Audience", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Great Hall", first.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "CONFIRMED", first.GetProperty(ical.ComponentPropertyStatus).Value)
	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(events[0].StartTime))
	end, err := first.GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(events[0].EndTime))

	second := parsed[1]
	assert.Equal(t, "CANCELLED", second.GetProperty(ical.ComponentPropertyStatus).Value)
	assert.Nil(t, second.GetProperty(ical.ComponentPropertyLocation))
	assert.Nil(t, second.GetProperty(ical.ComponentPropertyDescription))
}

func TestDescription(t *testing.T) {
	ev := model.ScheduledEvent{ParticipantCount: 12, CharacterIDs: []uint64{1, 5}, ThreadID: ptr(uint64(9))}
	assert.Equal(t, "Participants: 12\nCharacters: 1, 5\nThread: 9", description(ev))
	assert.Equal(t, "TENTATIVE", status(model.EventDraft))
	assert.Equal(t, "CONFIRMED", status(model.EventInProgress))
}
