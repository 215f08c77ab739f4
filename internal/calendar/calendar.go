// Package calendar exports a LARP schedule as an iCalendar (RFC 5545) feed.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/gosimple/slug"

	"github.com/iliyamo/larp-planner/internal/model"
)

const productID = "-//larp-planner//schedule export//EN"

// Slug returns the URL-safe name of the LARP, falling back to its id when
// the name has no usable characters.
func Slug(l model.Larp) string {
	if s := slug.Make(l.Name); s != "" {
		return s
	}
	return "larp-" + strconv.FormatUint(l.ID, 10)
}

// Filename is the attachment name of the feed, e.g. "shadows-of-vael.ics".
func Filename(l model.Larp) string {
	return Slug(l) + ".ics"
}

// EventUID is stable across exports so calendar clients update events in
// place instead of duplicating them.
func EventUID(l model.Larp, eventID uint64) string {
	return fmt.Sprintf("event-%d@%s.larp-planner", eventID, Slug(l))
}

// Build assembles the calendar.  Cancelled events are kept with
// STATUS:CANCELLED so subscribers drop them.  locations resolves location
// names and may be nil.
func Build(l model.Larp, events []model.ScheduledEvent, locations map[uint64]model.Location, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(l.Name)

	for _, ev := range events {
		ve := cal.AddEvent(EventUID(l, ev.ID))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(ev.StartTime.UTC())
		ve.SetEndAt(ev.EndTime.UTC())
		ve.SetSummary(ev.Title)
		ve.SetProperty(ical.ComponentPropertyStatus, status(ev.Status))
		if ev.LocationID != nil {
			if loc, ok := locations[*ev.LocationID]; ok {
				ve.SetLocation(loc.Name)
			}
		}
		if d := description(ev); d != "" {
			ve.SetDescription(d)
		}
	}
	return cal
}

// Render serializes Build's result.
func Render(l model.Larp, events []model.ScheduledEvent, locations map[uint64]model.Location, stamp time.Time) string {
	return Build(l, events, locations, stamp).Serialize()
}

func status(s model.EventStatus) string {
	switch s {
	case model.EventCancelled:
		return "CANCELLED"
	case model.EventDraft:
		return "TENTATIVE"
	default:
		return "CONFIRMED"
	}
}

func description(ev model.ScheduledEvent) string {
	var parts []string
	if ev.ParticipantCount > 0 {
		parts = append(parts, fmt.Sprintf("Participants: %d", ev.ParticipantCount))
	}
	if len(ev.CharacterIDs) > 0 {
		ids := make([]string, len(ev.CharacterIDs))
		for i, id := range ev.CharacterIDs {
			ids[i] = strconv.FormatUint(id, 10)
		}
		parts = append(parts, "Characters: "+strings.Join(ids, ", "))
	}
	if ev.ThreadID != nil {
		parts = append(parts, fmt.Sprintf("Thread: %d", *ev.ThreadID))
	}
	return strings.Join(parts, "\n")
}
