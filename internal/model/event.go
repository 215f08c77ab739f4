package model

import (
	"fmt"
	"strings"
	"time"
)

// EventStatus is the lifecycle state of a scheduled event.
type EventStatus string

const (
	EventDraft      EventStatus = "DRAFT"
	EventConfirmed  EventStatus = "CONFIRMED"
	EventInProgress EventStatus = "IN_PROGRESS"
	EventCompleted  EventStatus = "COMPLETED"
	EventCancelled  EventStatus = "CANCELLED"
)

// ParseEventStatus converts a user supplied string into an EventStatus.
// Matching is case-insensitive and accepts "in-progress" as an alias.
func ParseEventStatus(s string) (EventStatus, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	switch EventStatus(v) {
	case EventDraft, EventConfirmed, EventInProgress, EventCompleted, EventCancelled:
		return EventStatus(v), nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

// ScheduledEvent is a planned, time-boxed activity of a LARP.  Events are
// never hard-deleted; cancelling sets Status to EventCancelled so that
// conflict history referencing the event stays intact.
//
// Fields:
//  ID               – primary key identifier.
//  LarpID           – owning LARP.
//  Title            – display title.
//  StartTime        – start of the half-open interval.
//  EndTime          – end of the half-open interval (after StartTime).
//  LocationID       – where the event happens (nullable).
//  Status           – lifecycle state.
//  CharacterIDs     – story characters involved in the event.
//  ParticipantCount – expected attendance, used for location capacity.
//  ThreadID         – story thread the event belongs to (nullable).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type ScheduledEvent struct {
	ID               uint64      `json:"id"`                    // scheduled_events.id
	LarpID           uint64      `json:"larp_id"`               // scheduled_events.larp_id
	Title            string      `json:"title"`                 // scheduled_events.title
	StartTime        time.Time   `json:"start_time"`            // scheduled_events.start_time
	EndTime          time.Time   `json:"end_time"`              // scheduled_events.end_time
	LocationID       *uint64     `json:"location_id,omitempty"` // scheduled_events.location_id (nullable)
	Status           EventStatus `json:"status"`                // scheduled_events.status
	CharacterIDs     []uint64    `json:"character_ids"`         // scheduled_event_characters.character_id
	ParticipantCount int         `json:"participant_count"`     // scheduled_events.participant_count
	ThreadID         *uint64     `json:"thread_id,omitempty"`   // scheduled_events.thread_id (nullable)
	CreatedAt        time.Time   `json:"created_at"`            // scheduled_events.created_at
	UpdatedAt        time.Time   `json:"updated_at"`            // scheduled_events.updated_at
}

// Range returns the event's [StartTime, EndTime) interval.
func (e ScheduledEvent) Range() TimeRange {
	return TimeRange{Start: e.StartTime, End: e.EndTime}
}

// Cancelled reports whether the event has been soft-cancelled.
func (e ScheduledEvent) Cancelled() bool {
	return e.Status == EventCancelled
}

// InvolvesCharacter reports whether the character takes part in the event.
func (e ScheduledEvent) InvolvesCharacter(id uint64) bool {
	for _, c := range e.CharacterIDs {
		if c == id {
			return true
		}
	}
	return false
}

// SameLocation reports whether both events take place at the same, known
// location.
func (e ScheduledEvent) SameLocation(o ScheduledEvent) bool {
	return e.LocationID != nil && o.LocationID != nil && *e.LocationID == *o.LocationID
}

// SameThread reports whether both events belong to the same story thread.
func (e ScheduledEvent) SameThread(o ScheduledEvent) bool {
	return e.ThreadID != nil && o.ThreadID != nil && *e.ThreadID == *o.ThreadID
}
