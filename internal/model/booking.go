package model

import "time"

// ResourceBooking assigns one resource to one scheduled event.  Bookings
// without an explicit sub-range cover the whole event and follow it when
// it is rescheduled.
//
// Fields:
//  ID         – primary key identifier.
//  LarpID     – owning LARP.
//  ResourceID – booked resource.
//  EventID    – event the resource is booked for.
//  Explicit   – true when the booking carries its own sub-range.
//  Range      – effective booked interval (explicit sub-range or the
//               event's range at read time).
//  CreatedAt  – creation timestamp.
type ResourceBooking struct {
	ID         uint64    `json:"id"`          // resource_bookings.id
	LarpID     uint64    `json:"larp_id"`     // resource_bookings.larp_id
	ResourceID uint64    `json:"resource_id"` // resource_bookings.resource_id
	EventID    uint64    `json:"event_id"`    // resource_bookings.event_id
	Explicit   bool      `json:"explicit"`    // resource_bookings.starts_at IS NOT NULL
	Range      TimeRange `json:"range"`       // COALESCE(resource_bookings.starts_at, scheduled_events.start_time) ...
	CreatedAt  time.Time `json:"created_at"`  // resource_bookings.created_at
}

// EffectiveIn returns the booking's range with respect to the given event
// range.  Explicit bookings keep their own range; implicit bookings take
// the event's.
func (b ResourceBooking) EffectiveIn(event TimeRange) TimeRange {
	if b.Explicit {
		return b.Range
	}
	return event
}
