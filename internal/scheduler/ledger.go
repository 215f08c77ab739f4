package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository"
)

// BookingRequest asks for a resource to be assigned to an event.  A nil
// Range books the resource for the whole event.
type BookingRequest struct {
	ResourceID uint64           `json:"resource_id"`
	EventID    uint64           `json:"event_id"`
	Range      *model.TimeRange `json:"range,omitempty"`
}

// BookingLedger is the only write path into resource bookings.  It never
// touches conflict records.
type BookingLedger struct {
	tx Tx
}

// Bookings returns the booking ledger bound to tx.
func Bookings(tx Tx) BookingLedger {
	return BookingLedger{tx: tx}
}

// Book validates the request and stores the booking.  Non-shareable
// resources are not locked: overlapping bookings are accepted and left
// to conflict detection.
func (l BookingLedger) Book(ctx context.Context, larpID uint64, req BookingRequest) (model.ResourceBooking, error) {
	ev, err := eventInLarp(ctx, l.tx, larpID, req.EventID)
	if err != nil {
		return model.ResourceBooking{}, err
	}
	if ev.Cancelled() {
		return model.ResourceBooking{}, ErrEventCancelled
	}
	res, err := resourceInLarp(ctx, l.tx, larpID, req.ResourceID)
	if err != nil {
		return model.ResourceBooking{}, err
	}

	b := model.ResourceBooking{LarpID: larpID, ResourceID: res.ID, EventID: ev.ID, Range: ev.Range()}
	if req.Range != nil {
		r := req.Range.UTC()
		if !r.Valid() {
			return model.ResourceBooking{}, fmt.Errorf("%w: booking must start before it ends", ErrInvalidRange)
		}
		if !ev.Range().Contains(r) {
			return model.ResourceBooking{}, fmt.Errorf("%w: booking must lie within the event", ErrInvalidRange)
		}
		b.Range = r
		b.Explicit = true
	}
	if !res.Accepts(b.Range) {
		return model.ResourceBooking{}, fmt.Errorf("%w: %q is not available for the whole booking", ErrInvalidRange, res.Name)
	}
	if err := l.tx.CreateBooking(ctx, &b); err != nil {
		return model.ResourceBooking{}, err
	}
	return b, nil
}

// Unbook removes a booking.  Removing an absent booking is not an error;
// removed is false in that case.  The event id of a removed booking is
// returned so the caller can re-evaluate it.
func (l BookingLedger) Unbook(ctx context.Context, larpID, bookingID uint64) (eventID uint64, removed bool, err error) {
	b, err := l.tx.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if b.LarpID != larpID {
		return 0, false, nil
	}
	if err := l.tx.DeleteBooking(ctx, bookingID); err != nil {
		return 0, false, err
	}
	return b.EventID, true, nil
}

// FindOverlapping returns bookings of the resource on non-cancelled events
// overlapping r, excluding excludeEventID (0 excludes nothing).
func (l BookingLedger) FindOverlapping(ctx context.Context, resourceID uint64, r model.TimeRange, excludeEventID uint64) ([]model.ResourceBooking, error) {
	all, err := l.tx.FindBookingsForResource(ctx, resourceID, r, excludeEventID)
	if err != nil {
		return nil, err
	}
	// The store filters too; re-checking keeps the half-open rule in one place.
	out := all[:0]
	for _, b := range all {
		if b.EventID != excludeEventID && b.Range.Overlaps(r) {
			out = append(out, b)
		}
	}
	return out, nil
}

// FindByEvent lists the bookings of an event.
func (l BookingLedger) FindByEvent(ctx context.Context, eventID uint64) ([]model.ResourceBooking, error) {
	return l.tx.FindBookingsByEvent(ctx, eventID)
}

// eventInLarp loads an event and hides events of other LARPs.
func eventInLarp(ctx context.Context, tx Tx, larpID, eventID uint64) (model.ScheduledEvent, error) {
	ev, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		return model.ScheduledEvent{}, err
	}
	if ev.LarpID != larpID {
		return model.ScheduledEvent{}, repository.ErrEventNotFound
	}
	return ev, nil
}

func resourceInLarp(ctx context.Context, tx Tx, larpID, resourceID uint64) (model.PlanningResource, error) {
	res, err := tx.GetResource(ctx, resourceID)
	if err != nil {
		return model.PlanningResource{}, err
	}
	if res.LarpID != larpID {
		return model.PlanningResource{}, repository.ErrResourceNotFound
	}
	return res, nil
}

func locationInLarp(ctx context.Context, tx Tx, larpID, locationID uint64) (model.Location, error) {
	loc, err := tx.GetLocation(ctx, locationID)
	if err != nil {
		return model.Location{}, err
	}
	if loc.LarpID != larpID {
		return model.Location{}, repository.ErrLocationNotFound
	}
	return loc, nil
}
