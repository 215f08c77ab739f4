package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// CreateLarp registers a new LARP.
func (s *Service) CreateLarp(ctx context.Context, name string) (model.Larp, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Larp{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	l := model.Larp{Name: name}
	err := s.store.InTx(ctx, 0, func(tx Tx) error { return tx.CreateLarp(ctx, &l) })
	return l, err
}

// GetLarp loads one LARP.
func (s *Service) GetLarp(ctx context.Context, larpID uint64) (model.Larp, error) {
	var l model.Larp
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		l, err = tx.GetLarp(ctx, larpID)
		return err
	})
	return l, err
}

// LocationInput describes a location to create.
type LocationInput struct {
	Name     string `json:"name"`
	Capacity *int   `json:"capacity"`
}

// CreateLocation adds a location to the LARP.
func (s *Service) CreateLocation(ctx context.Context, larpID uint64, in LocationInput) (model.Location, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Location{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Capacity != nil && *in.Capacity < 0 {
		return model.Location{}, fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	loc := model.Location{LarpID: larpID, Name: name, Capacity: in.Capacity}
	err := s.store.InTx(ctx, larpID, func(tx Tx) error { return tx.CreateLocation(ctx, &loc) })
	return loc, err
}

// ListLocations lists the LARP's locations.
func (s *Service) ListLocations(ctx context.Context, larpID uint64) ([]model.Location, error) {
	var out []model.Location
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		out, err = tx.ListLocations(ctx, larpID)
		return err
	})
	return out, err
}

// ResourceInput describes a resource to add to the catalog.
type ResourceInput struct {
	Type           string     `json:"type"`
	Name           string     `json:"name"`
	Shareable      bool       `json:"shareable"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

// CreateResource adds a resource to the LARP's catalog.
func (s *Service) CreateResource(ctx context.Context, larpID uint64, in ResourceInput) (model.PlanningResource, error) {
	typ, err := model.ParseResourceType(in.Type)
	if err != nil {
		return model.PlanningResource{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.PlanningResource{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	res := model.PlanningResource{LarpID: larpID, Type: typ, Name: name, Shareable: in.Shareable}
	if in.AvailableFrom != nil {
		t := in.AvailableFrom.UTC()
		res.AvailableFrom = &t
	}
	if in.AvailableUntil != nil {
		t := in.AvailableUntil.UTC()
		res.AvailableUntil = &t
	}
	if res.AvailableFrom != nil && res.AvailableUntil != nil && !res.AvailableFrom.Before(*res.AvailableUntil) {
		return model.PlanningResource{}, fmt.Errorf("%w: availability window must start before it ends", ErrInvalidRange)
	}
	err = s.store.InTx(ctx, larpID, func(tx Tx) error { return tx.CreateResource(ctx, &res) })
	return res, err
}

// ListResources lists the LARP's resource catalog.
func (s *Service) ListResources(ctx context.Context, larpID uint64) ([]model.PlanningResource, error) {
	var out []model.PlanningResource
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		out, err = tx.ListResources(ctx, larpID)
		return err
	})
	return out, err
}

// DeleteResource removes a resource together with its bookings and then
// re-evaluates every event that had it booked.
func (s *Service) DeleteResource(ctx context.Context, larpID, resourceID uint64) error {
	var affected []uint64
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		if _, err := resourceInLarp(ctx, tx, larpID, resourceID); err != nil {
			return err
		}
		bs, err := tx.FindBookingsByResource(ctx, resourceID)
		if err != nil {
			return err
		}
		for _, b := range bs {
			affected = append(affected, b.EventID)
		}
		return tx.DeleteResource(ctx, resourceID)
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, larpID, affected...)
	return nil
}

// EventInput describes a scheduled event to create.
type EventInput struct {
	Title            string    `json:"title"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	LocationID       *uint64   `json:"location_id"`
	Status           string    `json:"status"`
	CharacterIDs     []uint64  `json:"character_ids"`
	ParticipantCount int       `json:"participant_count"`
	ThreadID         *uint64   `json:"thread_id"`
}

// CreateEvent stores a new event and re-evaluates it.
func (s *Service) CreateEvent(ctx context.Context, larpID uint64, in EventInput) (model.ScheduledEvent, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.ScheduledEvent{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	r := model.NewTimeRange(in.StartTime, in.EndTime).UTC()
	if !r.Valid() {
		return model.ScheduledEvent{}, fmt.Errorf("%w: event must start before it ends", ErrInvalidRange)
	}
	if in.ParticipantCount < 0 {
		return model.ScheduledEvent{}, fmt.Errorf("%w: participant_count must not be negative", ErrInvalidInput)
	}
	status := model.EventDraft
	if in.Status != "" {
		st, err := model.ParseEventStatus(in.Status)
		if err != nil {
			return model.ScheduledEvent{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		status = st
	}
	ev := model.ScheduledEvent{
		LarpID:           larpID,
		Title:            title,
		StartTime:        r.Start,
		EndTime:          r.End,
		LocationID:       in.LocationID,
		Status:           status,
		CharacterIDs:     dedupeIDs(in.CharacterIDs),
		ParticipantCount: in.ParticipantCount,
		ThreadID:         in.ThreadID,
	}
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		if ev.LocationID != nil {
			if _, err := locationInLarp(ctx, tx, larpID, *ev.LocationID); err != nil {
				return err
			}
		}
		return tx.CreateEvent(ctx, &ev)
	})
	if err != nil {
		return model.ScheduledEvent{}, err
	}
	s.afterMutation(ctx, larpID, ev.ID)
	return ev, nil
}

// EventPatch lists the fields to change on an event.  Nil fields are left
// untouched; the Clear flags unset optional references.
type EventPatch struct {
	Title            *string    `json:"title"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	LocationID       *uint64    `json:"location_id"`
	ClearLocation    bool       `json:"clear_location"`
	Status           *string    `json:"status"`
	CharacterIDs     *[]uint64  `json:"character_ids"`
	ParticipantCount *int       `json:"participant_count"`
	ThreadID         *uint64    `json:"thread_id"`
	ClearThread      bool       `json:"clear_thread"`
}

// UpdateEvent applies a patch (reschedule, retitle, relocate, status,
// characters, attendance, thread) and re-evaluates the event.  A
// reschedule that would leave a booking outside the new range or outside
// its resource's availability is rejected.  Setting the status to
// CANCELLED behaves like CancelEvent.
func (s *Service) UpdateEvent(ctx context.Context, larpID, eventID uint64, p EventPatch) (model.ScheduledEvent, error) {
	var ev model.ScheduledEvent
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		ev, err = eventInLarp(ctx, tx, larpID, eventID)
		if err != nil {
			return err
		}
		if ev.Cancelled() {
			return ErrEventCancelled
		}
		if err := applyPatch(&ev, p); err != nil {
			return err
		}
		if ev.LocationID != nil {
			if _, err := locationInLarp(ctx, tx, larpID, *ev.LocationID); err != nil {
				return err
			}
		}
		if ev.Cancelled() {
			if _, err := tx.DeleteBookingsForEvent(ctx, ev.ID); err != nil {
				return err
			}
		} else if err := checkBookingsFit(ctx, tx, ev); err != nil {
			return err
		}
		return tx.UpdateEvent(ctx, &ev)
	})
	if err != nil {
		return model.ScheduledEvent{}, err
	}
	s.afterMutation(ctx, larpID, ev.ID)
	return ev, nil
}

// CancelEvent soft-cancels an event and removes its bookings.  Conflicts
// already recorded for it stay in the ledger.  Cancelling twice is a
// no-op.
func (s *Service) CancelEvent(ctx context.Context, larpID, eventID uint64) (model.ScheduledEvent, error) {
	var ev model.ScheduledEvent
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		ev, err = eventInLarp(ctx, tx, larpID, eventID)
		if err != nil {
			return err
		}
		if ev.Cancelled() {
			return nil
		}
		if _, err := tx.DeleteBookingsForEvent(ctx, ev.ID); err != nil {
			return err
		}
		ev.Status = model.EventCancelled
		return tx.UpdateEvent(ctx, &ev)
	})
	if err != nil {
		return model.ScheduledEvent{}, err
	}
	s.afterMutation(ctx, larpID, ev.ID)
	return ev, nil
}

// ListEvents lists every event of the LARP, cancelled ones included.
func (s *Service) ListEvents(ctx context.Context, larpID uint64) ([]model.ScheduledEvent, error) {
	var out []model.ScheduledEvent
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		out, err = tx.ListEvents(ctx, larpID)
		return err
	})
	return out, err
}

func applyPatch(ev *model.ScheduledEvent, p EventPatch) error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		ev.Title = t
	}
	if p.StartTime != nil {
		ev.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		ev.EndTime = p.EndTime.UTC()
	}
	if !ev.Range().Valid() {
		return fmt.Errorf("%w: event must start before it ends", ErrInvalidRange)
	}
	if p.ClearLocation {
		ev.LocationID = nil
	} else if p.LocationID != nil {
		id := *p.LocationID
		ev.LocationID = &id
	}
	if p.Status != nil {
		st, err := model.ParseEventStatus(*p.Status)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		ev.Status = st
	}
	if p.CharacterIDs != nil {
		ev.CharacterIDs = dedupeIDs(*p.CharacterIDs)
	}
	if p.ParticipantCount != nil {
		if *p.ParticipantCount < 0 {
			return fmt.Errorf("%w: participant_count must not be negative", ErrInvalidInput)
		}
		ev.ParticipantCount = *p.ParticipantCount
	}
	if p.ClearThread {
		ev.ThreadID = nil
	} else if p.ThreadID != nil {
		id := *p.ThreadID
		ev.ThreadID = &id
	}
	return nil
}

// checkBookingsFit enforces the booking invariant against ev's new range.
func checkBookingsFit(ctx context.Context, tx Tx, ev model.ScheduledEvent) error {
	bs, err := tx.FindBookingsByEvent(ctx, ev.ID)
	if err != nil {
		return err
	}
	for _, b := range bs {
		eff := b.EffectiveIn(ev.Range())
		if !ev.Range().Contains(eff) {
			return fmt.Errorf("%w: booking %d would fall outside the event", ErrInvalidRange, b.ID)
		}
		res, err := tx.GetResource(ctx, b.ResourceID)
		if err != nil {
			return err
		}
		if !res.Accepts(eff) {
			return fmt.Errorf("%w: %q is not available for the new time", ErrInvalidRange, res.Name)
		}
	}
	return nil
}

func dedupeIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
