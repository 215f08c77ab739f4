// Package scheduler implements resource booking and conflict detection for
// LARP event planning.  It is storage- and transport-agnostic: persistence
// is reached through Store and every call carries the LARP id explicitly.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/repository"
)

// Notifier receives conflicts right after a reconciliation pass committed
// them.  Notification failures are logged and otherwise ignored.
type Notifier interface {
	ConflictsDetected(ctx context.Context, larpID uint64, conflicts []model.Conflict) error
}

// Service is the entry point used by handlers, workers and the CLI.
type Service struct {
	store    Store
	detector *Detector
	notifier Notifier
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers a Notifier for newly inserted conflicts.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service around store using policy p.
func NewService(store Store, p Policy, opts ...Option) *Service {
	if store == nil {
		panic("nil store passed to scheduler.NewService")
	}
	s := &Service{store: store, detector: NewDetector(p), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ReevaluateResult summarises one reconciliation pass.
type ReevaluateResult struct {
	EventID  uint64           `json:"event_id"`
	Found    int              `json:"found"`
	Inserted []model.Conflict `json:"inserted"`
}

// Reevaluate recomputes the conflicts touching one event and reconciles
// them into the ledger inside a single transaction.  Missing LARPs or
// events are returned as-is; any other failure is logged and wrapped in
// ErrDetectionFailed, and the ledger is left as it was.
func (s *Service) Reevaluate(ctx context.Context, larpID, eventID uint64) (ReevaluateResult, error) {
	res := ReevaluateResult{EventID: eventID}
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		ev, err := eventInLarp(ctx, tx, larpID, eventID)
		if err != nil {
			return err
		}
		found, err := s.detector.Evaluate(ctx, tx, ev)
		if err != nil {
			return err
		}
		inserted, err := Conflicts(tx).Reconcile(ctx, larpID, found, s.now())
		if err != nil {
			return err
		}
		res.Found = len(found)
		res.Inserted = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrLarpNotFound) || errors.Is(err, repository.ErrEventNotFound) {
			return ReevaluateResult{EventID: eventID}, err
		}
		log.Printf("scheduler: DetectionFailed larp=%d event=%d: %v", larpID, eventID, err)
		return ReevaluateResult{EventID: eventID}, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}
	if len(res.Inserted) > 0 && s.notifier != nil {
		if nerr := s.notifier.ConflictsDetected(ctx, larpID, res.Inserted); nerr != nil {
			log.Printf("scheduler: notify larp=%d event=%d: %v", larpID, eventID, nerr)
		}
	}
	return res, nil
}

// afterMutation runs best-effort passes for the events a committed write
// touched.  Errors are already logged by Reevaluate.
func (s *Service) afterMutation(ctx context.Context, larpID uint64, eventIDs ...uint64) {
	seen := map[uint64]bool{}
	for _, id := range eventIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		_, _ = s.Reevaluate(ctx, larpID, id)
	}
}

// Book assigns a resource to an event, then re-evaluates the event.
func (s *Service) Book(ctx context.Context, larpID uint64, req BookingRequest) (model.ResourceBooking, error) {
	var b model.ResourceBooking
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		b, err = Bookings(tx).Book(ctx, larpID, req)
		return err
	})
	if err != nil {
		return model.ResourceBooking{}, err
	}
	s.afterMutation(ctx, larpID, b.EventID)
	return b, nil
}

// Unbook removes a booking if it exists, then re-evaluates its event.
func (s *Service) Unbook(ctx context.Context, larpID, bookingID uint64) error {
	var eventID uint64
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		eventID, _, err = Bookings(tx).Unbook(ctx, larpID, bookingID)
		return err
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, larpID, eventID)
	return nil
}

// ListBookingsForEvent lists an event's bookings.
func (s *Service) ListBookingsForEvent(ctx context.Context, larpID, eventID uint64) ([]model.ResourceBooking, error) {
	var out []model.ResourceBooking
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		if _, err := eventInLarp(ctx, tx, larpID, eventID); err != nil {
			return err
		}
		var err error
		out, err = Bookings(tx).FindByEvent(ctx, eventID)
		return err
	})
	return out, err
}

// EventRef is the slice of an event shown next to a conflict.
type EventRef struct {
	ID        uint64            `json:"id"`
	Title     string            `json:"title"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Status    model.EventStatus `json:"status"`
}

// ConflictView is a conflict with the names of what it references.
type ConflictView struct {
	Conflict     model.Conflict `json:"conflict"`
	Events       []EventRef     `json:"events"`
	ResourceName *string        `json:"resource_name,omitempty"`
	LocationName *string        `json:"location_name,omitempty"`
}

// ListUnresolvedConflicts returns the LARP's open conflicts as views.
func (s *Service) ListUnresolvedConflicts(ctx context.Context, larpID uint64) ([]ConflictView, error) {
	var out []ConflictView
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		cs, err := Conflicts(tx).ListUnresolved(ctx, larpID)
		if err != nil {
			return err
		}
		out, err = buildViews(ctx, tx, cs)
		return err
	})
	return out, err
}

// ListConflictsForEvent returns every conflict that references the event.
func (s *Service) ListConflictsForEvent(ctx context.Context, larpID, eventID uint64) ([]ConflictView, error) {
	var out []ConflictView
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		if _, err := eventInLarp(ctx, tx, larpID, eventID); err != nil {
			return err
		}
		cs, err := Conflicts(tx).ListForEvent(ctx, eventID)
		if err != nil {
			return err
		}
		out, err = buildViews(ctx, tx, cs)
		return err
	})
	return out, err
}

// ResolveInput carries the organizer's acknowledgement.
type ResolveInput struct {
	Note       *string
	ResolvedBy *uint64
}

// ResolveConflict marks a conflict resolved.  It is idempotent.
func (s *Service) ResolveConflict(ctx context.Context, larpID, conflictID uint64, in ResolveInput) (ConflictView, error) {
	var out ConflictView
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		c, err := Conflicts(tx).Resolve(ctx, larpID, conflictID, in.Note, in.ResolvedBy, s.now())
		if err != nil {
			return err
		}
		views, err := buildViews(ctx, tx, []model.Conflict{c})
		if err != nil {
			return err
		}
		out = views[0]
		return nil
	})
	return out, err
}

func buildViews(ctx context.Context, tx Tx, cs []model.Conflict) ([]ConflictView, error) {
	events := map[uint64]model.ScheduledEvent{}
	views := make([]ConflictView, 0, len(cs))
	for _, c := range cs {
		v := ConflictView{Conflict: c}
		for _, id := range c.Subjects.EventIDs() {
			ev, ok := events[id]
			if !ok {
				var err error
				ev, err = tx.GetEvent(ctx, id)
				if err != nil {
					return nil, fmt.Errorf("load event %d of conflict %d: %w", id, c.ID, err)
				}
				events[id] = ev
			}
			v.Events = append(v.Events, EventRef{ID: ev.ID, Title: ev.Title, StartTime: ev.StartTime, EndTime: ev.EndTime, Status: ev.Status})
		}
		switch subj := c.Subjects.(type) {
		case model.EventAndResource:
			// The resource may have been deleted since; the view then omits its name.
			if r, err := tx.GetResource(ctx, subj.Resource); err == nil {
				v.ResourceName = &r.Name
			} else if !errors.Is(err, repository.ErrResourceNotFound) {
				return nil, err
			}
		case model.EventAndLocation:
			if l, err := tx.GetLocation(ctx, subj.Location); err == nil {
				v.LocationName = &l.Name
			} else if !errors.Is(err, repository.ErrLocationNotFound) {
				return nil, err
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// RescanReport summarises a batch re-scan.
type RescanReport struct {
	LarpID   uint64 `json:"larp_id"`
	Events   int    `json:"events"`
	Failed   int    `json:"failed"`
	Inserted int    `json:"inserted"`
}

// RescanLarp re-evaluates every non-cancelled event of the LARP, one
// transaction per event.  Individual failures are counted, not returned.
func (s *Service) RescanLarp(ctx context.Context, larpID uint64) (RescanReport, error) {
	rep := RescanReport{LarpID: larpID}
	var events []model.ScheduledEvent
	err := s.store.InTx(ctx, larpID, func(tx Tx) error {
		var err error
		events, err = tx.ListEvents(ctx, larpID)
		return err
	})
	if err != nil {
		return rep, err
	}
	for _, ev := range events {
		if ev.Cancelled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Events++
		res, err := s.Reevaluate(ctx, larpID, ev.ID)
		if err != nil {
			rep.Failed++
			continue
		}
		rep.Inserted += len(res.Inserted)
	}
	log.Printf("scheduler: rescan larp=%d events=%d inserted=%d failed=%d", larpID, rep.Events, rep.Inserted, rep.Failed)
	return rep, nil
}

// RescanAll re-scans every LARP.  It stops early only when ctx ends.
func (s *Service) RescanAll(ctx context.Context) ([]RescanReport, error) {
	var larps []model.Larp
	err := s.store.InTx(ctx, 0, func(tx Tx) error {
		var err error
		larps, err = tx.ListLarps(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	reports := make([]RescanReport, 0, len(larps))
	for _, l := range larps {
		rep, err := s.RescanLarp(ctx, l.ID)
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			log.Printf("scheduler: rescan larp=%d: %v", l.ID, err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
