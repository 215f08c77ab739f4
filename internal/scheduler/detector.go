package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// Detector computes the conflicts touching one event.  It only reads from
// the transaction; writing is left to the ConflictLedger.
type Detector struct {
	policy Policy
}

// NewDetector returns a detector applying p.
func NewDetector(p Policy) *Detector {
	return &Detector{policy: p}
}

// Evaluate returns every violation currently involving ev, deduplicated by
// conflict key and in a deterministic order.  A cancelled event yields
// nothing.
func (d *Detector) Evaluate(ctx context.Context, tx Tx, ev model.ScheduledEvent) ([]model.Conflict, error) {
	if ev.Cancelled() {
		return nil, nil
	}
	candidates, err := tx.FindOverlappingEvents(ctx, ev.LarpID, ev.Range(), ev.ID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping events: %w", err)
	}
	byID := make(map[uint64]model.ScheduledEvent, len(candidates))
	for _, c := range candidates {
		if c.ID == ev.ID || c.Cancelled() || c.LarpID != ev.LarpID || !c.Range().Overlaps(ev.Range()) {
			continue
		}
		byID[c.ID] = c
	}
	ordered := make([]model.ScheduledEvent, 0, len(byID))
	for _, c := range candidates {
		if _, ok := byID[c.ID]; ok {
			ordered = append(ordered, c)
		}
	}

	own, err := tx.FindBookingsByEvent(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("find bookings of event %d: %w", ev.ID, err)
	}

	p := pass{ev: ev, candidates: byID, related: map[uint64]bool{}, set: newConflictSet(ev.LarpID)}
	if err := d.checkResources(ctx, tx, &p, own); err != nil {
		return nil, err
	}
	if err := d.checkLocation(ctx, tx, &p, len(own)); err != nil {
		return nil, err
	}
	d.checkCharacters(&p, ordered)
	if d.policy.TimelineOverlap {
		d.checkTimeline(&p, ordered)
	}
	return p.set.list(), nil
}

// pass carries the state of one evaluation.
type pass struct {
	ev         model.ScheduledEvent
	candidates map[uint64]model.ScheduledEvent
	// related marks candidates linked to ev by a resource, character or
	// location match; TimelineOverlap skips them.
	related map[uint64]bool
	set     *conflictSet
}

// checkResources covers double booking and staff overload, which both
// start from the changed event's own bookings.
func (d *Detector) checkResources(ctx context.Context, tx Tx, p *pass, own []model.ResourceBooking) error {
	ledger := Bookings(tx)
	for _, b := range own {
		res, err := tx.GetResource(ctx, b.ResourceID)
		if err != nil {
			return fmt.Errorf("load resource %d: %w", b.ResourceID, err)
		}
		others, err := ledger.FindOverlapping(ctx, res.ID, b.Range, p.ev.ID)
		if err != nil {
			return fmt.Errorf("find bookings of resource %d: %w", res.ID, err)
		}
		var spans []span
		for _, o := range others {
			cand, ok := p.candidates[o.EventID]
			if !ok {
				continue
			}
			spans = append(spans, span{r: o.Range, load: 1})
			p.related[cand.ID] = true
			if !res.Shareable {
				p.set.add(model.ConflictResourceDoubleBooking, model.SeverityCritical,
					model.NewEventPair(p.ev.ID, cand.ID),
					fmt.Sprintf("%q is booked to %q and %q at overlapping times", res.Name, p.ev.Title, cand.Title))
			}
		}
		if res.Type.IsStaff() {
			concurrent := 1 + peakLoad(b.Range, spans)
			if limit := d.policy.staffLimit(res.Type); concurrent > limit {
				p.set.add(model.ConflictStaffOverload, model.SeverityWarning,
					model.EventAndResource{Event: p.ev.ID, Resource: res.ID},
					fmt.Sprintf("%s %q carries %d concurrent bookings during %q (limit %d)", res.Type, res.Name, concurrent, p.ev.Title, limit))
			}
		}
	}
	return nil
}

func (d *Detector) checkLocation(ctx context.Context, tx Tx, p *pass, ownBookings int) error {
	for _, c := range p.candidates {
		if p.ev.SameLocation(c) {
			p.related[c.ID] = true
		}
	}
	if p.ev.LocationID == nil {
		return nil
	}
	loc, err := tx.GetLocation(ctx, *p.ev.LocationID)
	if err != nil {
		return fmt.Errorf("load location %d: %w", *p.ev.LocationID, err)
	}
	if loc.Capacity == nil {
		return nil
	}
	occupants, err := tx.FindLocationOccupancy(ctx, loc.ID, p.ev.Range())
	if err != nil {
		return fmt.Errorf("find occupancy of location %d: %w", loc.ID, err)
	}

	own := p.ev.ParticipantCount
	if d.policy.CountBookedResources {
		own += ownBookings
	}
	var spans []span
	var latest *model.ScheduledEvent
	for i := range occupants {
		o := occupants[i]
		if o.ID == p.ev.ID || o.Cancelled() || !o.Range().Overlaps(p.ev.Range()) {
			continue
		}
		n := o.ParticipantCount
		if d.policy.CountBookedResources {
			bs, err := tx.FindBookingsByEvent(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("find bookings of event %d: %w", o.ID, err)
			}
			n += len(bs)
		}
		spans = append(spans, span{r: o.Range(), load: n})
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) || (o.CreatedAt.Equal(latest.CreatedAt) && o.ID > latest.ID) {
			latest = &o
		}
	}
	total := own + peakLoad(p.ev.Range(), spans)
	if total <= *loc.Capacity {
		return nil
	}
	detail := fmt.Sprintf("%q expects %d attendees against a capacity of %d", loc.Name, total, *loc.Capacity)
	if latest == nil {
		p.set.add(model.ConflictLocationCapacity, model.SeverityWarning,
			model.EventAndLocation{Event: p.ev.ID, Location: loc.ID}, detail)
		return nil
	}
	p.set.add(model.ConflictLocationCapacity, model.SeverityWarning, model.NewEventPair(p.ev.ID, latest.ID), detail)
	return nil
}

// span is a load held over a range.
type span struct {
	r    model.TimeRange
	load int
}

// peakLoad returns the largest summed load present at any single instant of
// window.  Spans are clipped to window; at equal instants ends are applied
// before starts, so back-to-back spans never add up.
func peakLoad(window model.TimeRange, spans []span) int {
	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, 2*len(spans))
	for _, s := range spans {
		start, end := s.r.Start, s.r.End
		if start.Before(window.Start) {
			start = window.Start
		}
		if end.After(window.End) {
			end = window.End
		}
		if !start.Before(end) || s.load == 0 {
			continue
		}
		edges = append(edges, edge{start, s.load}, edge{end, -s.load})
	}
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].at.Equal(edges[j].at) {
			return edges[i].at.Before(edges[j].at)
		}
		return edges[i].delta < edges[j].delta
	})
	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}

func (d *Detector) checkCharacters(p *pass, ordered []model.ScheduledEvent) {
	if len(p.ev.CharacterIDs) == 0 {
		return
	}
	for _, c := range ordered {
		var shared []string
		for _, id := range p.ev.CharacterIDs {
			if c.InvolvesCharacter(id) {
				shared = append(shared, fmt.Sprintf("#%d", id))
			}
		}
		if len(shared) == 0 {
			continue
		}
		p.related[c.ID] = true
		p.set.add(model.ConflictCharacterImpossible, model.SeverityCritical, model.NewEventPair(p.ev.ID, c.ID),
			fmt.Sprintf("character %s appears in %q and %q at overlapping times", strings.Join(shared, ", "), p.ev.Title, c.Title))
	}
}

func (d *Detector) checkTimeline(p *pass, ordered []model.ScheduledEvent) {
	for _, c := range ordered {
		if p.related[c.ID] || !p.ev.SameThread(c) {
			continue
		}
		p.set.add(model.ConflictTimelineOverlap, model.SeverityInfo, model.NewEventPair(p.ev.ID, c.ID),
			fmt.Sprintf("%q and %q overlap within the same story thread", p.ev.Title, c.Title))
	}
}

// conflictSet keeps the first conflict per key in insertion order.
type conflictSet struct {
	larpID uint64
	seen   map[string]bool
	items  []model.Conflict
}

func newConflictSet(larpID uint64) *conflictSet {
	return &conflictSet{larpID: larpID, seen: map[string]bool{}}
}

func (s *conflictSet) add(typ model.ConflictType, sev model.Severity, subj model.Subjects, detail string) {
	c, err := model.NewConflict(s.larpID, typ, sev, subj, detail)
	if err != nil {
		// Only reachable through a programming error in the checks above.
		panic(err)
	}
	if s.seen[c.Key()] {
		return
	}
	s.seen[c.Key()] = true
	s.items = append(s.items, c)
}

func (s *conflictSet) list() []model.Conflict {
	out := make([]model.Conflict, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out
}
