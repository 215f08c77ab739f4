package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConflictType names the rule a conflict violates.
type ConflictType string

const (
	ConflictResourceDoubleBooking ConflictType = "RESOURCE_DOUBLE_BOOKING"
	ConflictLocationCapacity      ConflictType = "LOCATION_CAPACITY"
	ConflictCharacterImpossible   ConflictType = "CHARACTER_IMPOSSIBLE"
	ConflictTimelineOverlap       ConflictType = "TIMELINE_OVERLAP"
	ConflictStaffOverload         ConflictType = "STAFF_OVERLOAD"
)

// Severity orders conflicts by urgency.  Higher values are more severe.
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarning
	SeverityCritical
)

// String returns the upper-case name used in storage and JSON.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo, nil
	case "WARNING":
		return SeverityWarning, nil
	case "CRITICAL":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SubjectKind discriminates the Subjects variants.
type SubjectKind string

const (
	SubjectEventPair        SubjectKind = "EVENT_PAIR"
	SubjectEventAndResource SubjectKind = "EVENT_RESOURCE"
	SubjectEventAndLocation SubjectKind = "EVENT_LOCATION"
)

// Subjects identifies what a conflict is about.  The set of
// implementations is closed: EventPair, EventAndResource and
// EventAndLocation.
type Subjects interface {
	Kind() SubjectKind
	// Key is the deterministic identity used for reconciliation.
	Key() string
	// EventIDs lists every event the conflict references.
	EventIDs() []uint64
	subjects()
}

// EventPair references two distinct events.  First is always the lower id.
type EventPair struct {
	First  uint64 `json:"first"`
	Second uint64 `json:"second"`
}

// NewEventPair orders the ids so that {a,b} and {b,a} compare equal.
func NewEventPair(a, b uint64) EventPair {
	if b < a {
		a, b = b, a
	}
	return EventPair{First: a, Second: b}
}

func (p EventPair) Kind() SubjectKind  { return SubjectEventPair }
func (p EventPair) Key() string        { return "e:" + u(p.First) + ":e:" + u(p.Second) }
func (p EventPair) EventIDs() []uint64 { return []uint64{p.First, p.Second} }
func (EventPair) subjects()            {}

// EventAndResource references one event and one resource.
type EventAndResource struct {
	Event    uint64 `json:"event"`
	Resource uint64 `json:"resource"`
}

func (s EventAndResource) Kind() SubjectKind  { return SubjectEventAndResource }
func (s EventAndResource) Key() string        { return "e:" + u(s.Event) + ":r:" + u(s.Resource) }
func (s EventAndResource) EventIDs() []uint64 { return []uint64{s.Event} }
func (EventAndResource) subjects()            {}

// EventAndLocation references one event and one location.
type EventAndLocation struct {
	Event    uint64 `json:"event"`
	Location uint64 `json:"location"`
}

func (s EventAndLocation) Kind() SubjectKind  { return SubjectEventAndLocation }
func (s EventAndLocation) Key() string        { return "e:" + u(s.Event) + ":l:" + u(s.Location) }
func (s EventAndLocation) EventIDs() []uint64 { return []uint64{s.Event} }
func (EventAndLocation) subjects()            {}

func u(v uint64) string { return strconv.FormatUint(v, 10) }

// ErrInvalidSubjects is returned when a conflict type is paired with a
// subject variant it does not support.
var ErrInvalidSubjects = errors.New("invalid conflict subjects")

// Conflict is a detected rule violation.  Conflicts are created only by
// the detector and mutated only to record their resolution.
//
// Fields:
//  ID             – primary key identifier.
//  LarpID         – owning LARP.
//  Type           – violated rule.
//  Severity       – urgency.
//  Subjects       – implicated events/resource/location.
//  Detail         – human readable explanation.
//  DetectedAt     – when the detector recorded the conflict.
//  Resolved       – whether an organizer acknowledged it.
//  ResolutionNote – optional organizer note.
//  ResolvedAt     – when it was resolved (nullable).
//  ResolvedBy     – organizer who resolved it (nullable).
type Conflict struct {
	ID             uint64       `json:"id"`
	LarpID         uint64       `json:"larp_id"`
	Type           ConflictType `json:"type"`
	Severity       Severity     `json:"severity"`
	Subjects       Subjects     `json:"-"`
	Detail         string       `json:"detail"`
	DetectedAt     time.Time    `json:"detected_at"`
	Resolved       bool         `json:"resolved"`
	ResolutionNote *string      `json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy     *uint64      `json:"resolved_by,omitempty"`
}

// NewConflict validates the type/subjects combination and returns an
// unresolved conflict.
func NewConflict(larpID uint64, typ ConflictType, sev Severity, subj Subjects, detail string) (Conflict, error) {
	if err := ValidateSubjects(typ, subj); err != nil {
		return Conflict{}, err
	}
	return Conflict{LarpID: larpID, Type: typ, Severity: sev, Subjects: subj, Detail: detail}, nil
}

// ValidateSubjects checks that the subject variant is allowed for typ.
func ValidateSubjects(typ ConflictType, subj Subjects) error {
	if subj == nil {
		return fmt.Errorf("%w: %s without subjects", ErrInvalidSubjects, typ)
	}
	switch typ {
	case ConflictResourceDoubleBooking, ConflictCharacterImpossible, ConflictTimelineOverlap:
		if p, ok := subj.(EventPair); ok && p.First != p.Second {
			return nil
		}
	case ConflictStaffOverload:
		if _, ok := subj.(EventAndResource); ok {
			return nil
		}
	case ConflictLocationCapacity:
		switch s := subj.(type) {
		case EventPair:
			if s.First != s.Second {
				return nil
			}
		case EventAndLocation:
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown conflict type %q", ErrInvalidSubjects, typ)
	}
	return fmt.Errorf("%w: %s cannot reference %s", ErrInvalidSubjects, typ, subj.Kind())
}

// Key identifies the violation independently of its record id.  Two
// conflicts with equal keys describe the same clash.
func (c Conflict) Key() string {
	if c.Subjects == nil {
		return string(c.Type)
	}
	return string(c.Type) + ":" + c.Subjects.Key()
}

// References reports whether the conflict mentions the event.
func (c Conflict) References(eventID uint64) bool {
	if c.Subjects == nil {
		return false
	}
	for _, id := range c.Subjects.EventIDs() {
		if id == eventID {
			return true
		}
	}
	return false
}

// SubjectColumns flattens Subjects into the nullable columns used by
// storage: event1 is always set, the other three are optional.
func SubjectColumns(s Subjects) (kind SubjectKind, event1 uint64, event2, resource, location *uint64) {
	switch v := s.(type) {
	case EventPair:
		second := v.Second
		return v.Kind(), v.First, &second, nil, nil
	case EventAndResource:
		r := v.Resource
		return v.Kind(), v.Event, nil, &r, nil
	case EventAndLocation:
		l := v.Location
		return v.Kind(), v.Event, nil, nil, &l
	}
	return "", 0, nil, nil, nil
}

// SubjectsFromColumns rebuilds the variant from storage columns.
func SubjectsFromColumns(kind SubjectKind, event1 uint64, event2, resource, location *uint64) (Subjects, error) {
	switch kind {
	case SubjectEventPair:
		if event2 != nil {
			return NewEventPair(event1, *event2), nil
		}
	case SubjectEventAndResource:
		if resource != nil {
			return EventAndResource{Event: event1, Resource: *resource}, nil
		}
	case SubjectEventAndLocation:
		if location != nil {
			return EventAndLocation{Event: event1, Location: *location}, nil
		}
	}
	return nil, fmt.Errorf("%w: kind %q with missing columns", ErrInvalidSubjects, kind)
}

// subjectsJSON is the wire form of Subjects.
type subjectsJSON struct {
	Kind     SubjectKind `json:"kind"`
	Events   []uint64    `json:"events"`
	Resource *uint64     `json:"resource_id,omitempty"`
	Location *uint64     `json:"location_id,omitempty"`
}

// MarshalJSON embeds the subjects variant as a discriminated object.
func (c Conflict) MarshalJSON() ([]byte, error) {
	type plain Conflict
	out := struct {
		plain
		Subjects subjectsJSON `json:"subjects"`
	}{plain: plain(c)}
	if c.Subjects != nil {
		kind, _, _, res, loc := SubjectColumns(c.Subjects)
		out.Subjects = subjectsJSON{Kind: kind, Events: c.Subjects.EventIDs(), Resource: res, Location: loc}
	}
	return json.Marshal(out)
}
