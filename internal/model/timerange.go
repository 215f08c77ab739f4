package model

import "time"

// TimeRange is a half-open interval [Start, End).  Two ranges overlap when
// a.Start < b.End && b.Start < a.End, so back-to-back ranges sharing an
// endpoint never overlap.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange builds a range from two instants.  It does not validate them;
// call Valid before trusting the result.
func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start, End: end}
}

// Valid reports whether the range is non-empty (Start strictly before End).
func (r TimeRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether r and o share at least one instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Contains reports whether o lies entirely inside r.
func (r TimeRange) Contains(o TimeRange) bool {
	return !o.Start.Before(r.Start) && !o.End.After(r.End)
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// UTC returns the range with both endpoints converted to UTC.
func (r TimeRange) UTC() TimeRange {
	return TimeRange{Start: r.Start.UTC(), End: r.End.UTC()}
}
