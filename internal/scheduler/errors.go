package scheduler

import "errors"

// ErrInvalidRange is returned when an event or booking time range is
// empty, inverted, or falls outside the bounds it must respect (the
// booked event's range or the resource's availability window).
var ErrInvalidRange = errors.New("invalid range")

// ErrInvalidInput is returned for missing or malformed fields other than
// time ranges.
var ErrInvalidInput = errors.New("invalid input")

// ErrEventCancelled is returned when booking a resource to, or editing, a
// cancelled event.
var ErrEventCancelled = errors.New("event is cancelled")

// ErrDetectionFailed wraps any failure of a reconciliation pass.  The
// mutation that triggered the pass is never rolled back because of it.
var ErrDetectionFailed = errors.New("conflict detection failed")
