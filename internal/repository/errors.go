// Package repository defines the MySQL persistence layer for planning data
// and the sentinel errors shared by every store implementation.  Handlers
// and the scheduler distinguish failure scenarios with errors.Is against
// these values; the in-memory store in memrepo returns the same ones.
package repository

import "errors"

// ErrLarpNotFound is returned when the LARP id does not exist.
var ErrLarpNotFound = errors.New("larp not found")

// ErrEventNotFound is returned when a scheduled event does not exist or
// belongs to another LARP.
var ErrEventNotFound = errors.New("event not found")

// ErrResourceNotFound is returned when a planning resource does not exist
// or belongs to another LARP.
var ErrResourceNotFound = errors.New("resource not found")

// ErrLocationNotFound is returned when a location does not exist or
// belongs to another LARP.
var ErrLocationNotFound = errors.New("location not found")

// ErrBookingNotFound is returned by lookups of a single booking.  Unbook
// never surfaces it.
var ErrBookingNotFound = errors.New("booking not found")

// ErrConflictNotFound is returned when a conflict record does not exist
// or belongs to another LARP.
var ErrConflictNotFound = errors.New("conflict not found")
