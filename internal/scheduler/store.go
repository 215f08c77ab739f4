package scheduler

import (
	"context"
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// LarpStore reads and creates LARPs.
type LarpStore interface {
	GetLarp(ctx context.Context, id uint64) (model.Larp, error)
	ListLarps(ctx context.Context) ([]model.Larp, error)
	CreateLarp(ctx context.Context, l *model.Larp) error
}

// LocationStore reads and creates locations.
type LocationStore interface {
	GetLocation(ctx context.Context, id uint64) (model.Location, error)
	ListLocations(ctx context.Context, larpID uint64) ([]model.Location, error)
	CreateLocation(ctx context.Context, l *model.Location) error
}

// EventStore is the Scheduled Event Store.  Overlap queries use the
// half-open test and never return cancelled events.
type EventStore interface {
	GetEvent(ctx context.Context, id uint64) (model.ScheduledEvent, error)
	ListEvents(ctx context.Context, larpID uint64) ([]model.ScheduledEvent, error)
	// FindOverlappingEvents returns non-cancelled events of the LARP whose
	// range overlaps r, ordered by start time then id.  excludeEventID 0
	// excludes nothing.
	FindOverlappingEvents(ctx context.Context, larpID uint64, r model.TimeRange, excludeEventID uint64) ([]model.ScheduledEvent, error)
	// FindLocationOccupancy returns non-cancelled events at the location
	// whose range overlaps r.
	FindLocationOccupancy(ctx context.Context, locationID uint64, r model.TimeRange) ([]model.ScheduledEvent, error)
	CreateEvent(ctx context.Context, e *model.ScheduledEvent) error
	UpdateEvent(ctx context.Context, e *model.ScheduledEvent) error
}

// ResourceStore is the Resource Catalog.  DeleteResource also removes the
// resource's bookings.
type ResourceStore interface {
	GetResource(ctx context.Context, id uint64) (model.PlanningResource, error)
	ListResources(ctx context.Context, larpID uint64) ([]model.PlanningResource, error)
	CreateResource(ctx context.Context, r *model.PlanningResource) error
	DeleteResource(ctx context.Context, id uint64) error
}

// BookingStore persists the Booking Ledger.  Returned bookings always
// carry their effective Range.
type BookingStore interface {
	GetBooking(ctx context.Context, id uint64) (model.ResourceBooking, error)
	CreateBooking(ctx context.Context, b *model.ResourceBooking) error
	// DeleteBooking is a no-op when the booking does not exist.
	DeleteBooking(ctx context.Context, id uint64) error
	DeleteBookingsForEvent(ctx context.Context, eventID uint64) (int64, error)
	FindBookingsByEvent(ctx context.Context, eventID uint64) ([]model.ResourceBooking, error)
	FindBookingsByResource(ctx context.Context, resourceID uint64) ([]model.ResourceBooking, error)
	// FindBookingsForResource returns bookings of the resource on
	// non-cancelled events whose effective range overlaps r.
	FindBookingsForResource(ctx context.Context, resourceID uint64, r model.TimeRange, excludeEventID uint64) ([]model.ResourceBooking, error)
}

// ConflictStore persists the Conflict Ledger.
type ConflictStore interface {
	GetConflict(ctx context.Context, id uint64) (model.Conflict, error)
	// FindOpenConflict returns the unresolved conflict with the key, or
	// nil when there is none.
	FindOpenConflict(ctx context.Context, larpID uint64, key string) (*model.Conflict, error)
	// InsertConflict stores c unless an unresolved conflict with the same
	// key exists, reporting whether a row was written.
	InsertConflict(ctx context.Context, c *model.Conflict) (bool, error)
	ListUnresolvedConflicts(ctx context.Context, larpID uint64) ([]model.Conflict, error)
	ListConflictsForEvent(ctx context.Context, eventID uint64) ([]model.Conflict, error)
	ResolveConflict(ctx context.Context, id uint64, note *string, by *uint64, at time.Time) error
}

// Tx is the set of repositories available inside one transaction.
type Tx interface {
	LarpStore
	LocationStore
	EventStore
	ResourceStore
	BookingStore
	ConflictStore
}

// Store opens transactions.  All reads and writes of one reconciliation
// pass run inside a single InTx call, serialized per LARP.  A larpID of 0
// opens a transaction without taking the LARP lock (used to create
// LARPs).  Returning an error from fn rolls every write back.
type Store interface {
	InTx(ctx context.Context, larpID uint64, fn func(tx Tx) error) error
}
