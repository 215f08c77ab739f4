package model

import "time"

// Larp is the organizational boundary for all planning data.  Every
// event, resource, location, booking and conflict belongs to exactly one
// LARP and no query ever crosses that boundary.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name, also used to derive calendar slugs.
//  CreatedAt – creation timestamp.
type Larp struct {
	ID        uint64    `json:"id"`         // larps.id
	Name      string    `json:"name"`       // larps.name
	CreatedAt time.Time `json:"created_at"` // larps.created_at
}

// Location is a physical place where scheduled events happen.  A nil
// Capacity means the location is never checked for overcapacity.
//
// Fields:
//  ID        – primary key identifier.
//  LarpID    – owning LARP.
//  Name      – human name (e.g. "Great Hall").
//  Capacity  – maximum number of simultaneous attendees (nullable).
//  CreatedAt – creation timestamp.
type Location struct {
	ID        uint64    `json:"id"`                 // locations.id
	LarpID    uint64    `json:"larp_id"`            // locations.larp_id
	Name      string    `json:"name"`               // locations.name
	Capacity  *int      `json:"capacity,omitempty"` // locations.capacity (nullable)
	CreatedAt time.Time `json:"created_at"`         // locations.created_at
}
