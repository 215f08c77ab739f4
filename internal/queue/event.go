// Package queue carries planning messages over RabbitMQ: the conflict
// audit trail and asynchronous re-scan requests.
package queue

import (
	"time"

	"github.com/iliyamo/larp-planner/internal/model"
)

// ConflictDetectedEvent is published once per newly inserted conflict.  It
// carries enough context for the audit consumer to write a line without
// querying the database.
type ConflictDetectedEvent struct {
	ConflictID uint64   `json:"conflict_id"`
	LarpID     uint64   `json:"larp_id"`
	Type       string   `json:"type"`
	Severity   string   `json:"severity"`
	Key        string   `json:"key"`
	EventIDs   []uint64 `json:"event_ids"`
	ResourceID *uint64  `json:"resource_id,omitempty"`
	LocationID *uint64  `json:"location_id,omitempty"`
	Detail     string   `json:"detail"`
	DetectedAt string   `json:"detected_at"`
}

// NewConflictDetectedEvent flattens c into its wire form.
func NewConflictDetectedEvent(c model.Conflict) ConflictDetectedEvent {
	_, _, _, res, loc := model.SubjectColumns(c.Subjects)
	return ConflictDetectedEvent{
		ConflictID: c.ID,
		LarpID:     c.LarpID,
		Type:       string(c.Type),
		Severity:   c.Severity.String(),
		Key:        c.Key(),
		EventIDs:   c.Subjects.EventIDs(),
		ResourceID: res,
		LocationID: loc,
		Detail:     c.Detail,
		DetectedAt: c.DetectedAt.UTC().Format(time.RFC3339),
	}
}

// RescanRequested asks the worker to re-evaluate every event of a LARP.
type RescanRequested struct {
	LarpID      uint64 `json:"larp_id"`
	RequestedBy uint64 `json:"requested_by,omitempty"`
	RequestedAt string `json:"requested_at"`
}
