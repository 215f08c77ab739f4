package model

import (
	"fmt"
	"strings"
	"time"
)

// ResourceType classifies a planning resource.
type ResourceType string

const (
	ResourceNPC         ResourceType = "npc"
	ResourceStaffGM     ResourceType = "staff-gm"
	ResourceStaffTech   ResourceType = "staff-tech"
	ResourceStaffSafety ResourceType = "staff-safety"
	ResourceStaffPhoto  ResourceType = "staff-photo"
	ResourceProp        ResourceType = "prop"
	ResourceEquipment   ResourceType = "equipment"
	ResourceVehicle     ResourceType = "vehicle"
	ResourceOther       ResourceType = "other"
)

var resourceTypes = map[ResourceType]bool{
	ResourceNPC: true, ResourceStaffGM: true, ResourceStaffTech: true,
	ResourceStaffSafety: true, ResourceStaffPhoto: true, ResourceProp: true,
	ResourceEquipment: true, ResourceVehicle: true, ResourceOther: true,
}

// ParseResourceType converts a user supplied string into a ResourceType.
// Underscores are accepted in place of dashes ("staff_gm").
func ParseResourceType(s string) (ResourceType, error) {
	v := ResourceType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if resourceTypes[v] {
		return v, nil
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

// IsStaff reports whether the type is one of the staff roles.
func (t ResourceType) IsStaff() bool {
	return strings.HasPrefix(string(t), "staff-")
}

// PlanningResource is an allocatable thing owned by a LARP.  When
// Shareable is false at most one active booking should cover any instant;
// this is reported by conflict detection rather than enforced on write.
//
// Fields:
//  ID             – primary key identifier.
//  LarpID         – owning LARP.
//  Type           – resource classification.
//  Name           – human readable name (e.g. "Herald").
//  Shareable      – whether overlapping bookings are acceptable.
//  AvailableFrom  – start of the availability window (nullable).
//  AvailableUntil – end of the availability window (nullable).
//  CreatedAt      – creation timestamp.
type PlanningResource struct {
	ID             uint64       `json:"id"`                        // planning_resources.id
	LarpID         uint64       `json:"larp_id"`                   // planning_resources.larp_id
	Type           ResourceType `json:"type"`                      // planning_resources.type
	Name           string       `json:"name"`                      // planning_resources.name
	Shareable      bool         `json:"shareable"`                 // planning_resources.shareable
	AvailableFrom  *time.Time   `json:"available_from,omitempty"`  // planning_resources.available_from (nullable)
	AvailableUntil *time.Time   `json:"available_until,omitempty"` // planning_resources.available_until (nullable)
	CreatedAt      time.Time    `json:"created_at"`                // planning_resources.created_at
}

// Accepts reports whether r lies inside the resource's availability
// window.  Either bound may be open.
func (p PlanningResource) Accepts(r TimeRange) bool {
	if p.AvailableFrom != nil && r.Start.Before(*p.AvailableFrom) {
		return false
	}
	if p.AvailableUntil != nil && r.End.After(*p.AvailableUntil) {
		return false
	}
	return true
}
