package scheduler

import (
	"fmt"

	"github.com/iliyamo/larp-planner/internal/model"
)

// Policy holds the tunable thresholds of conflict detection.
type Policy struct {
	// StaffMaxConcurrent is the number of simultaneous bookings a staff
	// resource may carry before StaffOverload is reported.  1 means any
	// overlap is an overload.
	StaffMaxConcurrent int
	// StaffMaxConcurrentByType overrides StaffMaxConcurrent per staff type.
	StaffMaxConcurrentByType map[model.ResourceType]int
	// CountBookedResources adds each event's booking count to its expected
	// attendance when checking location capacity.
	CountBookedResources bool
	// TimelineOverlap enables the INFO-level same-thread overlap notice.
	TimelineOverlap bool
}

// DefaultPolicy returns the policy used when no policy file is configured.
func DefaultPolicy() Policy {
	return Policy{
		StaffMaxConcurrent:   1,
		CountBookedResources: true,
		TimelineOverlap:      true,
	}
}

// Validate rejects thresholds below one and overrides for non-staff types.
func (p Policy) Validate() error {
	if p.StaffMaxConcurrent < 1 {
		return fmt.Errorf("staff max concurrent must be at least 1, got %d", p.StaffMaxConcurrent)
	}
	for t, n := range p.StaffMaxConcurrentByType {
		if !t.IsStaff() {
			return fmt.Errorf("staff override for non-staff type %q", t)
		}
		if n < 1 {
			return fmt.Errorf("staff max concurrent for %s must be at least 1, got %d", t, n)
		}
	}
	return nil
}

func (p Policy) staffLimit(t model.ResourceType) int {
	if n, ok := p.StaffMaxConcurrentByType[t]; ok {
		return n
	}
	return p.StaffMaxConcurrent
}
