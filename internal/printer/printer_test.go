package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

func noColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestConflictsTable(t *testing.T) {
	noColor(t)
	start := time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC)
	gwen := "Gwen"
	views := []scheduler.ConflictView{
		{
			Conflict: model.Conflict{ID: 5, Type: model.ConflictResourceDoubleBooking, Severity: model.SeverityCritical, Detail: "Herald double-booked"},
			Events: []scheduler.EventRef{
				{ID: 1, Title: "Audience", StartTime: start},
				{ID: 2, Title: "Duel", StartTime: start.Add(30 * time.Minute)},
			},
		},
		{
			Conflict:     model.Conflict{ID: 6, Type: model.ConflictStaffOverload, Severity: model.SeverityWarning, Detail: "over limit"},
			Events:       []scheduler.EventRef{{ID: 2, Title: "Duel", StartTime: start.Add(30 * time.Minute)}},
			ResourceName: &gwen,
		},
	}
	var buf bytes.Buffer
	assert.NoError(t, Conflicts(&buf, views))
	out := buf.String()
	assert.Contains(t, out, "RESOURCE_DOUBLE_BOOKING")
	assert.Contains(t, out, "#1 Audience (Fri 10:00) / #2 Duel (Fri 10:30)")
	assert.Contains(t, out, "resource Gwen")
	assert.Contains(t, out, "1 critical, 1 warning\n")
}

func TestConflictsEmpty(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	assert.NoError(t, Conflicts(&buf, nil))
	assert.Equal(t, "✓ no unresolved conflicts\n", buf.String())
}

func TestRescan(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	assert.NoError(t, Rescan(&buf, scheduler.RescanReport{LarpID: 2, Events: 4, Inserted: 1}))
	assert.Equal(t, "→ larp 2: 4 events re-evaluated, 1 new conflicts, 0 failed\n", buf.String())
}

func TestError(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	err := Error(&buf, "LARP not found", "No LARP with id 9.", "check the id", "create it first")
	assert.EqualError(t, err, "LARP not found")
	assert.Equal(t, "LARP not found\n\nNo LARP with id 9.\n\nEither:\n  1. check the id\n  2. create it first\n", buf.String())
}
