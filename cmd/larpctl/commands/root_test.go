package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/larp-planner/internal/repository/memrepo"
	"github.com/iliyamo/larp-planner/internal/scheduler"
	"github.com/iliyamo/larp-planner/internal/utils"
)

type memBackend struct {
	svc        *scheduler.Service
	migrations int
	migrateErr error
}

func (b *memBackend) Service(context.Context) (*scheduler.Service, error) { return b.svc, nil }
func (b *memBackend) Migrate(context.Context) error                        { b.migrations++; return b.migrateErr }
func (b *memBackend) Close() error                                         { return nil }

// seeded returns a backend whose LARP 1 has the Herald booked twice at once.
func seeded(t *testing.T) *memBackend {
	t.Helper()
	ctx := context.Background()
	svc := scheduler.NewService(memrepo.New(nil), scheduler.DefaultPolicy())
	larp, err := svc.CreateLarp(ctx, "Crown of Ash")
	require.NoError(t, err)
	herald, err := svc.CreateResource(ctx, larp.ID, scheduler.ResourceInput{Type: "npc", Name: "Herald"})
	require.NoError(t, err)
	start := time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC)
	for i, title := range []string{"Audience", "Duel"} {
		s := start.Add(time.Duration(i) * 30 * time.Minute)
		ev, err := svc.CreateEvent(ctx, larp.ID, scheduler.EventInput{Title: title, StartTime: s, EndTime: s.Add(time.Hour), Status: "CONFIRMED"})
		require.NoError(t, err)
		_, err = svc.Book(ctx, larp.ID, scheduler.BookingRequest{ResourceID: herald.ID, EventID: ev.ID})
		require.NoError(t, err)
	}
	return &memBackend{svc: svc}
}

func run(t *testing.T, b Backend, args ...string) (string, string, error) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	root := NewRootCommand(b, &out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestMigrate(t *testing.T) {
	b := &memBackend{}
	out, _, err := run(t, b, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "✓ schema up to date\n", out)
	assert.Equal(t, 1, b.migrations)

	b.migrateErr = errors.New("access denied")
	_, errOut, err := run(t, b, "migrate")
	assert.EqualError(t, err, "Migration failed")
	assert.Contains(t, errOut, "access denied")
}

func TestConflictsTableAndJSON(t *testing.T) {
	b := seeded(t)

	out, _, err := run(t, b, "conflicts", "--larp", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "RESOURCE_DOUBLE_BOOKING")
	assert.Contains(t, out, "1 critical")

	out, _, err = run(t, b, "conflicts", "--larp", "1", "--json")
	require.NoError(t, err)
	var views []struct {
		Conflict struct {
			Severity string `json:"severity"`
		} `json:"conflict"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "CRITICAL", views[0].Conflict.Severity)

	_, errOut, err := run(t, b, "conflicts", "--larp", "42")
	assert.EqualError(t, err, "LARP not found")
	assert.Contains(t, errOut, "No LARP with id 42.")

	_, _, err = run(t, b, "conflicts")
	assert.Error(t, err)
}

func TestRescan(t *testing.T) {
	b := seeded(t)

	out, _, err := run(t, b, "rescan", "--larp", "1")
	require.NoError(t, err)
	assert.Equal(t, "→ larp 1: 2 events re-evaluated, 0 new conflicts, 0 failed\n", out)

	out, _, err = run(t, b, "rescan", "--all")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "→ larp"))

	_, _, err = run(t, b, "rescan")
	assert.EqualError(t, err, "Nothing to re-scan")
	_, _, err = run(t, b, "rescan", "--larp", "1", "--all")
	assert.EqualError(t, err, "Nothing to re-scan")
}

func TestToken(t *testing.T) {
	out, _, err := run(t, &memBackend{}, "token", "--user", "7", "--role", "organizer", "--secret", "s3cret")
	require.NoError(t, err)
	raw := strings.SplitN(out, "\n", 2)[0]
	id, role, err := utils.ParseAccessToken("s3cret", raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.Equal(t, utils.RoleOrganizer, role)

	_, _, err = run(t, &memBackend{}, "token", "--user", "7", "--role", "PLAYER", "--secret", "s3cret")
	assert.EqualError(t, err, "Unsupported role")
	_, _, err = run(t, &memBackend{}, "token", "--user", "0", "--secret", "s3cret")
	assert.EqualError(t, err, "Missing user")
}
