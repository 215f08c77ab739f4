package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/larp-planner/internal/config"
	"github.com/iliyamo/larp-planner/internal/handler"
	"github.com/iliyamo/larp-planner/internal/repository/memrepo"
	"github.com/iliyamo/larp-planner/internal/router"
	"github.com/iliyamo/larp-planner/internal/scheduler"
	"github.com/iliyamo/larp-planner/internal/utils"
)

const secret = "s3cret"

type fakeQueue struct {
	err      error
	requests []uint64
}

func (q *fakeQueue) RequestRescan(_ context.Context, larpID, _ uint64) error {
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, larpID)
	return nil
}

type api struct {
	t     *testing.T
	e     *echo.Echo
	queue *fakeQueue
	token string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := scheduler.NewService(memrepo.New(time.Now), scheduler.DefaultPolicy())
	q := &fakeQueue{}
	h := handler.NewPlanningHandler(svc, q)
	h.Now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Planning:  h,
		JWTSecret: secret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(config.MapEnv(map[string]string{"RATE_LIMIT_CAPACITY": "500"})),
		Cache:     config.LoadCacheConfig(config.MapEnv(nil)),
	})
	tok, err := utils.NewAccessToken(secret, 7, utils.RoleOrganizer, 5)
	require.NoError(t, err)
	return &api{t: t, e: e, queue: q, token: tok.Token}
}

func (a *api) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if a.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// ok performs the request, checks the status and decodes the body into out.
func (a *api) ok(status int, method, path string, body, out any) *httptest.ResponseRecorder {
	a.t.Helper()
	rec := a.do(method, path, body)
	require.Equal(a.t, status, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

type idJSON struct {
	ID uint64 `json:"id"`
}

type conflictItems struct {
	Items []struct {
		Conflict struct {
			ID         uint64  `json:"id"`
			Type       string  `json:"type"`
			Severity   string  `json:"severity"`
			Resolved   bool    `json:"resolved"`
			ResolvedBy *uint64 `json:"resolved_by"`
		} `json:"conflict"`
		Events []struct {
			Title string `json:"title"`
		} `json:"events"`
	} `json:"items"`
}

func ts(hhmm string) string { return "2026-06-12T" + hhmm + ":00Z" }

// seed creates a LARP with the Herald double-booked at 10:00 and 10:30.
func (a *api) seed() (larp string, audience, duel uint64) {
	var l idJSON
	a.ok(http.StatusCreated, http.MethodPost, "/v1/larps", map[string]any{"name": "Crown of Ash"}, &l)
	larp = "/v1/larps/" + itoa(l.ID)

	var herald idJSON
	a.ok(http.StatusCreated, http.MethodPost, larp+"/resources", map[string]any{"type": "npc", "name": "Herald"}, &herald)

	var e1, e2 idJSON
	a.ok(http.StatusCreated, http.MethodPost, larp+"/events", map[string]any{
		"title": "Throne Room Audience", "start_time": ts("10:00"), "end_time": ts("11:00"), "status": "CONFIRMED",
	}, &e1)
	a.ok(http.StatusCreated, http.MethodPost, larp+"/events", map[string]any{
		"title": "Duel at Dawn", "start_time": ts("10:30"), "end_time": ts("11:30"), "status": "CONFIRMED",
	}, &e2)
	a.ok(http.StatusCreated, http.MethodPost, larp+"/bookings", map[string]any{"resource_id": herald.ID, "event_id": e1.ID}, nil)
	a.ok(http.StatusCreated, http.MethodPost, larp+"/bookings", map[string]any{"resource_id": herald.ID, "event_id": e2.ID}, nil)
	return larp, e1.ID, e2.ID
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }

func TestHealthIsPublic(t *testing.T) {
	a := newAPI(t)
	a.token = ""
	rec := a.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/v1/larps", map[string]any{"name": "x"}).Code)
}

func TestPlayersAreForbidden(t *testing.T) {
	a := newAPI(t)
	tok, err := utils.NewAccessToken(secret, 8, "PLAYER", 5)
	require.NoError(t, err)
	a.token = tok.Token
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/larps", map[string]any{"name": "x"}).Code)
}

func TestDoubleBookingLifecycle(t *testing.T) {
	a := newAPI(t)
	larp, audience, _ := a.seed()

	var open conflictItems
	rec := a.ok(http.StatusOK, http.MethodGet, larp+"/conflicts", nil, &open)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.Len(t, open.Items, 1)
	c := open.Items[0].Conflict
	assert.Equal(t, "RESOURCE_DOUBLE_BOOKING", c.Type)
	assert.Equal(t, "CRITICAL", c.Severity)
	assert.Len(t, open.Items[0].Events, 2)

	rec = a.ok(http.StatusOK, http.MethodGet, larp+"/conflicts", nil, nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	var resolved struct {
		Conflict struct {
			Resolved   bool    `json:"resolved"`
			ResolvedBy *uint64 `json:"resolved_by"`
		} `json:"conflict"`
	}
	a.ok(http.StatusOK, http.MethodPost, larp+"/conflicts/"+itoa(c.ID)+"/resolve", map[string]any{"note": "herald doubles"}, &resolved)
	assert.True(t, resolved.Conflict.Resolved)
	require.NotNil(t, resolved.Conflict.ResolvedBy)
	assert.Equal(t, uint64(7), *resolved.Conflict.ResolvedBy)

	var after conflictItems
	rec = a.ok(http.StatusOK, http.MethodGet, larp+"/conflicts", nil, &after)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Empty(t, after.Items)

	// The situation still exists, so the next pass records it again.
	var pass struct {
		Found    int               `json:"found"`
		Inserted []json.RawMessage `json:"inserted"`
	}
	a.ok(http.StatusOK, http.MethodPost, larp+"/events/"+itoa(audience)+"/reevaluate", nil, &pass)
	assert.Equal(t, 1, pass.Found)
	assert.Len(t, pass.Inserted, 1)

	var history conflictItems
	a.ok(http.StatusOK, http.MethodGet, larp+"/events/"+itoa(audience)+"/conflicts", nil, &history)
	require.Len(t, history.Items, 2)
	assert.False(t, history.Items[0].Conflict.Resolved)
	assert.True(t, history.Items[1].Conflict.Resolved)
}

func TestCancelledEventsRejectChanges(t *testing.T) {
	a := newAPI(t)
	larp, audience, duel := a.seed()

	var ev struct {
		Status string `json:"status"`
	}
	a.ok(http.StatusOK, http.MethodPost, larp+"/events/"+itoa(duel)+"/cancel", nil, &ev)
	assert.Equal(t, "CANCELLED", ev.Status)

	var bookings struct {
		Items []json.RawMessage `json:"items"`
	}
	a.ok(http.StatusOK, http.MethodGet, larp+"/events/"+itoa(duel)+"/bookings", nil, &bookings)
	assert.Empty(t, bookings.Items)

	var extra idJSON
	a.ok(http.StatusCreated, http.MethodPost, larp+"/resources", map[string]any{"type": "prop", "name": "Crown"}, &extra)
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, larp+"/bookings", map[string]any{"resource_id": extra.ID, "event_id": duel}).Code)

	var pass struct {
		Found int `json:"found"`
	}
	a.ok(http.StatusOK, http.MethodPost, larp+"/events/"+itoa(audience)+"/reevaluate", nil, &pass)
	assert.Equal(t, 0, pass.Found)
}

func TestErrorStatuses(t *testing.T) {
	a := newAPI(t)
	larp, audience, _ := a.seed()

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad larp id", http.MethodGet, "/v1/larps/abc/events", nil, http.StatusBadRequest},
		{"unknown larp", http.MethodGet, "/v1/larps/999/conflicts", nil, http.StatusNotFound},
		{"unknown event", http.MethodGet, larp + "/events/999/conflicts", nil, http.StatusNotFound},
		{"unknown conflict", http.MethodPost, larp + "/conflicts/999/resolve", map[string]any{}, http.StatusNotFound},
		{"unknown resource", http.MethodDelete, larp + "/resources/999", nil, http.StatusNotFound},
		{"missing title", http.MethodPost, larp + "/events", map[string]any{"start_time": ts("09:00"), "end_time": ts("10:00")}, http.StatusBadRequest},
		{"inverted range", http.MethodPatch, larp + "/events/" + itoa(audience), map[string]any{"end_time": ts("09:00")}, http.StatusBadRequest},
		{"bad resource type", http.MethodPost, larp + "/resources", map[string]any{"type": "dragon", "name": "Smaug"}, http.StatusBadRequest},
		{"booking without ids", http.MethodPost, larp + "/bookings", map[string]any{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, larp+"/bookings/999", nil).Code)
}

func TestRescanQueuesOrRunsInline(t *testing.T) {
	a := newAPI(t)
	larp, _, _ := a.seed()

	a.ok(http.StatusAccepted, http.MethodPost, larp+"/rescan", nil, nil)
	assert.Len(t, a.queue.requests, 1)

	a.queue.err = errors.New("broker down")
	var rep scheduler.RescanReport
	a.ok(http.StatusOK, http.MethodPost, larp+"/rescan", nil, &rep)
	assert.Equal(t, 2, rep.Events)
	assert.Equal(t, 0, rep.Inserted)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/v1/larps/999/rescan", nil).Code)
}

func TestScheduleICS(t *testing.T) {
	a := newAPI(t)
	larp, _, _ := a.seed()

	rec := a.ok(http.StatusOK, http.MethodGet, larp+"/schedule.ics", nil, nil)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/calendar"))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="crown-of-ash.ics"`)
	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Throne Room Audience")
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
}
