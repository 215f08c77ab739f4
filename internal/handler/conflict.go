package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/larp-planner/internal/middleware"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// ListConflicts handles GET /v1/larps/:larp_id/conflicts: unresolved
// conflicts, most severe first.
func (h *PlanningHandler) ListConflicts(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	vs, err := h.Svc.ListUnresolvedConflicts(c.Request().Context(), lid)
	if err != nil {
		return fail(c, err)
	}
	return items(c, vs)
}

// ResolveConflict handles POST /v1/larps/:larp_id/conflicts/:id/resolve.
// The caller's user id is recorded as the resolver.
func (h *PlanningHandler) ResolveConflict(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	var body struct {
		Note *string `json:"note"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	in := scheduler.ResolveInput{Note: body.Note}
	if uid, ok := middleware.UserID(c); ok {
		in.ResolvedBy = &uid
	}
	v, err := h.Svc.ResolveConflict(c.Request().Context(), lid, id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Rescan handles POST /v1/larps/:larp_id/rescan.  The job is queued for
// the worker (202); without a reachable broker it runs inline (200).
func (h *PlanningHandler) Rescan(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if _, err := h.Svc.GetLarp(ctx, lid); err != nil {
		return fail(c, err)
	}
	if h.Queue != nil {
		uid, _ := middleware.UserID(c)
		qerr := h.Queue.RequestRescan(ctx, lid, uid)
		if qerr == nil {
			return c.JSON(http.StatusAccepted, map[string]any{"larp_id": lid, "status": "queued"})
		}
		log.Printf("handler: rescan larp=%d: enqueue failed, running inline: %v", lid, qerr)
	}
	rep, err := h.Svc.RescanLarp(ctx, lid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}
