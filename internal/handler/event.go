package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// CreateEvent handles POST /v1/larps/:larp_id/events.
func (h *PlanningHandler) CreateEvent(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	var in scheduler.EventInput
	if err := c.Bind(&in); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ev, err := h.Svc.CreateEvent(c.Request().Context(), lid, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// ListEvents handles GET /v1/larps/:larp_id/events, cancelled included.
func (h *PlanningHandler) ListEvents(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	evs, err := h.Svc.ListEvents(c.Request().Context(), lid)
	if err != nil {
		return fail(c, err)
	}
	return items(c, evs)
}

// UpdateEvent handles PATCH /v1/larps/:larp_id/events/:id.
func (h *PlanningHandler) UpdateEvent(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	var p scheduler.EventPatch
	if err := c.Bind(&p); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ev, err := h.Svc.UpdateEvent(c.Request().Context(), lid, id, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// CancelEvent handles POST /v1/larps/:larp_id/events/:id/cancel.
func (h *PlanningHandler) CancelEvent(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	ev, err := h.Svc.CancelEvent(c.Request().Context(), lid, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Reevaluate handles POST /v1/larps/:larp_id/events/:id/reevaluate.  It
// returns the conflicts inserted by this pass.
func (h *PlanningHandler) Reevaluate(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	res, err := h.Svc.Reevaluate(c.Request().Context(), lid, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// EventConflicts handles GET /v1/larps/:larp_id/events/:id/conflicts,
// unresolved first then newest first.
func (h *PlanningHandler) EventConflicts(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	vs, err := h.Svc.ListConflictsForEvent(c.Request().Context(), lid, id)
	if err != nil {
		return fail(c, err)
	}
	return items(c, vs)
}
