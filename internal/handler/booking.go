package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// Book handles POST /v1/larps/:larp_id/bookings.  A missing range books
// the resource for the whole event.
func (h *PlanningHandler) Book(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	var req scheduler.BookingRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ResourceID == 0 || req.EventID == 0 {
		return errorJSON(c, http.StatusBadRequest, "resource_id and event_id are required")
	}
	b, err := h.Svc.Book(c.Request().Context(), lid, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Unbook handles DELETE /v1/larps/:larp_id/bookings/:id.  Removing an
// unknown booking succeeds.
func (h *PlanningHandler) Unbook(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := h.Svc.Unbook(c.Request().Context(), lid, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EventBookings handles GET /v1/larps/:larp_id/events/:id/bookings.
func (h *PlanningHandler) EventBookings(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	bs, err := h.Svc.ListBookingsForEvent(c.Request().Context(), lid, id)
	if err != nil {
		return fail(c, err)
	}
	return items(c, bs)
}
