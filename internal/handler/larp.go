package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// CreateLarp handles POST /v1/larps.
func (h *PlanningHandler) CreateLarp(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	l, err := h.Svc.CreateLarp(c.Request().Context(), body.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// GetLarp handles GET /v1/larps/:larp_id.
func (h *PlanningHandler) GetLarp(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	l, err := h.Svc.GetLarp(c.Request().Context(), lid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// CreateLocation handles POST /v1/larps/:larp_id/locations.
func (h *PlanningHandler) CreateLocation(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	var in scheduler.LocationInput
	if err := c.Bind(&in); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	loc, err := h.Svc.CreateLocation(c.Request().Context(), lid, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, loc)
}

// ListLocations handles GET /v1/larps/:larp_id/locations.
func (h *PlanningHandler) ListLocations(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	locs, err := h.Svc.ListLocations(c.Request().Context(), lid)
	if err != nil {
		return fail(c, err)
	}
	return items(c, locs)
}

// CreateResource handles POST /v1/larps/:larp_id/resources.
func (h *PlanningHandler) CreateResource(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	var in scheduler.ResourceInput
	if err := c.Bind(&in); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Svc.CreateResource(c.Request().Context(), lid, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListResources handles GET /v1/larps/:larp_id/resources.
func (h *PlanningHandler) ListResources(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	rs, err := h.Svc.ListResources(c.Request().Context(), lid)
	if err != nil {
		return fail(c, err)
	}
	return items(c, rs)
}

// DeleteResource handles DELETE /v1/larps/:larp_id/resources/:id.  The
// resource's bookings go with it; recorded conflicts stay.
func (h *PlanningHandler) DeleteResource(c echo.Context) error {
	lid, id, err := ids(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := h.Svc.DeleteResource(c.Request().Context(), lid, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
