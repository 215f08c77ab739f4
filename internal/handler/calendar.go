package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/larp-planner/internal/calendar"
	"github.com/iliyamo/larp-planner/internal/model"
)

// ScheduleICS handles GET /v1/larps/:larp_id/schedule.ics.
func (h *PlanningHandler) ScheduleICS(c echo.Context) error {
	lid, err := larpID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	larp, err := h.Svc.GetLarp(ctx, lid)
	if err != nil {
		return fail(c, err)
	}
	events, err := h.Svc.ListEvents(ctx, lid)
	if err != nil {
		return fail(c, err)
	}
	locs, err := h.Svc.ListLocations(ctx, lid)
	if err != nil {
		return fail(c, err)
	}
	byID := make(map[uint64]model.Location, len(locs))
	for _, l := range locs {
		byID[l.ID] = l
	}
	body := calendar.Render(larp, events, byID, h.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", calendar.Filename(larp)))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
