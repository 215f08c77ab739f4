package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/larp-planner/internal/repository"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// RescanQueue hands a re-scan to the background worker.
type RescanQueue interface {
	RequestRescan(ctx context.Context, larpID, requestedBy uint64) error
}

// PlanningHandler serves the /v1/larps API.
//
// Fields:
//  Svc    – scheduling service every request goes through.
//  Queue  – optional; when nil or failing, re-scans run inline.
//  Now    – clock used for calendar stamps.
type PlanningHandler struct {
	Svc   *scheduler.Service
	Queue RescanQueue
	Now   func() time.Time
}

// NewPlanningHandler returns a handler around svc.  q may be nil.
func NewPlanningHandler(svc *scheduler.Service, q RescanQueue) *PlanningHandler {
	return &PlanningHandler{Svc: svc, Queue: q, Now: time.Now}
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// larpID parses the :larp_id path parameter.
func larpID(c echo.Context) (uint64, error) {
	return pathID(c, "larp_id")
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// ids parses :larp_id plus the named parameter.
func ids(c echo.Context, name string) (uint64, uint64, error) {
	lid, err := larpID(c)
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(c, name)
	if err != nil {
		return 0, 0, errors.New("invalid id")
	}
	return lid, id, nil
}

// fail maps domain errors onto HTTP statuses.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrLarpNotFound),
		errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrResourceNotFound),
		errors.Is(err, repository.ErrLocationNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrConflictNotFound):
		return errorJSON(c, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrInvalidInput), errors.Is(err, scheduler.ErrInvalidRange):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrEventCancelled):
		return errorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, scheduler.ErrDetectionFailed):
		return errorJSON(c, http.StatusServiceUnavailable, "conflict detection failed")
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}

func items[T any](c echo.Context, v []T) error {
	if v == nil {
		v = []T{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": v})
}
