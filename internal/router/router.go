// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/larp-planner/internal/config"
	"github.com/iliyamo/larp-planner/internal/handler"
	"github.com/iliyamo/larp-planner/internal/middleware"
	"github.com/iliyamo/larp-planner/internal/utils"
)

// Deps carries everything RegisterRoutes needs.  Redis is optional; without
// it rate limiting and response caching are disabled.
type Deps struct {
	Planning  *handler.PlanningHandler
	DB        handler.Pinger
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// RegisterRoutes mounts /healthz publicly and the planning API under /v1
// behind JWT authentication, the organizer role check and rate limiting.
// Cached GET responses are scoped per LARP and dropped after writes.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	v1 := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(utils.RoleOrganizer, utils.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)
	h := d.Planning
	v1.POST("/larps", h.CreateLarp)

	larp := v1.Group("/larps/:larp_id",
		middleware.InvalidateOnWrite(d.Cache, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	)
	larp.GET("", h.GetLarp)

	larp.POST("/locations", h.CreateLocation)
	larp.GET("/locations", h.ListLocations)

	larp.POST("/resources", h.CreateResource)
	larp.GET("/resources", h.ListResources)
	larp.DELETE("/resources/:id", h.DeleteResource)

	larp.POST("/events", h.CreateEvent)
	larp.GET("/events", h.ListEvents)
	larp.PATCH("/events/:id", h.UpdateEvent)
	larp.POST("/events/:id/cancel", h.CancelEvent)
	larp.POST("/events/:id/reevaluate", h.Reevaluate)
	larp.GET("/events/:id/conflicts", h.EventConflicts)
	larp.GET("/events/:id/bookings", h.EventBookings)

	larp.POST("/bookings", h.Book)
	larp.DELETE("/bookings/:id", h.Unbook)

	larp.GET("/conflicts", h.ListConflicts)
	larp.POST("/conflicts/:id/resolve", h.ResolveConflict)
	larp.POST("/rescan", h.Rescan)

	larp.GET("/schedule.ics", h.ScheduleICS)
}
