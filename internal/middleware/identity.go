package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated organizer id, or false when the request
// did not pass through JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// identityKey is the rate-limit key part for the caller.
func identityKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return "u" + strconv.FormatUint(id, 10)
	}
	return "anon"
}
