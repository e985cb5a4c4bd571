package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated caller's id stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id > 0
}

// Role returns the authenticated caller's role, or "" for anonymous
// requests.
func Role(c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	return role
}

// userKey renders the caller for rate-limit keys and request logs.
// Anonymous requests are "guest".
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
