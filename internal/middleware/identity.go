package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/utils"
)

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
	KeyRole   = "role"
)

// CurrentIdentity returns the identity JWTAuth stored on c.
func CurrentIdentity(c echo.Context) (utils.Identity, bool) {
	id, _ := c.Get(KeyUserID).(string)
	if id == "" {
		return utils.Identity{}, false
	}
	email, _ := c.Get(KeyEmail).(string)
	role, _ := c.Get(KeyRole).(string)
	return utils.Identity{UserID: id, Email: email, Role: role}, true
}

// currentUserID is used for rate limit keys; unauthenticated callers share "anon".
func currentUserID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return id.UserID
	}
	return "anon"
}
