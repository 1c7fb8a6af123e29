package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Roles carried in the JWT "role" claim.
const (
	RoleCustomer  = "CUSTOMER"
	RoleOrganizer = "ORGANIZER"
)

// UserID returns the authenticated subject stored by JWTAuth.  User ids
// are opaque strings; a numeric sub claim is rendered in decimal.
func UserID(c echo.Context) (string, bool) {
	switch v := c.Get("user_id").(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

// currentUserID is UserID with a placeholder for anonymous callers, used
// to build rate limit keys.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return id
	}
	return "anon"
}
