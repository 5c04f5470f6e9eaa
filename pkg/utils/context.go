package utils

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ExtractUserInfo pulls the authenticated user's ID and role out of the echo
// context. The JWT middleware sets both keys; a missing value means the
// token carried no identity or the route was wired without auth. The error
// is a non-nil *echo.HTTPError so the calling handler stops; echo's error
// handler renders the 401.
func ExtractUserInfo(c echo.Context) (userID, role string, err error) {
	userID, _ = c.Get("userID").(string)
	role, _ = c.Get("userRole").(string)
	if userID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication")
	}
	return userID, role, nil
}
