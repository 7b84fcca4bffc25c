package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursehub/registration-api/internal/api/middleware"
)

// ctxUserID extracts the caller injected by the Auth middleware. A missing id
// means the route was mounted without Auth; reject rather than act anonymously.
func ctxUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(middleware.KeyUserID).(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, nil
}
