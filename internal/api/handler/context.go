package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aurelia/concierge-system/internal/api/middleware"
	"github.com/aurelia/concierge-system/internal/core/domain"
)

// session builds the caller identity from the claims injected by the Auth
// middleware. A missing user id means the middleware did not run: 401.
func session(c echo.Context) (domain.Session, error) {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return domain.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return domain.Session{UserID: userID, Role: role}, nil
}

// bindAndValidate decodes the body into req and runs the struct tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
