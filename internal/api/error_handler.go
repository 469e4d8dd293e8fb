package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"success": false, "error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Success: false, Error: msg})
	}
}

// domainStatus is checked in order; the first sentinel that matches wins.
var domainStatus = []struct {
	err  error
	code int
}{
	{domain.ErrNotAuthenticated, http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrNotAuthorized, http.StatusForbidden},
	{domain.ErrNoActiveSubscription, http.StatusForbidden},
	{domain.ErrInsufficientCredits, http.StatusPaymentRequired},
	{domain.ErrInvalidTransition, http.StatusUnprocessableEntity},
	{domain.ErrCancellationNotAllowed, http.StatusUnprocessableEntity},
	{domain.ErrRequestNotFound, http.StatusNotFound},
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrStatusConflict, http.StatusConflict},
	{domain.ErrUserExists, http.StatusConflict},
	{domain.ErrBookingInProgress, http.StatusConflict},
	{domain.ErrUnknownTier, http.StatusBadRequest},
	{domain.ErrInvalidCategory, http.StatusBadRequest},
	{domain.ErrInvalidPriority, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInvalidTransactionType, http.StatusBadRequest},
	{domain.ErrInvalidPartner, http.StatusBadRequest},
	{domain.ErrRemoteFailure, http.StatusBadGateway},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range domainStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.code == http.StatusBadGateway {
			log.Warn().Err(err).Str("path", c.Path()).Msg("remote dependency failed")
		}
		return m.code, m.err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
