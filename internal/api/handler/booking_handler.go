package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aurelia/concierge-system/internal/api/metrics"
	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry a booking without being charged twice.
const HeaderIdempotencyKey = "Idempotency-Key"

type BookingHandler struct {
	bookings ports.BookingService
}

func NewBookingHandler(bookings ports.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// Quote handles GET /v1/quotes?category=&priority=&budget_max=.
func (h *BookingHandler) Quote(c echo.Context) error {
	category, err := domain.ParseServiceCategory(c.QueryParam("category"))
	if err != nil {
		return err
	}
	priority, err := domain.ParsePriority(c.QueryParam("priority"))
	if err != nil {
		return err
	}
	var budgetMax *int
	if raw := c.QueryParam("budget_max"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "budget_max must be a non-negative integer")
		}
		budgetMax = &v
	}

	return c.JSON(http.StatusOK, quoteResponse{
		Category: category,
		Priority: priority,
		Credits:  h.bookings.Quote(category, priority, budgetMax),
	})
}

// Create handles POST /v1/bookings.
//
// @Summary      Submit a service request
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                false  "Retry key"
// @Param        body             body      createBookingRequest  true   "Request details"
// @Success      201              {object}  createBookingResponse
// @Success      200              {object}  createBookingResponse  "Replayed"
// @Failure      400              {object}  errorResponse
// @Failure      402              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Router       /v1/bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	var req createBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return err
	}
	priority, _ := domain.ParsePriority(req.Priority)

	result, err := h.bookings.CreateBooking(c.Request().Context(), s, ports.CreateBookingInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       domain.ServiceCategory(req.Category),
		Priority:       priority,
		BudgetMin:      req.BudgetMin,
		BudgetMax:      req.BudgetMax,
		Deadline:       req.Deadline,
		Requirements:   req.Requirements,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		metrics.BookingsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return err
	}

	status := http.StatusCreated
	if result.AlreadyExisted {
		metrics.BookingsReplayedTotal.Inc()
		status = http.StatusOK
	} else {
		metrics.BookingsCreatedTotal.WithLabelValues(req.Category, string(priority)).Inc()
		metrics.CreditsDebitedTotal.Add(float64(result.CreditsUsed))
	}
	return c.JSON(status, createBookingResponse{
		Success:        true,
		RequestID:      result.RequestID,
		CreditsUsed:    result.CreditsUsed,
		AlreadyExisted: result.AlreadyExisted,
	})
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	var req cancelBookingRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}

	if err := h.bookings.CancelBooking(c.Request().Context(), s, c.Param("id"), req.Reason); err != nil {
		return err
	}
	metrics.CancellationsTotal.Inc()
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: "request cancelled"})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "tier_restricted"
	case errors.Is(err, domain.ErrNoActiveSubscription):
		return "no_subscription"
	case errors.Is(err, domain.ErrInvalidCategory), errors.Is(err, domain.ErrInvalidPriority):
		return "validation"
	case errors.Is(err, domain.ErrRemoteFailure):
		return "remote_failure"
	case errors.Is(err, domain.ErrBookingInProgress):
		return "in_progress"
	default:
		return "internal"
	}
}
