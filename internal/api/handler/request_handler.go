package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aurelia/concierge-system/internal/api/metrics"
	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// RequestHandler serves service request lookups and the partner/admin
// workflow. Visibility is enforced by the service from the caller's role.
type RequestHandler struct {
	requests ports.RequestService
}

func NewRequestHandler(requests ports.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// List handles GET /v1/requests.
//
// @Summary      List service requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "Filter by status"
// @Param        category   query     string  false  "Filter by category"
// @Param        date_from  query     string  false  "RFC3339 lower bound on created_at"
// @Param        date_to    query     string  false  "RFC3339 upper bound on created_at"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Page size (max 100)"
// @Success      200        {object}  ports.RequestPage
// @Router       /v1/requests [get]
func (h *RequestHandler) List(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	f, err := parseListFilter(c)
	if err != nil {
		return err
	}
	page, err := h.requests.List(c.Request().Context(), s, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func parseListFilter(c echo.Context) (ports.ListRequestsFilter, error) {
	f := ports.ListRequestsFilter{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
	}
	if f.Status != "" {
		if _, err := domain.ParseRequestStatus(f.Status); err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
	}
	if f.Category != "" {
		if _, err := domain.ParseServiceCategory(f.Category); err != nil {
			return f, err
		}
	}
	for name, dst := range map[string]*time.Time{"date_from": &f.DateFrom, "date_to": &f.DateTo} {
		if raw := c.QueryParam(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return f, echo.NewHTTPError(http.StatusBadRequest, name+" must be an RFC3339 timestamp")
			}
			*dst = t
		}
	}
	for name, dst := range map[string]*int{"page": &f.Page, "limit": &f.Limit} {
		if raw := c.QueryParam(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return f, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
			}
			*dst = n
		}
	}
	return f, nil
}

// Get handles GET /v1/requests/:id.
func (h *RequestHandler) Get(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	detail, err := h.requests.Get(c.Request().Context(), s, c.Param("id"))
	if err != nil {
		return err
	}
	if detail.Updates == nil {
		detail.Updates = []*domain.ServiceRequestUpdate{}
	}
	return c.JSON(http.StatusOK, detail)
}

// Transitions handles GET /v1/requests/:id/transitions. With ?target= it
// answers whether that single move is allowed.
func (h *RequestHandler) Transitions(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")

	if raw := c.QueryParam("target"); raw != "" {
		target, err := domain.ParseRequestStatus(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
		ok, err := h.requests.CanTransition(ctx, s, id, target)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"request_id": id, "target": target, "allowed": ok})
	}

	detail, err := h.requests.Get(ctx, s, id)
	if err != nil {
		return err
	}
	allowed := detail.Request.Status.AllowedTransitions()
	if allowed == nil {
		allowed = []domain.RequestStatus{}
	}
	return c.JSON(http.StatusOK, transitionsResponse{
		RequestID: id,
		Status:    detail.Request.Status,
		Allowed:   allowed,
	})
}

// AdvanceStatus handles PATCH /v1/requests/:id/status (admin, partner).
//
// @Summary      Move a request forward
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Request id"
// @Param        body  body      advanceStatusRequest  true  "Target status"
// @Success      200   {object}  successResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/requests/{id}/status [patch]
func (h *RequestHandler) AdvanceStatus(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	var req advanceStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	target, err := domain.ParseRequestStatus(req.Status)
	if err != nil {
		return err
	}

	err = h.requests.AdvanceStatus(c.Request().Context(), ports.AdvanceStatusInput{
		RequestID: c.Param("id"),
		NewStatus: target,
		Notes:     req.Notes,
		Actor:     s,
	})
	if err != nil {
		return err
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(target)).Inc()
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: "status updated"})
}

// AssignPartner handles PUT /v1/requests/:id/partner (admin).
func (h *RequestHandler) AssignPartner(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	var req assignPartnerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.requests.AssignPartner(c.Request().Context(), s, c.Param("id"), req.PartnerID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: "partner assigned"})
}

// SLA handles GET /v1/sla.
func (h *RequestHandler) SLA(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	m, err := h.requests.SLAMetrics(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}
