package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// MembershipHandler serves the tier catalog, the member's subscription and
// the upgrade advisor.
type MembershipHandler struct {
	membership ports.MembershipService
	automation ports.AutomationService
}

func NewMembershipHandler(membership ports.MembershipService, automation ports.AutomationService) *MembershipHandler {
	return &MembershipHandler{membership: membership, automation: automation}
}

// Tiers handles GET /v1/tiers.
func (h *MembershipHandler) Tiers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.membership.Tiers())
}

// TierAccess handles GET /v1/tiers/:tier/access/:category.
func (h *MembershipHandler) TierAccess(c echo.Context) error {
	tier := domain.TierID(c.Param("tier"))
	if _, ok := domain.GetTierByID(tier); !ok {
		return domain.ErrUnknownTier
	}
	category, err := domain.ParseServiceCategory(c.Param("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessResponse{
		Tier:      tier,
		Category:  category,
		CanAccess: domain.CanAccessService(tier, category),
	})
}

// Subscription handles GET /v1/membership/subscription.
//
// @Summary      Current subscription
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Subscription
// @Failure      502  {object}  errorResponse
// @Router       /v1/membership/subscription [get]
func (h *MembershipHandler) Subscription(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	sub, err := h.membership.CheckSubscription(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// Checkout handles POST /v1/membership/checkout.
func (h *MembershipHandler) Checkout(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	var req checkoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	url, err := h.membership.CreateCheckout(c.Request().Context(), s, domain.TierID(req.Tier), req.Interval == "annual")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, urlResponse{Success: true, URL: url})
}

// Portal handles POST /v1/membership/portal.
func (h *MembershipHandler) Portal(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	url, err := h.membership.CustomerPortal(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, urlResponse{Success: true, URL: url})
}

// Access handles GET /v1/membership/access/:category.
func (h *MembershipHandler) Access(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	category := domain.ServiceCategory(c.Param("category"))
	ok, err := h.membership.CanAccess(c.Request().Context(), s, category)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessResponse{Category: category, CanAccess: ok})
}

// Usage handles GET /v1/membership/usage.
func (h *MembershipHandler) Usage(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	m, err := h.automation.UsageMetrics(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// Upgrade handles GET /v1/membership/upgrade.
func (h *MembershipHandler) Upgrade(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	rec, err := h.automation.UpgradeRecommendation(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
