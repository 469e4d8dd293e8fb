package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

type CreditHandler struct {
	credits ports.CreditService
	subs    ports.SubscriptionProvider
	now     func() time.Time
}

func NewCreditHandler(credits ports.CreditService, subs ports.SubscriptionProvider) *CreditHandler {
	return &CreditHandler{credits: credits, subs: subs, now: func() time.Time { return time.Now().UTC() }}
}

// Balance handles GET /v1/credits. Members without a subscription or account
// get an empty balance rather than an error.
//
// @Summary      Credit balance
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  creditsResponse
// @Failure      502  {object}  errorResponse
// @Router       /v1/credits [get]
func (h *CreditHandler) Balance(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	sub, err := h.subs.CheckSubscription(ctx, s.UserID)
	if err != nil {
		return err
	}
	resp := creditsResponse{}
	if sub.Active() {
		resp.Tier = string(sub.Tier)
		resp.IsUnlimited = domain.IsUnlimitedTier(sub.Tier)
	}

	acct, err := h.credits.FetchCredits(ctx, s.UserID, sub)
	switch {
	case errors.Is(err, domain.ErrNoActiveSubscription):
	case err != nil:
		return err
	default:
		resp.Balance = acct.Balance
		resp.MonthlyAllocation = acct.MonthlyAllocation
		last := acct.LastAllocationAt
		resp.LastAllocationAt = &last
	}
	return c.JSON(http.StatusOK, resp)
}

// Transactions handles GET /v1/credits/transactions?since=<RFC3339>.
// Without since it lists the current month.
func (h *CreditHandler) Transactions(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	since := domain.MonthStart(h.now())
	if raw := c.QueryParam("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be an RFC3339 timestamp")
		}
	}

	txs, err := h.credits.ListTransactions(c.Request().Context(), s.UserID, since)
	if err != nil {
		return err
	}
	if txs == nil {
		txs = []*domain.CreditTransaction{}
	}
	return c.JSON(http.StatusOK, txs)
}

// Check handles GET /v1/credits/check?amount=N.
func (h *CreditHandler) Check(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	amount, err := strconv.Atoi(c.QueryParam("amount"))
	if err != nil || amount <= 0 {
		return domain.ErrInvalidAmount
	}
	ctx := c.Request().Context()

	sub, err := h.subs.CheckSubscription(ctx, s.UserID)
	if err != nil {
		return err
	}
	ok := false
	if sub.Active() {
		if ok, err = h.credits.CheckCredits(ctx, s.UserID, sub.Tier, amount); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, checkCreditsResponse{Amount: amount, Sufficient: ok})
}

// Grant handles POST /v1/credits/grants (admin only).
func (h *CreditHandler) Grant(c echo.Context) error {
	if _, err := session(c); err != nil {
		return err
	}
	var req grantRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acct, err := h.credits.AddCredits(c.Request().Context(), ports.AddCreditsInput{
		UserID:           req.UserID,
		Amount:           req.Amount,
		Type:             domain.TransactionType(req.Type),
		Description:      req.Description,
		ServiceRequestID: req.ServiceRequestID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, grantResponse{Success: true, Account: acct})
}
