// Package billing talks to the hosted subscription functions
// (check-subscription, create-checkout, customer-portal).
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

const functionsPath = "/functions/v1/"

// Options configures the billing client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client performs the remote calls. Every non-2xx answer and every transport
// error is reported as domain.ErrRemoteFailure.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

type subscriptionResponse struct {
	Subscribed      bool       `json:"subscribed"`
	Tier            string     `json:"tier"`
	ProductID       string     `json:"productId"`
	SubscriptionEnd *time.Time `json:"subscriptionEnd"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		log:        opts.Logger,
	}
}

func (c *Client) CheckSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	var resp subscriptionResponse
	if err := c.call(ctx, "check-subscription", map[string]string{"user_id": userID}, &resp); err != nil {
		return nil, err
	}
	return &domain.Subscription{
		Subscribed:      resp.Subscribed,
		Tier:            domain.TierID(strings.ToLower(strings.TrimSpace(resp.Tier))),
		ProductID:       resp.ProductID,
		SubscriptionEnd: resp.SubscriptionEnd,
	}, nil
}

func (c *Client) CreateCheckout(ctx context.Context, userID, priceID string) (string, error) {
	var resp urlResponse
	body := map[string]string{"user_id": userID, "priceId": priceID}
	if err := c.call(ctx, "create-checkout", body, &resp); err != nil {
		return "", err
	}
	return c.requireURL("create-checkout", resp.URL)
}

func (c *Client) CustomerPortal(ctx context.Context, userID string) (string, error) {
	var resp urlResponse
	if err := c.call(ctx, "customer-portal", map[string]string{"user_id": userID}, &resp); err != nil {
		return "", err
	}
	return c.requireURL("customer-portal", resp.URL)
}

func (c *Client) requireURL(fn, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%w: %s returned no url", domain.ErrRemoteFailure, fn)
	}
	return url, nil
}

func (c *Client) call(ctx context.Context, fn string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("billing: encode %s: %w", fn, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+functionsPath+fn, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("billing: build %s: %w", fn, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrRemoteFailure, fn, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", domain.ErrRemoteFailure, fn, err)
	}
	c.log.Debug().Str("function", fn).Int("status", res.StatusCode).Dur("took", time.Since(start)).Msg("billing call")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var e errorResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return fmt.Errorf("%w: %s: status %d: %s", domain.ErrRemoteFailure, fn, res.StatusCode, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", domain.ErrRemoteFailure, fn, err)
	}
	return nil
}
