// Package gateway implements the payment.Gateway contract against an
// HTTP payment processor's order-intent API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/domain/payment"
)

// minorUnitFactor converts major currency units to the gateway's minor-unit
// amounts (e.g. rupees to paise).
var minorUnitFactor = decimal.NewFromInt(100)

// Config holds the gateway connection settings.
type Config struct {
	// BaseURL is the gateway API root, e.g. https://api.gateway.test.
	BaseURL string
	// KeyID and KeySecret authenticate API calls (HTTP basic auth).
	KeyID     string
	KeySecret string
	// Currency is the ISO code sent with every intent.
	Currency string
}

// Client is a payment.Gateway backed by the processor's REST API. Calls are
// synchronous with no retry; the caller decides retry and timeout policy via
// the injected http.Client and request context.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ payment.Gateway = (*Client)(nil)

// New creates a gateway Client. A nil httpClient falls back to
// http.DefaultClient; callers should pass a client with a timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type createIntentResponse struct {
	ID string `json:"id"`
}

// CreateIntent registers a payment intent for the given order and returns
// the gateway-assigned reference. The amount is converted to the gateway's
// minor-unit convention (x100), and the remote record is tagged with the
// internal order and owner ids for later reconciliation.
func (c *Client) CreateIntent(ctx context.Context, intent payment.Intent) (string, error) {
	body, err := json.Marshal(createIntentRequest{
		Amount:   intent.Amount.Mul(minorUnitFactor).IntPart(),
		Currency: c.cfg.Currency,
		Receipt:  intent.OrderID,
		Notes: map[string]string{
			"order_id": intent.OrderID,
			"owner_id": intent.OwnerID,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "encode intent")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", intent.IdempotencyKey)
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "create intent")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Bounded read: error bodies are informational only.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("create intent: gateway returned %d: %s", resp.StatusCode, msg)
	}

	var out createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode intent response")
	}
	if out.ID == "" {
		return "", errors.New("gateway response missing order id")
	}
	return out.ID, nil
}
