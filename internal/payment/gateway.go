// Package payment talks to the hosted checkout provider. Orders are created
// locally first; the gateway only issues a checkout session the client is
// redirected to, and settlement comes back through the confirm endpoint.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayDeclined is returned when the provider rejects the
	// session request (bad amount, disabled merchant, etc).
	ErrGatewayDeclined = errors.New("payment gateway declined the request")
)

// CheckoutRequest describes the session to open with the provider.
type CheckoutRequest struct {
	OrderID       uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
}

// CheckoutSession is the provider's handle for a payment in flight.
type CheckoutSession struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

// Gateway creates hosted checkout sessions.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// HostedGateway implements Gateway against the provider's REST API with
// basic-auth API keys.
type HostedGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewHostedGateway(baseURL, keyID, keySecret string) *HostedGateway {
	return &HostedGateway{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type createSessionBody struct {
	OrderID       string `json:"order_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

func (g *HostedGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	body, err := json.Marshal(createSessionBody{
		OrderID:       req.OrderID.String(),
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/checkout_sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.SetBasicAuth(g.keyID, g.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var session CheckoutSession
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return nil, fmt.Errorf("decode checkout response: %w", err)
		}
		if session.Reference == "" {
			return nil, fmt.Errorf("checkout response missing reference")
		}
		return &session, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrGatewayDeclined)
	default:
		return nil, fmt.Errorf("checkout request failed with status %d", resp.StatusCode)
	}
}
