// Package checkout turns a cart into a hosted payment session. Gateway is the
// storefront side; Server is the payment backend that holds the provider key.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

const (
	DefaultCurrency = "usd"
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 1 << 20
)

var hundred = decimal.NewFromInt(100)

// Gateway posts checkout requests to the payment backend.
type Gateway struct {
	client   *http.Client
	timeout  time.Duration
	endpoint string
	currency string
	logger   *zap.Logger
}

type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.client = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

func WithCurrency(currency string) Option {
	return func(g *Gateway) {
		g.currency = currency
	}
}

// NewGateway targets the backend's create-checkout-session endpoint. A
// timeout set with WithTimeout applies to a copy of the client, never to one
// passed in with WithHTTPClient.
func NewGateway(endpoint string, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		endpoint: endpoint,
		currency: DefaultCurrency,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		g.client = &http.Client{Timeout: defaultTimeout}
	}
	if g.timeout > 0 {
		client := *g.client
		client.Timeout = g.timeout
		g.client = &client
	}
	return g
}

// LineItems converts cart lines, in order, to line items priced in minor units.
func LineItems(lines []models.CartLine) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(lines))
	for _, l := range lines {
		cents := l.UnitPrice.Mul(hundred)
		if !cents.IsInteger() {
			return nil, models.Invalid("price %s of %s has more than two decimals", l.UnitPrice, l.ProductID)
		}
		items = append(items, models.LineItem{
			Name:        l.Name,
			Description: l.Description,
			UnitAmount:  cents.IntPart(),
			Quantity:    l.Quantity,
		})
	}
	return items, nil
}

// CreateSession asks the backend for a payment session and returns the URL
// the buyer should be redirected to. The cart itself is never modified.
func (g *Gateway) CreateSession(ctx context.Context, lines []models.CartLine, clientReferenceID string) (string, error) {
	if len(lines) == 0 {
		return "", models.Invalid("cart is empty")
	}

	items, err := LineItems(lines)
	if err != nil {
		return "", err
	}

	req := models.CheckoutRequest{
		Items:             items,
		Currency:          g.currency,
		ClientReferenceID: clientReferenceID,
	}
	if err = req.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrPaymentSession, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error("Checkout request failed", zap.String("endpoint", g.endpoint), zap.Error(err))
		return "", fmt.Errorf("%w: %w", models.ErrPaymentSession, err)
	}
	defer resp.Body.Close()

	var out models.CheckoutResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Error("Checkout rejected", zap.Int("status", resp.StatusCode), zap.String("error", out.Error))
		return "", fmt.Errorf("%w: backend returned %d %s", models.ErrPaymentSession, resp.StatusCode, out.Error)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: malformed response: %w", models.ErrPaymentSession, decodeErr)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: response has no redirect url", models.ErrPaymentSession)
	}

	return out.URL, nil
}
