package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
)

// Intent is a payment intent held open at the gateway.
type Intent struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

// CardDetails is the tokenized card reference attached to an intent.
type CardDetails struct {
	Token string `json:"token"`
	Last4 string `json:"last4,omitempty"`
	Brand string `json:"brand,omitempty"`
}

// ChargeResult is the outcome of confirming an intent.
type ChargeResult struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
}

// GatewayClient talks to the payment gateway.
type GatewayClient struct {
	transport *transport
	apiKey    string
	currency  string
}

// NewGatewayClient builds a gateway client. The API key is sent on
// every request.
func NewGatewayClient(baseURL, apiKey, currency string, timeout time.Duration, opts ...Option) (*GatewayClient, error) {
	t, err := newTransport(baseURL, timeout, opts...)
	if err != nil {
		return nil, err
	}
	t.authToken = strings.TrimSpace(apiKey)
	return &GatewayClient{
		transport: t,
		apiKey:    strings.TrimSpace(apiKey),
		currency:  strings.TrimSpace(currency),
	}, nil
}

// CreateIntent opens a payment intent for the given amount.
func (c *GatewayClient) CreateIntent(ctx context.Context, amount decimal.Decimal) (*Intent, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	payload := struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}{Amount: amount, Currency: c.currency}

	var intent Intent
	if err := c.transport.doJSON(ctx, pkgerrors.CodeGatewayFailure, http.MethodPost, "/v1/intents", payload, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// AttachCard binds a tokenized card to the intent.
func (c *GatewayClient) AttachCard(ctx context.Context, intentID string, card CardDetails) error {
	if strings.TrimSpace(intentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent ID is required")
	}
	if strings.TrimSpace(card.Token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "card token is required")
	}
	return c.transport.doJSON(ctx, pkgerrors.CodeGatewayFailure, http.MethodPost,
		"/v1/intents/"+url.PathEscape(intentID)+"/card", card, nil)
}

// Confirm captures the intent and returns the charge result.
func (c *GatewayClient) Confirm(ctx context.Context, intentID string) (*ChargeResult, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent ID is required")
	}
	var result ChargeResult
	if err := c.transport.doJSON(ctx, pkgerrors.CodeGatewayFailure, http.MethodPost,
		"/v1/intents/"+url.PathEscape(intentID)+"/confirm", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
