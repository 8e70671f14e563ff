package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestCartClientGetCart(t *testing.T) {
	var capturedURL, capturedAuth string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"items":[{"productId":"p1","quantity":2,"unitPrice":"8"}]}`), nil
	})

	client, err := NewCartClient("http://store.test/", time.Second,
		WithHTTPClient(&http.Client{Transport: rt}), WithAuthToken("tok-1"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	lines, err := client.GetCart(context.Background())
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if capturedURL != "http://store.test/api/cart" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if len(lines) != 1 || lines[0].ProductID != "p1" || lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if !lines[0].UnitPrice.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("unexpected unit price %s", lines[0].UnitPrice)
	}
}

func TestCartClientMergeLines(t *testing.T) {
	var capturedBody map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(raw, &capturedBody); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		return jsonResponse(http.StatusNoContent, ""), nil
	})

	client, err := NewCartClient("http://store.test", time.Second, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.MergeLines(context.Background(), []CartLine{
		{ProductID: "p1", Quantity: 6, UnitPrice: decimal.NewFromInt(8)},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	items, ok := capturedBody["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("unexpected payload %+v", capturedBody)
	}
}

func TestCartClientRemoteFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `{"error":"down"}`), nil
	})

	client, err := NewCartClient("http://store.test", time.Second, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.GetCart(context.Background()); !pkgerrors.HasCode(err, pkgerrors.CodeRemoteFailure) {
		t.Fatalf("expected remote failure, got %v", err)
	}
}

func TestOrderClientCreate(t *testing.T) {
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusCreated, `{"id":"ord_1","status":"pending","totals":{"grandTotal":"128.5"}}`), nil
	})

	client, err := NewOrderClient("http://store.test", time.Second, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	order, err := client.Create(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Items:  []OrderItem{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if capturedURL != "http://store.test/api/orders" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if order.ID != "ord_1" || order.Status != "pending" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestOrderClientCreateRequiresItems(t *testing.T) {
	client, err := NewOrderClient("http://store.test", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Create(context.Background(), CreateOrderRequest{UserID: "u1"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOrderClientUpdateStatus(t *testing.T) {
	var capturedURL, capturedMethod string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedMethod = req.Method
		return jsonResponse(http.StatusOK, `{"id":"ord_1","status":"shipped"}`), nil
	})

	client, err := NewOrderClient("http://store.test", time.Second, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	order, err := client.UpdateStatus(context.Background(), "ord_1", "shipped")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if capturedMethod != http.MethodPatch || capturedURL != "http://store.test/api/orders/ord_1/status" {
		t.Fatalf("unexpected request %s %s", capturedMethod, capturedURL)
	}
	if order.Status != "shipped" {
		t.Fatalf("unexpected status %q", order.Status)
	}
}

func TestGatewayClientIntentFlow(t *testing.T) {
	var urls []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		urls = append(urls, req.URL.String())
		switch {
		case strings.HasSuffix(req.URL.Path, "/confirm"):
			return jsonResponse(http.StatusOK, `{"transactionId":"txn_9","amount":"128.5","status":"succeeded"}`), nil
		case strings.HasSuffix(req.URL.Path, "/card"):
			return jsonResponse(http.StatusOK, `{}`), nil
		default:
			return jsonResponse(http.StatusCreated, `{"id":"pi_1","amount":"128.5","currency":"SAR","status":"requires_card"}`), nil
		}
	})

	client, err := NewGatewayClient("http://gateway.test", "sk_test", "SAR", time.Second,
		WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	intent, err := client.CreateIntent(ctx, decimal.RequireFromString("128.5"))
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.ID != "pi_1" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if err := client.AttachCard(ctx, intent.ID, CardDetails{Token: "tok_visa"}); err != nil {
		t.Fatalf("attach card: %v", err)
	}
	result, err := client.Confirm(ctx, intent.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.TransactionID != "txn_9" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(urls) != 3 || urls[1] != "http://gateway.test/v1/intents/pi_1/card" {
		t.Fatalf("unexpected URLs %v", urls)
	}
}

func TestGatewayClientRejectsZeroAmount(t *testing.T) {
	client, err := NewGatewayClient("http://gateway.test", "sk_test", "SAR", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.CreateIntent(context.Background(), decimal.Zero); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGatewayClientFailureCode(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusPaymentRequired, `{"error":"declined"}`), nil
	})
	client, err := NewGatewayClient("http://gateway.test", "sk_test", "SAR", time.Second,
		WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Confirm(context.Background(), "pi_1"); !pkgerrors.HasCode(err, pkgerrors.CodeGatewayFailure) {
		t.Fatalf("expected gateway failure, got %v", err)
	}
}

func TestShippingClientQuote(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"fee":"40"}`), nil
	})
	client, err := NewShippingClient("http://shipping.test", time.Second,
		WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	fee, err := client.Quote(context.Background(), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !fee.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected fee %s", fee)
	}
}
