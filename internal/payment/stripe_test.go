package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

func stripeBackend(t *testing.T, handler http.HandlerFunc) stripe.Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
}

func stripeRequest() Request {
	return Request{
		OrderID:     "6f1c2a9e-0b0e-4c1c-9b1a-7c2a9e106f1f",
		Method:      domain.PaymentMethodStripe,
		Amount:      decimal.RequireFromString("1180"),
		OrderNumber: "NSH-1",
		Customer:    domain.Customer{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com"},
	}
}

func TestStripeGateway_Simulated(t *testing.T) {
	g := NewStripeGateway(StripeConfig{}, instant()...)
	require.True(t, g.Simulated())

	result, err := g.Pay(context.Background(), stripeRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.PaymentID, "pi_1700000000123_"), result.PaymentID)
}

func TestStripeGateway_Live(t *testing.T) {
	t.Run("confirmed intent succeeds with the intent id", func(t *testing.T) {
		backend := stripeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/payment_intents" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			assert.Equal(t, "118000", r.PostForm.Get("amount"))
			assert.Equal(t, "inr", r.PostForm.Get("currency"))
			assert.Equal(t, "true", r.PostForm.Get("confirm"))
			assert.Equal(t, "asha@example.com", r.PostForm.Get("receipt_email"))
			assert.Equal(t, "NSH-1", r.PostForm.Get("metadata[order_number]"))
			assert.Equal(t, "order-6f1c2a9e-0b0e-4c1c-9b1a-7c2a9e106f1f", r.Header.Get("Idempotency-Key"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"pi_live_1","object":"payment_intent","amount":118000,"status":"succeeded"}`))
		})

		g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", Backend: backend}, instant()...)
		result, err := g.Pay(context.Background(), stripeRequest())

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "pi_live_1", result.PaymentID)
	})

	t.Run("card decline is a definitive failure", func(t *testing.T) {
		backend := stripeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
		})

		g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", Backend: backend}, instant()...)
		result, err := g.Pay(context.Background(), stripeRequest())

		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Your card was declined.", result.Error)
	})

	t.Run("server error is transient", func(t *testing.T) {
		backend := stripeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
		})

		g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", Backend: backend}, instant()...)
		_, err := g.Pay(context.Background(), stripeRequest())

		assert.Error(t, err)
	})

	t.Run("intent needing action is not a success", func(t *testing.T) {
		backend := stripeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"pi_2","object":"payment_intent","status":"requires_action"}`))
		})

		g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", Backend: backend}, instant()...)
		result, err := g.Pay(context.Background(), stripeRequest())

		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "requires_action")
	})

	t.Run("idempotency follows the order id, not the order number", func(t *testing.T) {
		var (
			mu   sync.Mutex
			keys []string
		)
		backend := stripeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			keys = append(keys, r.Header.Get("Idempotency-Key"))
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"pi_3","object":"payment_intent","status":"succeeded"}`))
		})
		g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", Backend: backend}, instant()...)

		first := stripeRequest()
		second := stripeRequest()
		second.OrderID = "0b0e7c1e-4c1c-4d4e-9b1a-6f1f7c2a9e10"

		_, err := g.Pay(context.Background(), first)
		require.NoError(t, err)
		_, err = g.Pay(context.Background(), second)
		require.NoError(t, err)

		require.Len(t, keys, 2)
		assert.NotEqual(t, keys[0], keys[1])
	})
}
