package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

const defaultRazorpayURL = "https://api.razorpay.com"

const razorpayActionMessage = "Complete the payment in Razorpay checkout, then submit again"

// RazorpayGateway settles payments in two steps. A request without a
// confirmation creates a Razorpay order and comes back unpaid with the order
// id; the customer pays in the Razorpay widget and resubmits with the
// payment id and signature it returns. Without API keys it simulates the
// widget's success.
type RazorpayGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
	opts      options
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// RazorpayConfirmation is what the Razorpay checkout widget hands back after
// a successful payment.
type RazorpayConfirmation struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (c RazorpayConfirmation) empty() bool {
	return c.OrderID == "" && c.PaymentID == "" && c.Signature == ""
}

func NewRazorpayGateway(cfg RazorpayConfig, client *http.Client, opts ...Option) *RazorpayGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultRazorpayURL
	}
	return &RazorpayGateway{
		baseURL:   baseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client:    client,
		opts:      newOptions(opts),
	}
}

func (g *RazorpayGateway) Simulated() bool {
	return g.keyID == "" || g.keySecret == ""
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	if g.Simulated() {
		if err := g.opts.wait(ctx); err != nil {
			return domain.PaymentResult{}, err
		}
		return domain.PaymentSucceeded(domain.PaymentMethodRazorpay, g.opts.paymentID("rzp")), nil
	}

	if !req.Razorpay.empty() {
		return g.confirm(ctx, req)
	}

	order, failed, err := g.createOrder(ctx, req)
	if err != nil || failed != nil {
		return deref(failed), err
	}
	return domain.PaymentActionRequired(domain.PaymentMethodRazorpay, order.ID, razorpayActionMessage), nil
}

// confirm checks the widget's signature, then that the order it names was
// raised for the amount being charged now.
func (g *RazorpayGateway) confirm(ctx context.Context, req Request) (domain.PaymentResult, error) {
	c := req.Razorpay
	if c.OrderID == "" || c.PaymentID == "" || c.Signature == "" {
		return domain.PaymentFailed(domain.PaymentMethodRazorpay, "Incomplete Razorpay confirmation"), nil
	}
	if !VerifyRazorpaySignature(c.OrderID, c.PaymentID, c.Signature, g.keySecret) {
		return domain.PaymentFailed(domain.PaymentMethodRazorpay, "Payment verification failed"), nil
	}

	order, failed, err := g.fetchOrder(ctx, c.OrderID)
	if err != nil || failed != nil {
		return deref(failed), err
	}
	if order.Amount != MinorUnits(req.Amount) {
		return domain.PaymentFailed(domain.PaymentMethodRazorpay, "Paid amount does not match the order total"), nil
	}

	return domain.PaymentSucceeded(domain.PaymentMethodRazorpay, c.PaymentID), nil
}

// VerifyRazorpaySignature reports whether signature is the hex HMAC-SHA256
// of "orderID|paymentID" under the key secret.
func VerifyRazorpaySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (g *RazorpayGateway) createOrder(ctx context.Context, req Request) (razorpayOrderResponse, *domain.PaymentResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	body := razorpayOrderRequest{
		Amount:   MinorUnits(req.Amount),
		Currency: strings.ToUpper(currency),
		Receipt:  req.OrderNumber,
		Notes: map[string]string{
			"name":    req.Customer.FullName(),
			"email":   req.Customer.Email,
			"contact": req.Customer.Phone,
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return razorpayOrderResponse{}, nil, fmt.Errorf("marshal razorpay order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(data))
	if err != nil {
		return razorpayOrderResponse{}, nil, fmt.Errorf("create razorpay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return g.do(httpReq, "create order")
}

func (g *RazorpayGateway) fetchOrder(ctx context.Context, orderID string) (razorpayOrderResponse, *domain.PaymentResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return razorpayOrderResponse{}, nil, fmt.Errorf("create razorpay request: %w", err)
	}
	return g.do(httpReq, "fetch order")
}

// do sends an authenticated request. 5xx and 429 come back as errors, other
// non-200 answers as a declined result carrying the provider's description.
func (g *RazorpayGateway) do(httpReq *http.Request, op string) (razorpayOrderResponse, *domain.PaymentResult, error) {
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return razorpayOrderResponse{}, nil, fmt.Errorf("razorpay %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return razorpayOrderResponse{}, nil, fmt.Errorf("razorpay %s returned status %d", op, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp razorpayErrorResponse
		message := "Payment failed"
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Description != "" {
			message = errResp.Error.Description
		}
		failed := domain.PaymentFailed(domain.PaymentMethodRazorpay, message)
		return razorpayOrderResponse{}, &failed, nil
	}

	var order razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return razorpayOrderResponse{}, nil, fmt.Errorf("decode razorpay order: %w", err)
	}
	if order.ID == "" {
		return razorpayOrderResponse{}, nil, fmt.Errorf("razorpay %s response missing id", op)
	}
	return order, nil, nil
}

func deref(r *domain.PaymentResult) domain.PaymentResult {
	if r == nil {
		return domain.PaymentResult{}
	}
	return *r
}
