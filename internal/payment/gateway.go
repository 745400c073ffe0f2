package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

// Gateway settles one payment. A non-nil error means the provider could not
// be reached or answered unexpectedly and the call may be retried. A result
// with Success=false is a definitive answer (decline, bad details) and must
// not be retried.
type Gateway interface {
	Pay(ctx context.Context, req Request) (domain.PaymentResult, error)
}

type GatewayFunc func(ctx context.Context, req Request) (domain.PaymentResult, error)

func (f GatewayFunc) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	return f(ctx, req)
}

type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
	Name   string `json:"name"`
}

type Request struct {
	// OrderID is unique per checkout attempt and keys provider idempotency.
	OrderID     string
	Method      domain.PaymentMethod
	Amount      decimal.Decimal
	Currency    string
	OrderNumber string
	Customer    domain.Customer
	UPIID       string
	Card        CardDetails
	Razorpay    RazorpayConfirmation
}

// MinorUnits converts a major-unit amount to the provider's smallest unit
// (paise for INR).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Registry dispatches to the gateway registered for the request's method.
type Registry struct {
	gateways map[domain.PaymentMethod]Gateway
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		gateways: make(map[domain.PaymentMethod]Gateway),
		logger:   logger,
	}
}

func (r *Registry) Register(method domain.PaymentMethod, g Gateway) {
	r.gateways[method] = g
}

func (r *Registry) Methods() []domain.PaymentMethod {
	methods := make([]domain.PaymentMethod, 0, len(r.gateways))
	for _, m := range []domain.PaymentMethod{
		domain.PaymentMethodCard,
		domain.PaymentMethodCOD,
		domain.PaymentMethodUPI,
		domain.PaymentMethodRazorpay,
		domain.PaymentMethodStripe,
	} {
		if _, ok := r.gateways[m]; ok {
			methods = append(methods, m)
		}
	}
	return methods
}

func (r *Registry) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	g, ok := r.gateways[req.Method]
	if !ok {
		return domain.PaymentFailed(req.Method, "Invalid payment method"), nil
	}

	start := time.Now()
	result, err := g.Pay(ctx, req)
	if err != nil {
		r.logger.Error("payment gateway error", "error", err, "method", req.Method, "order_number", req.OrderNumber)
		return domain.PaymentResult{}, fmt.Errorf("%s payment: %w", req.Method, err)
	}

	r.logger.Info("payment resolved",
		"method", req.Method,
		"order_number", req.OrderNumber,
		"success", result.Success,
		"payment_id", result.PaymentID,
		"duration", time.Since(start),
	)
	return result, nil
}

type Option func(*options)

type options struct {
	delay time.Duration
	now   func() time.Time
}

// WithDelay sets how long simulated gateways wait before answering.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{delay: 2 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) wait(ctx context.Context) error {
	if o.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(o.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o options) paymentID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, o.now().UnixMilli())
}
