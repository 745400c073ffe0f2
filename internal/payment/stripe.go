package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

// StripeGateway creates and confirms a PaymentIntent. Without a secret key it
// falls back to a simulated intent so local checkouts keep working.
type StripeGateway struct {
	intents       *paymentintent.Client
	currency      string
	paymentMethod string
	opts          options
}

type StripeConfig struct {
	SecretKey string
	// Backend overrides the API backend; nil uses the default Stripe API.
	Backend  stripe.Backend
	Currency string
	// PaymentMethod is the payment method attached on confirmation. The
	// storefront never sees raw card data for Stripe, so this is a
	// provider-side token such as pm_card_visa in test mode.
	PaymentMethod string
}

func NewStripeGateway(cfg StripeConfig, opts ...Option) *StripeGateway {
	g := &StripeGateway{
		currency:      cfg.Currency,
		paymentMethod: cfg.PaymentMethod,
		opts:          newOptions(opts),
	}
	if g.currency == "" {
		g.currency = string(stripe.CurrencyINR)
	}
	if g.paymentMethod == "" {
		g.paymentMethod = "pm_card_visa"
	}
	if cfg.SecretKey != "" {
		backend := cfg.Backend
		if backend == nil {
			backend = stripe.GetBackend(stripe.APIBackend)
		}
		g.intents = &paymentintent.Client{B: backend, Key: cfg.SecretKey}
	}
	return g
}

func (g *StripeGateway) Simulated() bool {
	return g.intents == nil
}

func (g *StripeGateway) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	if g.intents == nil {
		return g.simulate(ctx)
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(MinorUnits(req.Amount)),
		Currency:           stripe.String(g.currency),
		Confirm:            stripe.Bool(true),
		PaymentMethod:      stripe.String(g.paymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String("Order " + req.OrderNumber),
	}
	if req.Customer.Email != "" {
		params.ReceiptEmail = stripe.String(req.Customer.Email)
	}
	params.AddMetadata("order_number", req.OrderNumber)
	params.AddMetadata("customer_name", req.Customer.FullName())
	if req.OrderID != "" {
		params.SetIdempotencyKey("order-" + req.OrderID)
	}
	params.Context = ctx

	intent, err := g.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			if stripeErr.Type == stripe.ErrorTypeCard {
				return domain.PaymentFailed(domain.PaymentMethodStripe, stripeErr.Msg), nil
			}
			if stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
				stripeErr.HTTPStatusCode != http.StatusTooManyRequests {
				return domain.PaymentFailed(domain.PaymentMethodStripe, "Failed to process Stripe payment"), nil
			}
		}
		return domain.PaymentResult{}, fmt.Errorf("create payment intent: %w", err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return domain.PaymentSucceeded(domain.PaymentMethodStripe, intent.ID), nil
	default:
		return domain.PaymentFailed(domain.PaymentMethodStripe,
			"Payment was not completed (status "+string(intent.Status)+")"), nil
	}
}

func (g *StripeGateway) simulate(ctx context.Context) (domain.PaymentResult, error) {
	if err := g.opts.wait(ctx); err != nil {
		return domain.PaymentResult{}, err
	}
	suffix := strconv.FormatInt(rand.Int63(), 36)
	if len(suffix) > 9 {
		suffix = suffix[:9]
	}
	return domain.PaymentSucceeded(domain.PaymentMethodStripe, g.opts.paymentID("pi")+"_"+suffix), nil
}
