package payment

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

// CODGateway accepts every order; cash is collected on delivery.
type CODGateway struct {
	opts options
}

func NewCODGateway(opts ...Option) *CODGateway {
	return &CODGateway{opts: newOptions(opts)}
}

func (g *CODGateway) Pay(ctx context.Context, _ Request) (domain.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentResult{}, err
	}
	return domain.PaymentSucceeded(domain.PaymentMethodCOD, g.opts.paymentID("cod")), nil
}

// UPIGateway simulates a UPI collect request.
type UPIGateway struct {
	opts     options
	validate *validator.Validate
}

func NewUPIGateway(opts ...Option) *UPIGateway {
	return &UPIGateway{opts: newOptions(opts), validate: NewValidator()}
}

func (g *UPIGateway) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	if strings.TrimSpace(req.UPIID) == "" {
		return domain.PaymentFailed(domain.PaymentMethodUPI, "UPI ID is required"), nil
	}
	if err := g.opts.wait(ctx); err != nil {
		return domain.PaymentResult{}, err
	}
	if err := g.validate.Var(req.UPIID, "upi_id"); err != nil {
		return domain.PaymentFailed(domain.PaymentMethodUPI, "Invalid UPI ID format"), nil
	}
	return domain.PaymentSucceeded(domain.PaymentMethodUPI, g.opts.paymentID("upi")), nil
}

// CardGateway simulates a card processor after checking the card fields.
type CardGateway struct {
	opts     options
	validate *validator.Validate
}

type cardForm struct {
	Name   string `validate:"notblank"`
	Number string `validate:"card_number"`
	Expiry string `validate:"card_expiry"`
	CVV    string `validate:"card_cvv"`
}

func NewCardGateway(opts ...Option) *CardGateway {
	return &CardGateway{opts: newOptions(opts), validate: NewValidator()}
}

func (g *CardGateway) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	if err := g.opts.wait(ctx); err != nil {
		return domain.PaymentResult{}, err
	}

	form := cardForm{
		Name:   req.Card.Name,
		Number: req.Card.Number,
		Expiry: req.Card.Expiry,
		CVV:    req.Card.CVV,
	}
	if err := g.validate.Struct(form); err != nil {
		return domain.PaymentFailed(domain.PaymentMethodCard, "Invalid card details"), nil
	}
	return domain.PaymentSucceeded(domain.PaymentMethodCard, g.opts.paymentID("card")), nil
}
