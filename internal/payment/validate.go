package payment

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	upiPattern        = regexp.MustCompile(`^[\w.-]+@[\w.-]+$`)
	cardNumberPattern = regexp.MustCompile(`^\d{13,19}$`)
	cardExpiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cardCVVPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// NewValidator returns a validator with the payment field rules registered:
// upi_id, card_number (whitespace ignored), card_expiry (MM/YY) and card_cvv.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "upi_id", func(fl validator.FieldLevel) bool {
		return upiPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "card_number", func(fl validator.FieldLevel) bool {
		return cardNumberPattern.MatchString(stripSpaces(fl.Field().String()))
	})
	mustRegister(v, "card_expiry", func(fl validator.FieldLevel) bool {
		return cardExpiryPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "card_cvv", func(fl validator.FieldLevel) bool {
		return cardCVVPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, s)
}
