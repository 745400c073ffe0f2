package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		subtotal string
		shipping string
		tax      string
		total    string
	}{
		{"1000", "0", "180", "1180"},
		{"300", "50", "54", "404"},
		{"500", "0", "90", "590"},
		{"499.99", "50", "90", "639.99"},
		{"199.5", "50", "35.91", "285.41"},
		{"0", "50", "0", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			got := ComputeTotals(decimal.RequireFromString(tt.subtotal))

			assert.True(t, got.Subtotal.Equal(decimal.RequireFromString(tt.subtotal)))
			assert.True(t, got.Shipping.Equal(decimal.RequireFromString(tt.shipping)), "shipping %s", got.Shipping)
			assert.True(t, got.Tax.Equal(decimal.RequireFromString(tt.tax)), "tax %s", got.Tax)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", got.Total)
		})
	}
}
