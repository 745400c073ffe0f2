package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/email"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOrder() domain.OrderSnapshot {
	return domain.OrderSnapshot{
		ID:          "9b2f",
		OrderNumber: "NSH-1700000000000",
		UserID:      "user-1",
		Customer: domain.Customer{
			FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9999999999",
			Address: "12 MG Road", City: "Bengaluru", State: "KA", ZipCode: "560001",
		},
		Items: []domain.OrderItem{
			{ProductID: "spicy-ramen", Name: "Spicy Ramen", Quantity: 2, Price: decimal.NewFromInt(240)},
			{ProductID: "sesame-soy-glaze", Name: "Sesame Soy Glaze", Quantity: 1, Price: decimal.RequireFromString("199.5")},
		},
		Subtotal:      decimal.RequireFromString("679.5"),
		Shipping:      decimal.Zero,
		Tax:           decimal.RequireFromString("122.31"),
		Total:         decimal.RequireFromString("801.81"),
		PaymentMethod: domain.PaymentMethodUPI,
		PaymentID:     "upi_1700000000000",
		Status:        domain.OrderStatusPlaced,
		CreatedAt:     time.Date(2026, time.March, 4, 15, 7, 0, 0, time.UTC),
	}
}

func TestCompose(t *testing.T) {
	msg, err := Compose(sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Order Confirmation: NSH-1700000000000", msg.Subject)
	assert.Empty(t, msg.ReplyTo)

	for _, want := range []string{
		"Hi Asha,",
		"Order date: March 4, 2026 at 03:07 PM",
		"Payment method: UPI Payment (upi_1700000000000)",
		"• Spicy Ramen (Qty: 2) - ₹480.00\n• Sesame Soy Glaze (Qty: 1) - ₹199.50",
		"Subtotal: ₹679.50",
		"Shipping: FREE",
		"Tax (18%): ₹122.31",
		"Total: ₹801.81",
		"12 MG Road, Bengaluru, KA 560001",
	} {
		assert.Contains(t, msg.Body, want)
	}
	assert.NotContains(t, msg.Body, "Admin copy")
}

func TestAdminCopy(t *testing.T) {
	msg, err := AdminCopy(sampleOrder(), "orders@noodlesaucehaven.in")
	require.NoError(t, err)

	assert.Equal(t, "orders@noodlesaucehaven.in", msg.To)
	assert.Equal(t, "asha@example.com", msg.ReplyTo)
	assert.True(t, strings.HasPrefix(msg.Subject, "[Admin copy] "))
	assert.Contains(t, msg.Body, "order placed by asha@example.com")
}

func TestShippingText(t *testing.T) {
	assert.Equal(t, "FREE", ShippingText(decimal.Zero))
	assert.Equal(t, "₹50.00", ShippingText(decimal.NewFromInt(50)))
}

type captureSender struct {
	sent   []email.Message
	failOn string
}

func (c *captureSender) Send(_ context.Context, msg email.Message) error {
	if msg.To == c.failOn {
		return errors.New("mailbox unavailable")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func TestEmailNotifier(t *testing.T) {
	t.Run("customer only", func(t *testing.T) {
		sender := &captureSender{}
		n := NewEmailNotifier(sender, "", discardLogger())

		require.NoError(t, n.Notify(context.Background(), sampleOrder()))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "asha@example.com", sender.sent[0].To)
	})

	t.Run("with admin copy", func(t *testing.T) {
		sender := &captureSender{}
		n := NewEmailNotifier(sender, "orders@noodlesaucehaven.in", discardLogger())

		require.NoError(t, n.Notify(context.Background(), sampleOrder()))
		require.Len(t, sender.sent, 2)
		assert.Equal(t, "orders@noodlesaucehaven.in", sender.sent[1].To)
	})

	t.Run("customer failure skips admin copy", func(t *testing.T) {
		sender := &captureSender{failOn: "asha@example.com"}
		n := NewEmailNotifier(sender, "orders@noodlesaucehaven.in", discardLogger())

		err := n.Notify(context.Background(), sampleOrder())
		assert.ErrorContains(t, err, "send customer email")
		assert.Empty(t, sender.sent)
	})

	t.Run("admin failure is logged and not returned", func(t *testing.T) {
		sender := &captureSender{failOn: "orders@noodlesaucehaven.in"}
		n := NewEmailNotifier(sender, "orders@noodlesaucehaven.in", discardLogger())

		require.NoError(t, n.Notify(context.Background(), sampleOrder()))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "asha@example.com", sender.sent[0].To)
	})
}

type capturePublisher struct {
	key   string
	event any
	err   error
}

func (p *capturePublisher) Publish(_ context.Context, key string, event any) error {
	p.key, p.event = key, event
	return p.err
}

func TestEventNotifier(t *testing.T) {
	pub := &capturePublisher{}
	n := NewEventNotifier(pub)
	n.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, n.Notify(context.Background(), sampleOrder()))
	assert.Equal(t, "NSH-1700000000000", pub.key)

	data, err := json.Marshal(pub.event)
	require.NoError(t, err)
	var event domain.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "NSH-1700000000000", event.Order.OrderNumber)
	assert.Len(t, event.Order.Items, 2)
	assert.True(t, event.Order.Total.Equal(decimal.RequireFromString("801.81")))
	assert.True(t, event.Timestamp.Equal(time.Unix(1700000000, 0)))

	pub.err = errors.New("broker unreachable")
	assert.ErrorContains(t, n.Notify(context.Background(), sampleOrder()), "publish order placed event")
}
