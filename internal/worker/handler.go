package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

var ErrMalformedEvent = errors.New("malformed order placed event")

type Notifier interface {
	Notify(ctx context.Context, order domain.OrderSnapshot) error
}

// NotificationHandler turns order.placed events into confirmation emails.
type NotificationHandler struct {
	notifier Notifier
	logger   *slog.Logger
	newBack  func() backoff.BackOff
}

func NewNotificationHandler(notifier Notifier, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		logger:   logger,
		newBack: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Order.OrderNumber == "" || event.Order.Customer.Email == "" {
		return fmt.Errorf("%w: missing order number or customer email", ErrMalformedEvent)
	}

	order := event.Order
	h.logger.Info("processing order placed event", "order_number", order.OrderNumber, "user_id", order.UserID)

	attempt := 0
	send := func() error {
		attempt++
		return h.notifier.Notify(ctx, order)
	}
	notify := func(err error, wait time.Duration) {
		h.logger.Warn("order confirmation failed, retrying", "error", err, "order_number", order.OrderNumber, "attempt", attempt, "wait", wait)
	}

	if err := backoff.RetryNotify(send, backoff.WithContext(h.newBack(), ctx), notify); err != nil {
		h.logger.Error("failed to send order confirmation", "error", err, "order_number", order.OrderNumber, "attempts", attempt)
		return fmt.Errorf("send order confirmation: %w", err)
	}

	h.logger.Info("order confirmation sent", "order_number", order.OrderNumber, "attempts", attempt)
	return nil
}
