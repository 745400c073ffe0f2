package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/email"
)

type EmailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// EmailNotifier sends the customer confirmation and, when an admin address
// is set, a copy to the shop. Only the customer send decides the result, so
// a retry never mails the customer twice because the shop's copy bounced.
type EmailNotifier struct {
	sender     EmailSender
	adminEmail string
	logger     *slog.Logger
}

func NewEmailNotifier(sender EmailSender, adminEmail string, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, adminEmail: adminEmail, logger: logger}
}

func (n *EmailNotifier) Notify(ctx context.Context, order domain.OrderSnapshot) error {
	msg, err := Compose(order)
	if err != nil {
		return fmt.Errorf("compose order email: %w", err)
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send customer email: %w", err)
	}
	n.logger.Info("order email sent to customer", "order_number", order.OrderNumber)

	if n.adminEmail == "" {
		return nil
	}

	admin, err := AdminCopy(order, n.adminEmail)
	if err != nil {
		n.logger.Error("failed to compose admin email", "error", err, "order_number", order.OrderNumber)
		return nil
	}
	if err := n.sender.Send(ctx, admin); err != nil {
		n.logger.Error("failed to send admin email", "error", err, "order_number", order.OrderNumber)
		return nil
	}
	n.logger.Info("order email sent to admin", "order_number", order.OrderNumber)
	return nil
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// EventNotifier hands the order to the notification worker over the message
// bus instead of emailing inline.
type EventNotifier struct {
	publisher Publisher
	now       func() time.Time
}

func NewEventNotifier(publisher Publisher) *EventNotifier {
	return &EventNotifier{publisher: publisher, now: time.Now}
}

func (n *EventNotifier) Notify(ctx context.Context, order domain.OrderSnapshot) error {
	event := domain.OrderPlacedEvent{Order: order, Timestamp: n.now().UTC()}
	if err := n.publisher.Publish(ctx, order.OrderNumber, event); err != nil {
		return fmt.Errorf("publish order placed event: %w", err)
	}
	return nil
}

// LogNotifier stands in when no delivery channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, order domain.OrderSnapshot) error {
	n.logger.Warn("email delivery is not configured, skipping order notification",
		"order_number", order.OrderNumber, "customer_email", order.Customer.Email)
	return nil
}
