package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/email"
	"github.com/noodlesaucehaven/storefront/internal/notify"
)

type flakyNotifier struct {
	failures int
	calls    int
	last     domain.OrderSnapshot
}

func (n *flakyNotifier) Notify(_ context.Context, order domain.OrderSnapshot) error {
	n.calls++
	n.last = order
	if n.calls <= n.failures {
		return errors.New("email service unavailable")
	}
	return nil
}

func newTestHandler(n Notifier) *NotificationHandler {
	h := NewNotificationHandler(n, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.newBack = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}
	return h
}

func eventPayload(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(domain.OrderPlacedEvent{
		Order: domain.OrderSnapshot{
			OrderNumber: "NSH-42",
			Customer:    domain.Customer{FirstName: "Asha", Email: "asha@example.com"},
		},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

func TestNotificationHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		payload   func(t *testing.T) []byte
		failures  int
		wantErr   error
		wantCalls int
	}{
		{
			name:      "sends confirmation",
			payload:   eventPayload,
			wantCalls: 1,
		},
		{
			name:      "retries transient failures",
			payload:   eventPayload,
			failures:  2,
			wantCalls: 3,
		},
		{
			name:      "gives up after retries",
			payload:   eventPayload,
			failures:  10,
			wantCalls: 3,
			wantErr:   errors.New("send order confirmation"),
		},
		{
			name:    "malformed json",
			payload: func(*testing.T) []byte { return []byte("{") },
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "event without order",
			payload: func(*testing.T) []byte { return []byte(`{"order":{}}`) },
			wantErr: ErrMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &flakyNotifier{failures: tt.failures}
			err := newTestHandler(n).Handle(context.Background(), tt.payload(t))

			switch {
			case tt.wantErr == nil && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case errors.Is(tt.wantErr, ErrMalformedEvent) && !errors.Is(err, ErrMalformedEvent):
				t.Fatalf("expected ErrMalformedEvent, got %v", err)
			case tt.wantErr != nil && err == nil:
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}

			if n.calls != tt.wantCalls {
				t.Errorf("expected %d notify calls, got %d", tt.wantCalls, n.calls)
			}
			if tt.wantCalls > 0 && n.last.OrderNumber != "NSH-42" {
				t.Errorf("unexpected order %q", n.last.OrderNumber)
			}
		})
	}
}

type bouncingSender struct {
	bounce string
	sent   map[string]int
}

func (s *bouncingSender) Send(_ context.Context, msg email.Message) error {
	if msg.To == s.bounce {
		return errors.New("mailbox full")
	}
	s.sent[msg.To]++
	return nil
}

func TestNotificationHandler_AdminBounceDoesNotResendCustomerEmail(t *testing.T) {
	sender := &bouncingSender{bounce: "orders@noodlesaucehaven.in", sent: map[string]int{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := newTestHandler(notify.NewEmailNotifier(sender, "orders@noodlesaucehaven.in", logger))

	if err := h.Handle(context.Background(), eventPayload(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sender.sent["asha@example.com"]; got != 1 {
		t.Fatalf("expected exactly one customer email, got %d", got)
	}
}
