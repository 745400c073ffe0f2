package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

type RetryPolicy struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a transient error.
	MaxRetries uint64
	// Wait is the pause between attempts.
	Wait time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Timeout: 15 * time.Second, MaxRetries: 1, Wait: 250 * time.Millisecond}
}

type retryingGateway struct {
	next   Gateway
	policy RetryPolicy
	logger *slog.Logger
}

// WithRetry bounds every attempt with the policy's timeout and retries
// transient errors. Declines come back as results and are never retried.
func WithRetry(g Gateway, policy RetryPolicy, logger *slog.Logger) Gateway {
	return &retryingGateway{next: g, policy: policy, logger: logger}
}

func (g *retryingGateway) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	var result domain.PaymentResult

	op := func() error {
		attemptCtx := ctx
		if g.policy.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.policy.Timeout)
			defer cancel()
		}

		res, err := g.next.Pay(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil || isBreakerRejection(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.policy.Wait), g.policy.MaxRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		g.logger.Warn("retrying payment after transient error",
			"error", err, "method", req.Method, "order_number", req.OrderNumber, "wait", wait)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return domain.PaymentResult{}, err
	}
	return result, nil
}

type breakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[domain.PaymentResult]
}

// WithCircuitBreaker stops calling a provider after repeated transient
// failures and lets one trial call through once the open timeout passes.
func WithCircuitBreaker(name string, g Gateway, logger *slog.Logger) Gateway {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment circuit breaker state changed", "gateway", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerGateway{next: g, cb: gobreaker.NewCircuitBreaker[domain.PaymentResult](settings)}
}

func (g *breakerGateway) Pay(ctx context.Context, req Request) (domain.PaymentResult, error) {
	return g.cb.Execute(func() (domain.PaymentResult, error) {
		return g.next.Pay(ctx, req)
	})
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
