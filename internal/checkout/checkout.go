package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noodlesaucehaven/storefront/internal/cart"
	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/payment"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidCustomer    = errors.New("invalid shipping details")
)

const paymentUnavailableMessage = "Payment failed. Please try again."

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Notifier delivers the order confirmation. Failures are logged by the
// caller and never affect the order.
type Notifier interface {
	Notify(ctx context.Context, order domain.OrderSnapshot) error
}

type NotifierFunc func(ctx context.Context, order domain.OrderSnapshot) error

func (f NotifierFunc) Notify(ctx context.Context, order domain.OrderSnapshot) error {
	return f(ctx, order)
}

type OrderRecorder interface {
	Create(ctx context.Context, order *domain.OrderSnapshot) error
}

type Request struct {
	UserID   string
	Customer domain.Customer
	Method   domain.PaymentMethod
	UPIID    string
	Card     payment.CardDetails
	// Razorpay carries the widget's confirmation when resubmitting a
	// Razorpay order the customer has paid.
	Razorpay payment.RazorpayConfirmation
}

type Outcome struct {
	State   State                 `json:"state"`
	Message string                `json:"message"`
	Payment domain.PaymentResult  `json:"payment"`
	Order   *domain.OrderSnapshot `json:"order,omitempty"`
}

// Service holds what every session's checkout shares: payment dispatch,
// notification, order history and instrumentation.
type Service struct {
	payments      payment.Gateway
	notifier      Notifier
	orders        OrderRecorder
	validate      *validator.Validate
	logger        *slog.Logger
	now           func() time.Time
	notifyTimeout time.Duration

	attempts metric.Int64Counter
	duration metric.Float64Histogram

	wg sync.WaitGroup
}

type Option func(*Service)

func WithOrderRecorder(r OrderRecorder) Option {
	return func(s *Service) { s.orders = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.notifyTimeout = d }
}

func NewService(payments payment.Gateway, notifier Notifier, logger *slog.Logger, opts ...Option) (*Service, error) {
	meter := otel.Meter("storefront/checkout")

	attempts, err := meter.Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout attempts by payment method and outcome"))
	if err != nil {
		return nil, fmt.Errorf("create attempts counter: %w", err)
	}

	duration, err := meter.Float64Histogram("checkout.payment.duration",
		metric.WithDescription("Time spent waiting on the payment gateway"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create payment duration histogram: %w", err)
	}

	s := &Service{
		payments:      payments,
		notifier:      notifier,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger,
		now:           time.Now,
		notifyTimeout: 30 * time.Second,
		attempts:      attempts,
		duration:      duration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Drain waits for in-flight notifications to finish or ctx to end.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) NewOrchestrator(store *cart.Store) *Orchestrator {
	return &Orchestrator{svc: s, cart: store, state: StateIdle}
}

func (s *Service) dispatchNotification(ctx context.Context, order domain.OrderSnapshot) {
	if s.notifier == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(ctx, order); err != nil {
			s.logger.Error("failed to send order notification", "error", err, "order_number", order.OrderNumber)
			return
		}
		s.logger.Info("order notification sent", "order_number", order.OrderNumber)
	}()
}

func (s *Service) record(ctx context.Context, method domain.PaymentMethod, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("payment.method", string(method)),
		attribute.String("outcome", outcome),
	)
	s.attempts.Add(ctx, 1, attrs)
	s.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// Orchestrator runs checkout attempts for one session's cart. At most one
// attempt is in flight at a time.
type Orchestrator struct {
	svc  *Service
	cart *cart.Store

	mu        sync.Mutex
	state     State
	lastError string
	lastOrder *domain.OrderSnapshot
}

type Status struct {
	State State                 `json:"state"`
	Error string                `json:"error,omitempty"`
	Order *domain.OrderSnapshot `json:"order,omitempty"`
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{State: o.state, Error: o.lastError, Order: o.lastOrder}
}

// Reset returns a failed or completed attempt to idle.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateProcessing {
		o.state = StateIdle
		o.lastError = ""
	}
}

// Submit validates the shipping details, snapshots the cart and pays.
// A declined payment is reported in the Outcome with a nil error; errors are
// returned only when the attempt never started.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Outcome, error) {
	if err := o.svc.validate.Struct(req.Customer); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Outcome{}, fmt.Errorf("%w: %s is %s", ErrInvalidCustomer, verrs[0].Field(), verrs[0].Tag())
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}

	order, err := o.begin(req)
	if err != nil {
		return Outcome{}, err
	}

	log := o.svc.logger.With("order_number", order.OrderNumber, "method", req.Method)
	log.Info("checkout started", "total", order.Total.StringFixed(2), "items", len(order.Items))

	start := time.Now()
	result, err := o.svc.payments.Pay(ctx, payment.Request{
		OrderID:     order.ID,
		Method:      req.Method,
		Amount:      order.Total,
		OrderNumber: order.OrderNumber,
		Customer:    req.Customer,
		UPIID:       req.UPIID,
		Card:        req.Card,
		Razorpay:    req.Razorpay,
	})
	elapsed := time.Since(start)

	if err != nil {
		log.Error("payment failed", "error", err)
		o.svc.record(ctx, req.Method, "error", elapsed)
		result = domain.PaymentFailed(req.Method, paymentUnavailableMessage)
		return o.fail(result), nil
	}

	if !result.Success {
		log.Warn("payment declined", "reason", result.Error)
		o.svc.record(ctx, req.Method, "declined", elapsed)
		return o.fail(result), nil
	}

	order.PaymentID = result.PaymentID
	order.Status = domain.OrderStatusPlaced

	if o.svc.orders != nil {
		if err := o.svc.orders.Create(ctx, &order); err != nil {
			log.Error("failed to record order", "error", err)
		}
	}
	o.svc.dispatchNotification(ctx, order)
	o.cart.Settle(order.Items)
	o.svc.record(ctx, req.Method, "completed", elapsed)

	o.mu.Lock()
	o.state = StateCompleted
	o.lastError = ""
	o.lastOrder = &order
	o.mu.Unlock()

	log.Info("checkout completed", "payment_id", result.PaymentID)
	return Outcome{
		State:   StateCompleted,
		Message: SuccessMessage(req.Method),
		Payment: result,
		Order:   &order,
	}, nil
}

func (o *Orchestrator) begin(req Request) (domain.OrderSnapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateProcessing {
		return domain.OrderSnapshot{}, ErrCheckoutInProgress
	}

	cartState := o.cart.Snapshot()
	if cartState.IsEmpty() {
		return domain.OrderSnapshot{}, ErrEmptyCart
	}

	now := o.svc.now()
	totals := ComputeTotals(cartState.Total)
	id := uuid.New().String()

	o.state = StateProcessing
	o.lastError = ""

	return domain.OrderSnapshot{
		ID:            id,
		OrderNumber:   OrderNumber(now, id),
		UserID:        req.UserID,
		Customer:      req.Customer,
		Items:         domain.OrderItemsFromCart(cartState.Items),
		Subtotal:      totals.Subtotal,
		Shipping:      totals.Shipping,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: req.Method,
		CreatedAt:     now.UTC(),
	}, nil
}

func (o *Orchestrator) fail(result domain.PaymentResult) Outcome {
	o.mu.Lock()
	o.state = StateFailed
	o.lastError = result.Error
	o.mu.Unlock()

	return Outcome{State: StateFailed, Message: result.Error, Payment: result}
}

// OrderNumber is NSH-<unix millis>-<first 8 hex digits of the order id>.
// The suffix keeps numbers unique when checkouts land in the same millisecond.
func OrderNumber(at time.Time, orderID string) string {
	suffix := strings.ReplaceAll(orderID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("NSH-%d-%s", at.UnixMilli(), strings.ToUpper(suffix))
}

func SuccessMessage(method domain.PaymentMethod) string {
	switch method {
	case domain.PaymentMethodCOD:
		return "Order placed with Cash on Delivery"
	case domain.PaymentMethodUPI:
		return "UPI payment successful"
	case domain.PaymentMethodRazorpay:
		return "Payment successful via Razorpay"
	case domain.PaymentMethodStripe:
		return "Payment successful via Stripe"
	default:
		return "Card payment successful"
	}
}
