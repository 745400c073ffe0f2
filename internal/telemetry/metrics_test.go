package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestInitMeterProvider(t *testing.T) {
	handler, shutdown, err := InitMeterProvider("storefront-test", "0.0.0")
	if err != nil {
		t.Fatalf("InitMeterProvider: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	counter, err := otel.Meter("storefront/test").Int64Counter("checkout.attempts")
	if err != nil {
		t.Fatalf("create counter: %v", err)
	}
	counter.Add(context.Background(), 2, metric.WithAttributes(attribute.String("outcome", "success")))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "checkout_attempts_total") {
		t.Fatalf("expected checkout counter in exposition, got:\n%s", body)
	}
	if !strings.Contains(string(body), `outcome="success"`) {
		t.Fatalf("expected outcome label in exposition")
	}
}
