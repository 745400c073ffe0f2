package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	h := NewHandler(c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Get("/products", h.HandleList)
	r.Get("/products/{id}", h.HandleGet)
	return r
}

func TestHandler_HandleList(t *testing.T) {
	router := newTestRouter(t)

	t.Run("lists all products with counts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp listResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Products) != 8 {
			t.Errorf("expected 8 products, got %d", len(resp.Products))
		}
		if resp.Counts["noodles"] != 4 {
			t.Errorf("expected 4 noodles, got %d", resp.Counts["noodles"])
		}
	})

	t.Run("treats category=all as no filter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products?category=all", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		var resp listResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Products) != 8 {
			t.Errorf("expected 8 products, got %d", len(resp.Products))
		}
	})

	t.Run("filters by category and query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products?category=sauces&q=garlic", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		var resp listResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		for _, p := range resp.Products {
			if p.Category != domain.CategorySauces {
				t.Errorf("unexpected category %s for %s", p.Category, p.ID)
			}
		}
		if len(resp.Products) != 2 {
			t.Errorf("expected 2 garlic sauces, got %d", len(resp.Products))
		}
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products?category=desserts", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleGet(t *testing.T) {
	router := newTestRouter(t)

	t.Run("returns the product", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/spicy-ramen", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var p domain.Product
		if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if p.Name != "Spicy Ramen Noodles" {
			t.Errorf("unexpected name %q", p.Name)
		}
	})

	t.Run("returns 404 for unknown id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/unknown", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
