package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noodlesaucehaven/storefront/internal/catalog"
)

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, newCartResponse(s.Cart.Snapshot()))
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.Get(req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	state := s.Cart.AddToCart(product)
	h.persist(r.Context(), s)

	h.logger.Info("item added to cart", "session_id", s.ID, "product_id", product.ID, "item_count", state.ItemCount)
	h.writeJSON(w, http.StatusOK, newCartResponse(state))
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// HandleUpdateItem sets a line's quantity; zero or less removes the line.
func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	state := s.Cart.UpdateQuantity(productID, *req.Quantity)
	h.persist(r.Context(), s)

	h.writeJSON(w, http.StatusOK, newCartResponse(state))
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	state := s.Cart.RemoveFromCart(productID)
	h.persist(r.Context(), s)

	h.writeJSON(w, http.StatusOK, newCartResponse(state))
}

func (h *Handler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	state := s.Cart.ClearCart()
	h.persist(r.Context(), s)

	h.writeJSON(w, http.StatusOK, newCartResponse(state))
}
