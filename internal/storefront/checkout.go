package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noodlesaucehaven/storefront/internal/auth"
	"github.com/noodlesaucehaven/storefront/internal/checkout"
	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/payment"
)

type checkoutStatusResponse struct {
	checkout.Status
	Methods []methodOption  `json:"methods"`
	Totals  checkout.Totals `json:"totals"`
}

type methodOption struct {
	ID    domain.PaymentMethod `json:"id"`
	Label string               `json:"label"`
}

func (h *Handler) HandleCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	methods := make([]methodOption, 0, len(h.methods))
	for _, m := range h.methods {
		methods = append(methods, methodOption{ID: m, Label: m.DisplayName()})
	}

	h.writeJSON(w, http.StatusOK, checkoutStatusResponse{
		Status:  s.Checkout.Status(),
		Methods: methods,
		Totals:  checkout.ComputeTotals(s.Cart.Snapshot().Total),
	})
}

type checkoutRequest struct {
	Customer      domain.Customer              `json:"customer"`
	PaymentMethod domain.PaymentMethod         `json:"payment_method"`
	UPIID         string                       `json:"upi_id,omitempty"`
	Card          payment.CardDetails          `json:"card"`
	Razorpay      payment.RazorpayConfirmation `json:"razorpay"`
}

// HandleCheckout runs one checkout attempt. Routes must sit behind
// auth.RequireUser.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	out, err := s.Checkout.Submit(r.Context(), checkout.Request{
		UserID:   user.ID,
		Customer: req.Customer,
		Method:   req.PaymentMethod,
		UPIID:    req.UPIID,
		Card:     req.Card,
		Razorpay: req.Razorpay,
	})
	switch {
	case errors.Is(err, checkout.ErrInvalidCustomer):
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		h.writeError(w, http.StatusBadRequest, "cart is empty")
		return
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		h.writeError(w, http.StatusConflict, "checkout already in progress")
		return
	case err != nil:
		h.logger.Error("checkout failed", "error", err, "session_id", s.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if out.State != checkout.StateCompleted {
		h.writeJSON(w, http.StatusPaymentRequired, out)
		return
	}

	h.persist(r.Context(), s)
	h.writeJSON(w, http.StatusOK, out)
}
