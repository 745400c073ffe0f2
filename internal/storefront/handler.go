package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/noodlesaucehaven/storefront/internal/catalog"
	"github.com/noodlesaucehaven/storefront/internal/checkout"
	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/session"
)

// SessionHeader carries the shopper's session id. Requests without one, or
// with one the server no longer knows, get a fresh session echoed back.
const SessionHeader = "X-Session-ID"

type Handler struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	methods  []domain.PaymentMethod
	logger   *slog.Logger
}

func NewHandler(c *catalog.Catalog, sessions *session.Manager, methods []domain.PaymentMethod, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  c,
		sessions: sessions,
		methods:  methods,
		logger:   logger,
	}
}

type cartResponse struct {
	domain.CartState
	Totals checkout.Totals `json:"totals"`
}

func newCartResponse(state domain.CartState) cartResponse {
	return cartResponse{CartState: state, Totals: checkout.ComputeTotals(state.Total)}
}

// session resolves the request's session and echoes its id. It writes the
// error response itself and reports false when the store is unreachable.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.Header.Get(SessionHeader)

	var s *session.Session
	if id != "" {
		var err error
		s, err = h.sessions.Get(r.Context(), id)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			h.logger.Error("failed to load session", "error", err, "session_id", id)
			h.writeError(w, http.StatusServiceUnavailable, "session store unavailable")
			return nil, false
		}
	}
	if s == nil {
		s = h.sessions.Create()
		h.logger.Info("session created", "session_id", s.ID)
	}

	w.Header().Set(SessionHeader, s.ID)
	return s, true
}

func (h *Handler) persist(ctx context.Context, s *session.Session) {
	if err := h.sessions.Save(ctx, s); err != nil {
		h.logger.Warn("failed to persist cart", "error", err, "session_id", s.ID)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
