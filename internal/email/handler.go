package email

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type Handler struct {
	sender   Sender
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(sender Sender, logger *slog.Logger) *Handler {
	return &Handler{
		sender:   sender,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid message: "+err.Error())
		return
	}

	if err := h.sender.Send(r.Context(), msg); err != nil {
		h.logger.Error("failed to send email", "error", err, "to", msg.To)
		h.writeError(w, http.StatusBadGateway, "failed to send email")
		return
	}

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
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
