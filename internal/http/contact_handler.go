package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_merch/internal/contact"
)

type ContactSender interface {
	Send(ctx context.Context, msg contact.Message) (string, error)
}

type ContactHandler struct {
	sender ContactSender
}

func NewContactHandler(sender ContactSender) *ContactHandler {
	return &ContactHandler{sender: sender}
}

type ContactResponseDTO struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// POST /api/v1/contact
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req contact.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id, err := h.sender.Send(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusAccepted, ContactResponseDTO{MessageID: id, Status: "sent"})
}
