package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/fulfillment"
	"github.com/fjod/go_merch/internal/metrics"
	"github.com/fjod/go_merch/internal/payment"
	"github.com/fjod/go_merch/internal/storefront"
)

type SessionInitiator interface {
	Initiate(ctx context.Context, items []domain.CartItem) (*domain.CheckoutSession, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, sessionID, trigger string) (*storefront.Confirmation, error)
}

type CheckoutHandler struct {
	initiator SessionInitiator
	confirmer Confirmer
	metrics   *metrics.Metrics
	cartURL   string
}

func NewCheckoutHandler(initiator SessionInitiator, confirmer Confirmer, m *metrics.Metrics, cartURL string) *CheckoutHandler {
	return &CheckoutHandler{
		initiator: initiator,
		confirmer: confirmer,
		metrics:   m,
		cartURL:   cartURL,
	}
}

type CheckoutResponseDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	store, err := readCart(r)
	if err != nil {
		h.count("invalid")
		handleServiceError(w, r, err)
		return
	}

	session, err := h.initiator.Initiate(r.Context(), store.Items())
	if err != nil {
		if errors.Is(err, payment.ErrUpstream) || errors.Is(err, context.DeadlineExceeded) {
			h.count("error")
		} else {
			h.count("invalid")
		}
		handleServiceError(w, r, err)
		return
	}

	h.count("created")
	respondJSON(w, r, http.StatusCreated, CheckoutResponseDTO{
		SessionID: session.ID,
		URL:       session.URL,
	})
}

// Success is hit when the buyer returns from hosted checkout. An unknown
// or missing session sends the buyer back to the cart.
// GET /api/v1/checkout/success?session_id=
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Redirect(w, r, h.cartURL, http.StatusSeeOther)
		return
	}

	conf, err := h.confirmer.Confirm(r.Context(), sessionID, fulfillment.TriggerSuccessPage)
	if errors.Is(err, payment.ErrSessionNotFound) {
		http.Redirect(w, r, h.cartURL, http.StatusSeeOther)
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, conf)
}

func (h *CheckoutHandler) count(result string) {
	if h.metrics != nil {
		h.metrics.CheckoutSessions.WithLabelValues(result).Inc()
	}
}
