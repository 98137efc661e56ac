package http

import (
	"io"
	"net/http"

	"github.com/fjod/go_merch/internal/fulfillment"
	"github.com/fjod/go_merch/internal/metrics"
	"github.com/fjod/go_merch/internal/payment"
	"github.com/rs/zerolog"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	confirmer Confirmer
	secret    string
	metrics   *metrics.Metrics
}

func NewWebhookHandler(confirmer Confirmer, secret string, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		confirmer: confirmer,
		secret:    secret,
		metrics:   m,
	}
}

// Stripe verifies the delivery against the raw body and confirms completed
// or settled sessions. Other event types are acknowledged and ignored.
// POST /webhooks/stripe
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}

	ev, err := payment.VerifyWebhook(payload, r.Header.Get(payment.SignatureHeader), h.secret)
	if err != nil {
		h.count("unknown", "rejected")
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("webhook rejected")
		respondError(w, r, http.StatusBadRequest, "invalid_signature", err.Error())
		return
	}

	log := zerolog.Ctx(r.Context()).With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()
	if !payment.ConfirmsSession(ev.Type) {
		h.count(ev.Type, "ignored")
		respondJSON(w, r, http.StatusOK, map[string]bool{"received": true})
		return
	}

	conf, err := h.confirmer.Confirm(log.WithContext(r.Context()), ev.SessionID, fulfillment.TriggerWebhook)
	if err != nil {
		// the processor retries non-2xx deliveries
		h.count(ev.Type, "failed")
		log.Error().Err(err).Str("session_id", ev.SessionID).Msg("webhook confirmation failed")
		handleServiceError(w, r, err)
		return
	}

	h.count(ev.Type, "processed")
	log.Info().Str("session_id", ev.SessionID).Str("status", string(conf.Status)).Msg("webhook processed")
	respondJSON(w, r, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) count(eventType, result string) {
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(eventType, result).Inc()
	}
}
