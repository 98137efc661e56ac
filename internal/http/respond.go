package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_merch/internal/cart"
	"github.com/fjod/go_merch/internal/catalog"
	"github.com/fjod/go_merch/internal/checkout"
	"github.com/fjod/go_merch/internal/contact"
	"github.com/fjod/go_merch/internal/order"
	"github.com/fjod/go_merch/internal/payment"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps package sentinel errors onto HTTP statuses.
// Anything unrecognised is logged and reported as a bare 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, cart.ErrMalformedCart), errors.Is(err, cart.ErrInvalidItem):
		httpStatus, code = http.StatusBadRequest, "invalid_cart"
	case errors.Is(err, checkout.ErrEmptyCart):
		httpStatus, code = http.StatusBadRequest, "empty_cart"
	case errors.Is(err, checkout.ErrUnresolvedPrice):
		httpStatus, code = http.StatusBadRequest, "unresolved_price"
	case errors.Is(err, checkout.ErrInvalidQuantity):
		httpStatus, code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, checkout.ErrIncompleteCustomization):
		httpStatus, code = http.StatusBadRequest, "incomplete_customization"
	case errors.Is(err, checkout.ErrCartTooLarge):
		httpStatus, code = http.StatusBadRequest, "cart_too_large"
	case errors.Is(err, contact.ErrMissingField), errors.Is(err, contact.ErrInvalidEmail):
		httpStatus, code = http.StatusBadRequest, "invalid_message"
	case errors.Is(err, catalog.ErrProductNotFound):
		httpStatus, code = http.StatusNotFound, "not_found"
	case errors.Is(err, payment.ErrSessionNotFound):
		httpStatus, code = http.StatusNotFound, "session_not_found"
	case errors.Is(err, payment.ErrMissingKey), errors.Is(err, payment.ErrInvalidKey), errors.Is(err, payment.ErrMissingSecret):
		httpStatus, code = http.StatusInternalServerError, "configuration_error"
	case errors.Is(err, order.ErrMissingCustomer):
		httpStatus, code = http.StatusUnprocessableEntity, "missing_customer"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		httpStatus, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, contact.ErrRelayFailed), errors.Is(err, payment.ErrUpstream):
		httpStatus, code = http.StatusBadGateway, "upstream_error"
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled service error")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, r, httpStatus, code, err.Error())
}
