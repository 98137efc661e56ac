package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

const (
	SignatureHeader                           = "Stripe-Signature"
	EventCheckoutSessionCompleted             = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// ConfirmsSession reports whether an event of this type should push its
// session through confirmation. Delayed payment methods complete the
// session unpaid and settle later.
func ConfirmsSession(eventType string) bool {
	return eventType == EventCheckoutSessionCompleted || eventType == EventCheckoutSessionAsyncPaymentSucceeded
}

var (
	ErrMissingSignature  = errors.New("missing webhook signature")
	ErrMissingSecret     = errors.New("webhook secret is not configured")
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	ErrMalformedEvent    = errors.New("malformed webhook event")
)

// Event is the part of a processor event the storefront acts on.
type Event struct {
	ID        string
	Type      string
	SessionID string
}

// VerifyWebhook checks the signature header against an HMAC-SHA256 of the
// exact raw payload and decodes the event.
func VerifyWebhook(payload []byte, signature, secret string) (*Event, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}
	if secret == "" {
		return nil, ErrMissingSecret
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrInvalidHeader) {
			return nil, fmt.Errorf("%w: %v", ErrMissingSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if !ConfirmsSession(out.Type) {
		return out, nil
	}
	if ev.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, ev.ID)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: event %s carries no session id", ErrMalformedEvent, ev.ID)
	}
	out.SessionID = s.ID
	return out, nil
}
