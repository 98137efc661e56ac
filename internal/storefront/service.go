// Package storefront ties the checkout pipeline together: a completed
// session is retrieved, checked for payment, transformed and relayed.
// Both the success page and the webhook go through Confirm.
package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/fulfillment"
	"github.com/fjod/go_merch/internal/order"
	"github.com/fjod/go_merch/internal/payment"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
)

type Confirmation struct {
	Status      Status  `json:"status"`
	SessionID   string  `json:"session_id"`
	PaymentID   string  `json:"payment_id,omitempty"`
	OrderNumber string  `json:"order_number,omitempty"`
	Email       string  `json:"email,omitempty"`
	AmountTotal float64 `json:"amount_total"`
}

type SessionRetriever interface {
	Retrieve(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
}

type OrderRelay interface {
	Submit(ctx context.Context, order *domain.FulfillmentOrder, trigger string) (*domain.OrderReceipt, error)
}

type Service struct {
	sessions SessionRetriever
	relay    OrderRelay
}

func NewService(sessions SessionRetriever, relay OrderRelay) *Service {
	return &Service{sessions: sessions, relay: relay}
}

// Confirm returns an error only when the session cannot be read or
// transformed. Relay failures are already logged and parked by the relay
// and still confirm, since the buyer has paid.
func (s *Service) Confirm(ctx context.Context, sessionID, trigger string) (*Confirmation, error) {
	log := zerolog.Ctx(ctx).With().Str("session_id", sessionID).Str("trigger", trigger).Logger()

	sess, err := s.sessions.Retrieve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, payment.ErrSessionNotFound
	}

	conf := &Confirmation{
		SessionID:   sess.ID,
		PaymentID:   order.PaymentID(sess),
		AmountTotal: order.MinorToMajor(sess.AmountTotal),
	}
	if sess.Customer != nil {
		conf.Email = sess.Customer.Email
	}

	if !sess.PaymentStatus.IsSettled() {
		log.Info().Str("payment_status", sess.PaymentStatus.String()).Msg("session not paid, skipping relay")
		conf.Status = StatusPending
		return conf, nil
	}
	conf.Status = StatusConfirmed

	fo, err := order.Transform(sess)
	if err != nil {
		return nil, fmt.Errorf("transform session %s: %w", sess.ID, err)
	}

	receipt, err := s.relay.Submit(ctx, fo, trigger)
	switch {
	case errors.Is(err, fulfillment.ErrDuplicateOrder):
		log.Debug().Msg("order was relayed earlier")
	case err != nil:
		log.Warn().Err(err).Msg("confirming without order number")
	case receipt != nil:
		conf.OrderNumber = receipt.Reference()
	}
	return conf, nil
}
