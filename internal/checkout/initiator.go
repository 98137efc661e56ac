package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/order"
	"github.com/fjod/go_merch/internal/payment"
	"github.com/rs/zerolog"
)

// maxMetadataKeys is the processor's per-object metadata limit.
const maxMetadataKeys = 50

// SessionConfig is applied to every session the initiator creates.
type SessionConfig struct {
	SuccessURL string
	CancelURL  string
	// ShippingCountries enables shipping address collection for these ISO
	// country codes.
	ShippingCountries []string
}

type Initiator struct {
	processor payment.Processor
	cfg       SessionConfig
	timeout   time.Duration
}

func NewInitiator(processor payment.Processor, cfg SessionConfig, timeout time.Duration) *Initiator {
	return &Initiator{
		processor: processor,
		cfg:       cfg,
		timeout:   timeout,
	}
}

// ResolvePriceID returns the processor price reference for a cart item:
// stripeId, then productId, then the raw id.
func ResolvePriceID(item domain.CartItem) string {
	switch {
	case item.StripeID != "":
		return item.StripeID
	case item.ProductID != "":
		return item.ProductID
	default:
		return item.ID
	}
}

// BuildSessionRequest validates the cart and turns it into a session
// request. Customization choices travel in session metadata keyed by line
// position so every later trigger can read them back from the session.
func (i *Initiator) BuildSessionRequest(items []domain.CartItem) (domain.NewSessionRequest, error) {
	req := domain.NewSessionRequest{
		SuccessURL:        i.cfg.SuccessURL,
		CancelURL:         i.cfg.CancelURL,
		ShippingCountries: i.cfg.ShippingCountries,
		Metadata:          make(map[string]string),
	}
	if len(items) == 0 {
		return req, ErrEmptyCart
	}

	req.LineItems = make([]domain.SessionLineItem, 0, len(items))
	for n, item := range items {
		priceID := ResolvePriceID(item)
		if priceID == "" {
			return req, fmt.Errorf("%w: line %d (%s)", ErrUnresolvedPrice, n, item.Name)
		}
		if item.Quantity <= 0 {
			return req, fmt.Errorf("%w: line %d (%s)", ErrInvalidQuantity, n, item.Name)
		}
		req.LineItems = append(req.LineItems, domain.SessionLineItem{
			PriceID:  priceID,
			Quantity: int64(item.Quantity),
		})

		if item.ID != "" {
			req.Metadata[order.MetadataKey(n, "product_id")] = item.ID
		}
		good, bad := item.CustomOptions.Emojis()
		if good == "" && bad == "" {
			continue
		}
		attrs := order.EmojiAttributes(good, bad)
		if attrs == nil {
			return req, fmt.Errorf("%w: line %d (%s)", ErrIncompleteCustomization, n, item.Name)
		}
		for _, a := range attrs {
			req.Metadata[order.MetadataKey(n, a.Name)] = a.Value
		}
	}

	if len(req.Metadata) > maxMetadataKeys {
		return req, fmt.Errorf("%w: %d lines", ErrCartTooLarge, len(items))
	}
	return req, nil
}

// Initiate creates a hosted checkout session for the cart. Nothing is
// recorded locally.
func (i *Initiator) Initiate(ctx context.Context, items []domain.CartItem) (*domain.CheckoutSession, error) {
	req, err := i.BuildSessionRequest(items)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	session, err := i.processor.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID).
		Int("lines", len(req.LineItems)).
		Msg("checkout session created")
	return session, nil
}
