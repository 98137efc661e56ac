package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrInvalidKey      = errors.New("payment processor key is not a secret key")
	ErrMissingKey      = errors.New("payment processor secret key is not configured")
	ErrUpstream        = errors.New("payment processor request failed")
)

// Processor is the hosted-checkout surface the storefront depends on.
type Processor interface {
	CreateSession(ctx context.Context, req domain.NewSessionRequest) (*domain.CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
}

// SessionAPI is the subset of the Stripe checkout session client in use.
type SessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	ListLineItems(params *stripe.CheckoutSessionListLineItemsParams) *session.LineItemIter
}

type StripeProcessor struct {
	sessions SessionAPI
}

// ValidateSecretKey rejects empty keys and publishable keys.
func ValidateSecretKey(key string) error {
	switch {
	case key == "":
		return ErrMissingKey
	case strings.HasPrefix(key, "sk_"), strings.HasPrefix(key, "rk_"):
		return nil
	default:
		return ErrInvalidKey
	}
}

// NewStripeProcessor builds a processor bound to its own API key instead of
// the package-global stripe.Key.
func NewStripeProcessor(secretKey string, httpClient *http.Client) (*StripeProcessor, error) {
	if err := ValidateSecretKey(secretKey); err != nil {
		return nil, err
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: httpClient,
	})
	return NewProcessor(&session.Client{B: backend, Key: secretKey}), nil
}

func NewProcessor(sessions SessionAPI) *StripeProcessor {
	return &StripeProcessor{sessions: sessions}
}

func (p *StripeProcessor) CreateSession(ctx context.Context, req domain.NewSessionRequest) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems:  make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems)),
	}
	params.Context = ctx
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(li.PriceID),
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	if len(req.ShippingCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.ShippingCountries),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %w", ErrUpstream, err)
	}
	return toDomain(s), nil
}

func (p *StripeProcessor) GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")
	params.AddExpand("payment_intent")

	s, err := p.sessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("%w: retrieve checkout session %s: %w", ErrUpstream, id, err)
	}

	// the expanded list is only the first page
	if s.LineItems != nil && s.LineItems.HasMore {
		items, err := p.listLineItems(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: list line items of %s: %w", ErrUpstream, id, err)
		}
		s.LineItems.Data = items
	}
	return toDomain(s), nil
}

func (p *StripeProcessor) listLineItems(ctx context.Context, id string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(id)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.price.product")

	var items []*stripe.LineItem
	iter := p.sessions.ListLineItems(params)
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func toDomain(s *stripe.CheckoutSession) *domain.CheckoutSession {
	out := &domain.CheckoutSession{
		ID:             s.ID,
		URL:            s.URL,
		PaymentStatus:  domain.PaymentStatus(s.PaymentStatus),
		AmountTotal:    s.AmountTotal,
		AmountSubtotal: s.AmountSubtotal,
		Metadata:       s.Metadata,
	}
	if s.TotalDetails != nil {
		out.AmountTax = s.TotalDetails.AmountTax
		out.AmountShipping = s.TotalDetails.AmountShipping
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if cd := s.CustomerDetails; cd != nil {
		out.Customer = &domain.CustomerDetails{Email: cd.Email, Name: cd.Name, Address: toAddress(cd.Address)}
	}
	// orders ship to the collected shipping address, not the billing one
	if sd := s.ShippingDetails; sd != nil && sd.Address != nil {
		if out.Customer == nil {
			out.Customer = &domain.CustomerDetails{}
		}
		out.Customer.Address = toAddress(sd.Address)
		if sd.Name != "" {
			out.Customer.Name = sd.Name
		}
	}
	if s.LineItems != nil {
		out.LineItems = make([]domain.LineItem, 0, len(s.LineItems.Data))
		for _, li := range s.LineItems.Data {
			item := domain.LineItem{
				ID:          li.ID,
				Description: li.Description,
				Quantity:    li.Quantity,
				AmountTotal: li.AmountTotal,
			}
			if li.Price != nil {
				item.PriceID = li.Price.ID
				if li.Price.Product != nil {
					item.ProductID = li.Price.Product.ID
				}
			}
			out.LineItems = append(out.LineItems, item)
		}
	}
	return out
}

func toAddress(a *stripe.Address) *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// Misconfigured fails every call with err. It stands in for the Stripe
// processor when the configured key is unusable, so checkout reports a
// configuration error instead of the process refusing to start.
type Misconfigured struct {
	Err error
}

func (m Misconfigured) CreateSession(context.Context, domain.NewSessionRequest) (*domain.CheckoutSession, error) {
	return nil, m.Err
}

func (m Misconfigured) GetSession(context.Context, string) (*domain.CheckoutSession, error) {
	return nil, m.Err
}
