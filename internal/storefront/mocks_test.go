package storefront

import (
	"context"
	"sync"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/payment"
)

// fakeProcessor keeps created sessions so they can be read back as if the
// buyer had paid.
type fakeProcessor struct {
	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{sessions: make(map[string]*domain.CheckoutSession)}
}

func (p *fakeProcessor) CreateSession(_ context.Context, req domain.NewSessionRequest) (*domain.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &domain.CheckoutSession{
		ID:       "cs_test_1",
		URL:      "https://pay.test/cs_test_1",
		Metadata: req.Metadata,
	}
	for _, li := range req.LineItems {
		s.LineItems = append(s.LineItems, domain.LineItem{
			PriceID:     li.PriceID,
			ProductID:   "prod_" + li.PriceID,
			Quantity:    li.Quantity,
			AmountTotal: 2000 * li.Quantity,
		})
	}
	p.sessions[s.ID] = s
	return s, nil
}

func (p *fakeProcessor) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	return s, nil
}

// pay simulates the hosted checkout completing.
func (p *fakeProcessor) pay(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sessions[id]
	s.PaymentStatus = domain.PaymentStatusPaid
	s.PaymentIntentID = "pi_test_1"
	s.AmountTotal = 4599
	s.AmountShipping = 500
	s.AmountTax = 99
	s.Customer = &domain.CustomerDetails{
		Email: "jane@example.com",
		Name:  "Jane Q Public",
		Address: &domain.Address{
			Line1:      "1 Main St",
			City:       "Austin",
			State:      "TX",
			PostalCode: "78701",
			Country:    "US",
		},
	}
}

type retrieverMock struct {
	session *domain.CheckoutSession
	err     error
}

func (r *retrieverMock) Retrieve(_ context.Context, _ string) (*domain.CheckoutSession, error) {
	return r.session, r.err
}

type relayMock struct {
	mu      sync.Mutex
	orders  []*domain.FulfillmentOrder
	receipt *domain.OrderReceipt
	err     error
}

func (r *relayMock) Submit(_ context.Context, o *domain.FulfillmentOrder, _ string) (*domain.OrderReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o)
	return r.receipt, r.err
}
