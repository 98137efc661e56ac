package http

import (
	"context"
	"sync"

	"github.com/fjod/go_merch/internal/catalog"
	"github.com/fjod/go_merch/internal/contact"
	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/storefront"
)

type ProductRepoMock struct {
	products []*domain.Product
	err      error
}

func (m ProductRepoMock) GetAllProducts(context.Context) ([]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m ProductRepoMock) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

type InitiatorMock struct {
	mu      sync.Mutex
	items   []domain.CartItem
	session *domain.CheckoutSession
	err     error
}

func (m *InitiatorMock) Initiate(_ context.Context, items []domain.CartItem) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type confirmCall struct {
	sessionID string
	trigger   string
}

type ConfirmerMock struct {
	mu    sync.Mutex
	calls []confirmCall
	conf  *storefront.Confirmation
	err   error
}

func (m *ConfirmerMock) Confirm(_ context.Context, sessionID, trigger string) (*storefront.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, confirmCall{sessionID: sessionID, trigger: trigger})
	if m.err != nil {
		return nil, m.err
	}
	return m.conf, nil
}

type ContactMock struct {
	msg contact.Message
	err error
}

func (m *ContactMock) Send(_ context.Context, msg contact.Message) (string, error) {
	m.msg = msg
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return "msg-1", nil
}
