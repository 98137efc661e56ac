package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_merch/internal/domain"
)

type mockProcessor struct {
	mu       sync.Mutex
	requests []domain.NewSessionRequest
	session  *domain.CheckoutSession
	err      error
	delay    time.Duration
	getCalls atomic.Int32
}

func (m *mockProcessor) CreateSession(_ context.Context, req domain.NewSessionRequest) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockProcessor) GetSession(ctx context.Context, _ string) (*domain.CheckoutSession, error) {
	m.getCalls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}
