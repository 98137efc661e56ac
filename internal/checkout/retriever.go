package checkout

import (
	"context"
	"time"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/payment"
	"golang.org/x/sync/singleflight"
)

type Retriever struct {
	processor payment.Processor
	timeout   time.Duration
	sfg       singleflight.Group // success page and webhook often ask for the same session at once
}

func NewRetriever(processor payment.Processor, timeout time.Duration) *Retriever {
	return &Retriever{
		processor: processor,
		timeout:   timeout,
	}
}

// Retrieve fetches the finalized session with line items, products and the
// payment intent expanded. Unknown ids yield payment.ErrSessionNotFound.
func (r *Retriever) Retrieve(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	if sessionID == "" {
		return nil, payment.ErrSessionNotFound
	}

	v, err, _ := r.sfg.Do(sessionID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.processor.GetSession(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CheckoutSession), nil
}
