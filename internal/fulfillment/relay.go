package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_merch/internal/cache"
	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/metrics"
	"github.com/fjod/go_merch/internal/publisher"
	"github.com/rs/zerolog"
)

var (
	ErrDuplicateOrder = errors.New("order already relayed")
	ErrNilOrder       = errors.New("order is nil")
)

// Trigger names the path that produced a relay.
const (
	TriggerSuccessPage = "success_page"
	TriggerWebhook     = "webhook"
	TriggerReplay      = "replay"
)

type Orders interface {
	CreateOrder(ctx context.Context, order *domain.FulfillmentOrder) (*domain.OrderReceipt, error)
}

// Relay forwards orders to the backend at most once per payment id.
type Relay struct {
	orders     Orders
	store      cache.IdempotencyStore
	deadLetter publisher.DeadLetter
	metrics    *metrics.Metrics
	timeout    time.Duration
	now        func() time.Time
}

func NewRelay(orders Orders, store cache.IdempotencyStore, dl publisher.DeadLetter, m *metrics.Metrics, timeout time.Duration) *Relay {
	if dl == nil {
		dl = publisher.Nop{}
	}
	return &Relay{
		orders:     orders,
		store:      store,
		deadLetter: dl,
		metrics:    m,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Submit relays the order. A failure is logged with the full payload and
// parked on the dead letter topic before the error is returned.
func (r *Relay) Submit(ctx context.Context, order *domain.FulfillmentOrder, trigger string) (*domain.OrderReceipt, error) {
	if order == nil {
		return nil, ErrNilOrder
	}
	log := zerolog.Ctx(ctx).With().
		Str("payment_id", order.PaymentID).
		Str("trigger", trigger).
		Logger()

	claimed := false
	if r.store != nil && order.PaymentID != "" {
		ok, err := r.store.Claim(ctx, order.PaymentID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("idempotency claim failed, relaying without it")
		case !ok:
			log.Info().Msg("order already relayed, skipping")
			r.record(trigger, metrics.RelayDuplicate)
			return nil, ErrDuplicateOrder
		default:
			claimed = true
		}
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	receipt, err := r.orders.CreateOrder(callCtx, order)
	if err != nil {
		if claimed {
			if relErr := r.store.Release(context.WithoutCancel(ctx), order.PaymentID); relErr != nil {
				log.Warn().Err(relErr).Msg("failed to release idempotency claim")
			}
		}
		log.Error().Err(err).Interface("order", order).Msg("fulfillment relay failed")
		r.park(ctx, log, order, trigger, err)
		r.record(trigger, metrics.RelayFailure)
		return nil, fmt.Errorf("relay order %s: %w", order.PaymentID, err)
	}

	if receipt == nil {
		receipt = &domain.OrderReceipt{}
	}
	log.Info().Str("order_ref", receipt.Reference()).Msg("order relayed")
	r.record(trigger, metrics.RelaySuccess)
	return receipt, nil
}

func (r *Relay) park(ctx context.Context, log zerolog.Logger, order *domain.FulfillmentOrder, trigger string, cause error) {
	failed := publisher.FailedRelay{
		PaymentID: order.PaymentID,
		Trigger:   trigger,
		Error:     cause.Error(),
		Order:     order,
		FailedAt:  r.now().UTC(),
	}
	if err := r.deadLetter.Publish(context.WithoutCancel(ctx), failed); err != nil {
		log.Error().Err(err).Msg("failed to publish dead letter")
	}
}

func (r *Relay) record(trigger, outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RelayOutcomes.WithLabelValues(trigger, outcome).Inc()
}
