package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/fulfillment"
	"github.com/fjod/go_merch/internal/publisher"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const groupID = "storefront-replay"

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Submitter interface {
	Submit(ctx context.Context, order *domain.FulfillmentOrder, trigger string) (*domain.OrderReceipt, error)
}

// Consumer replays parked orders through the relay. A replay that fails
// again is parked again by the relay itself, so every message is committed
// once handled. Records younger than delay are held back.
type Consumer struct {
	reader MessageReader
	relay  Submitter
	delay  time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

func NewConsumer(relay Submitter, delay time.Duration, log zerolog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.DeadLetterTopic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(reader, relay, delay, log)
}

func NewConsumerWithReader(reader MessageReader, relay Submitter, delay time.Duration, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		relay:  relay,
		delay:  delay,
		log:    log,
		now:    time.Now,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn().Err(err).Msg("error closing kafka reader")
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.log.Error().Err(err).Msg("error reading dead letter")
		return
	}
	log := c.log.With().Int64("offset", m.Offset).Str("key", string(m.Key)).Logger()

	var failed publisher.FailedRelay
	if err := json.Unmarshal(m.Value, &failed); err != nil || failed.Order == nil {
		log.Error().Err(err).Bytes("value", m.Value).Msg("unreadable dead letter, skipping")
		c.commit(ctx, log, m)
		return
	}

	if wait := failed.FailedAt.Add(c.delay).Sub(c.now()); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}

	receipt, err := c.relay.Submit(log.WithContext(ctx), failed.Order, fulfillment.TriggerReplay)
	switch {
	case errors.Is(err, fulfillment.ErrDuplicateOrder):
		log.Info().Str("payment_id", failed.PaymentID).Msg("order already relayed, dropping dead letter")
	case err != nil:
		log.Warn().Err(err).Str("payment_id", failed.PaymentID).Msg("replay failed, order parked again")
	default:
		log.Info().Str("payment_id", failed.PaymentID).Str("order_ref", receipt.Reference()).Msg("parked order relayed")
	}
	c.commit(ctx, log, m)
}

func (c *Consumer) commit(ctx context.Context, log zerolog.Logger, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Error().Err(err).Msg("failed to commit dead letter")
	}
}
