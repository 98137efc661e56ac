package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/segmentio/kafka-go"
)

const DeadLetterTopic = "fulfillment-relay-failed"

// FailedRelay is everything needed to replay an order by hand.
type FailedRelay struct {
	PaymentID string                   `json:"payment_id"`
	Trigger   string                   `json:"trigger"`
	Error     string                   `json:"error"`
	Order     *domain.FulfillmentOrder `json:"order"`
	FailedAt  time.Time                `json:"failed_at"`
}

type DeadLetter interface {
	Publish(ctx context.Context, failed FailedRelay) error
	Close() error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaDeadLetter struct {
	writer MessageWriter
}

func NewKafkaDeadLetter(brokers ...string) *KafkaDeadLetter {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  DeadLetterTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaDeadLetter{writer: w}
}

func NewDeadLetterWithWriter(w MessageWriter) *KafkaDeadLetter {
	return &KafkaDeadLetter{writer: w}
}

func (p *KafkaDeadLetter) Publish(ctx context.Context, failed FailedRelay) error {
	payload, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(failed.PaymentID), // payment id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("fulfillment.relay_failed")},
			{Key: "trigger", Value: []byte(failed.Trigger)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}

func (p *KafkaDeadLetter) Close() error {
	return p.writer.Close()
}

// Nop drops records; used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, FailedRelay) error { return nil }
func (Nop) Close() error                               { return nil }
