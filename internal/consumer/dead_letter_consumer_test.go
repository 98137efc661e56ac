package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/fulfillment"
	"github.com/fjod/go_merch/internal/publisher"
	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readerMock struct {
	mu        sync.Mutex
	messages  []kafkaGo.Message
	committed []int64
	fetchErr  error
}

func (r *readerMock) FetchMessage(ctx context.Context) (kafkaGo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return kafkaGo.Message{}, r.fetchErr
	}
	if len(r.messages) == 0 {
		return kafkaGo.Message{}, context.Canceled
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *readerMock) CommitMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *readerMock) Close() error { return nil }

type submitterMock struct {
	orders   []*domain.FulfillmentOrder
	triggers []string
	err      error
}

func (s *submitterMock) Submit(_ context.Context, o *domain.FulfillmentOrder, trigger string) (*domain.OrderReceipt, error) {
	s.orders = append(s.orders, o)
	s.triggers = append(s.triggers, trigger)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.OrderReceipt{OrderNumber: "ORD-9"}, nil
}

func deadLetter(t *testing.T, offset int64, failedAt time.Time) kafkaGo.Message {
	t.Helper()
	value, err := json.Marshal(publisher.FailedRelay{
		PaymentID: "pi_1",
		Trigger:   fulfillment.TriggerWebhook,
		Error:     "fulfillment backend returned 500",
		Order:     &domain.FulfillmentOrder{PaymentID: "pi_1", Products: []domain.OrderProduct{{ProductID: "mug", Quantity: 1}}},
		FailedAt:  failedAt,
	})
	require.NoError(t, err)
	return kafkaGo.Message{Offset: offset, Key: []byte("pi_1"), Value: value}
}

func TestProcessMessage_ReplaysAndCommits(t *testing.T) {
	reader := &readerMock{messages: []kafkaGo.Message{deadLetter(t, 7, time.Now().Add(-time.Hour))}}
	relay := &submitterMock{}
	c := NewConsumerWithReader(reader, relay, time.Minute, zerolog.Nop())

	c.processMessage(context.Background())

	require.Len(t, relay.orders, 1)
	assert.Equal(t, "pi_1", relay.orders[0].PaymentID)
	assert.Equal(t, []string{fulfillment.TriggerReplay}, relay.triggers)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestProcessMessage_FailureStillCommits(t *testing.T) {
	var buf bytes.Buffer
	reader := &readerMock{messages: []kafkaGo.Message{deadLetter(t, 3, time.Now().Add(-time.Hour))}}
	relay := &submitterMock{err: errors.New("backend down")}
	c := NewConsumerWithReader(reader, relay, time.Minute, zerolog.New(&buf))

	c.processMessage(context.Background())

	assert.Equal(t, []int64{3}, reader.committed)
	assert.Contains(t, buf.String(), "replay failed, order parked again")
}

func TestProcessMessage_DuplicateIsDropped(t *testing.T) {
	reader := &readerMock{messages: []kafkaGo.Message{deadLetter(t, 4, time.Now().Add(-time.Hour))}}
	relay := &submitterMock{err: fulfillment.ErrDuplicateOrder}
	c := NewConsumerWithReader(reader, relay, time.Minute, zerolog.Nop())

	c.processMessage(context.Background())

	assert.Equal(t, []int64{4}, reader.committed)
}

func TestProcessMessage_UnreadableIsSkipped(t *testing.T) {
	reader := &readerMock{messages: []kafkaGo.Message{{Offset: 1, Value: []byte("{not json")}, {Offset: 2, Value: []byte(`{"payment_id":"pi_x"}`)}}}
	relay := &submitterMock{}
	c := NewConsumerWithReader(reader, relay, 0, zerolog.Nop())

	c.processMessage(context.Background())
	c.processMessage(context.Background())

	assert.Empty(t, relay.orders)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestProcessMessage_HoldsBackFreshRecords(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reader := &readerMock{messages: []kafkaGo.Message{deadLetter(t, 5, now)}}
	relay := &submitterMock{}
	c := NewConsumerWithReader(reader, relay, time.Hour, zerolog.Nop())
	c.now = func() time.Time { return now }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c.processMessage(ctx)

	assert.Empty(t, relay.orders, "record younger than the delay must wait")
	assert.Empty(t, reader.committed)
}

func TestRun_StopsOnCancel(t *testing.T) {
	reader := &readerMock{}
	c := NewConsumerWithReader(reader, &submitterMock{}, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
