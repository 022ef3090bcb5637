package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/thumbnail-service/internal/worker/domain"
)

type fakeQueue struct {
	deliveries chan amqp.Delivery
	closes     chan *amqp.Error

	declareErr error
	qosErr     error
	consumeErr error

	declared bool
	prefetch int
	tag      string
}

func newFakeQueue(buffer int) *fakeQueue {
	return &fakeQueue{deliveries: make(chan amqp.Delivery, buffer)}
}

func (q *fakeQueue) DeclareQueue() error {
	q.declared = true
	return q.declareErr
}

func (q *fakeQueue) Qos(prefetchCount int) error {
	q.prefetch = prefetchCount
	return q.qosErr
}

func (q *fakeQueue) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	q.tag = consumerTag
	if q.consumeErr != nil {
		return nil, q.consumeErr
	}
	return q.deliveries, nil
}

func (q *fakeQueue) NotifyClose() <-chan *amqp.Error {
	return q.closes
}

type recordingProcessor struct {
	bodies []string
	failOn string
	err    error
	ctxErr error
}

func (p *recordingProcessor) Process(ctx context.Context, delivery amqp.Delivery) error {
	p.bodies = append(p.bodies, string(delivery.Body))
	p.ctxErr = ctx.Err()
	if p.failOn != "" && string(delivery.Body) == p.failOn {
		return p.err
	}
	return nil
}

func staticQueue(q *fakeQueue) func() (QueueChannel, error) {
	return func() (QueueChannel, error) { return q, nil }
}

func TestConsumer_ProcessesInOrderUntilChannelCloses(t *testing.T) {
	q := newFakeQueue(3)
	q.deliveries <- amqp.Delivery{DeliveryTag: 1, Body: []byte("1")}
	q.deliveries <- amqp.Delivery{DeliveryTag: 2, Body: []byte("2")}
	q.deliveries <- amqp.Delivery{DeliveryTag: 3, Body: []byte("3")}
	close(q.deliveries)

	processor := &recordingProcessor{}
	c := NewConsumer(staticQueue(q), processor, "worker-1", 1, discardLogger())

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeliveriesClosed)

	assert.Equal(t, []string{"1", "2", "3"}, processor.bodies)
	assert.True(t, q.declared)
	assert.Equal(t, 1, q.prefetch)
	assert.Equal(t, "worker-1", q.tag)
}

func TestConsumer_StopsOnProcessingError(t *testing.T) {
	q := newFakeQueue(3)
	q.deliveries <- amqp.Delivery{DeliveryTag: 1, Body: []byte("1")}
	q.deliveries <- amqp.Delivery{DeliveryTag: 2, Body: []byte("2")}
	q.deliveries <- amqp.Delivery{DeliveryTag: 3, Body: []byte("3")}

	boom := errors.New("redis down")
	processor := &recordingProcessor{failOn: "2", err: boom}
	c := NewConsumer(staticQueue(q), processor, "worker-1", 1, discardLogger())

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"1", "2"}, processor.bodies)
}

func TestConsumer_StopsOnConnectionLoss(t *testing.T) {
	q := newFakeQueue(0)
	q.closes = make(chan *amqp.Error, 1)
	q.closes <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED - broker forced connection closure"}

	processor := &recordingProcessor{}
	c := NewConsumer(staticQueue(q), processor, "worker-1", 1, discardLogger())

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQueueConnectionLost)
	assert.Contains(t, err.Error(), "CONNECTION_FORCED")
	assert.Empty(t, processor.bodies)
}

func TestConsumer_StopsOnChannelClose(t *testing.T) {
	q := newFakeQueue(0)
	q.closes = make(chan *amqp.Error)
	close(q.closes)

	c := NewConsumer(staticQueue(q), &recordingProcessor{}, "worker-1", 1, discardLogger())

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeliveriesClosed)
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	q := newFakeQueue(0)
	c := NewConsumer(staticQueue(q), &recordingProcessor{}, "worker-1", 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestConsumer_ProcessingIgnoresCancellation(t *testing.T) {
	q := newFakeQueue(1)
	q.deliveries <- amqp.Delivery{DeliveryTag: 1, Body: []byte("1")}
	close(q.deliveries)

	processor := &recordingProcessor{}
	c := NewConsumer(staticQueue(q), processor, "worker-1", 1, discardLogger())

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeliveriesClosed)
	require.Len(t, processor.bodies, 1)
	assert.NoError(t, processor.ctxErr)
}

func TestConsumer_SetupFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		queue func() (QueueChannel, error)
	}{
		{
			name:  "connection",
			queue: func() (QueueChannel, error) { return nil, boom },
		},
		{
			name:  "declare",
			queue: staticQueue(&fakeQueue{declareErr: boom}),
		},
		{
			name:  "qos",
			queue: staticQueue(&fakeQueue{qosErr: boom}),
		},
		{
			name:  "consume",
			queue: staticQueue(&fakeQueue{consumeErr: boom}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &recordingProcessor{}
			c := NewConsumer(tt.queue, processor, "worker-1", 1, discardLogger())

			err := c.Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, processor.bodies)
		})
	}
}
