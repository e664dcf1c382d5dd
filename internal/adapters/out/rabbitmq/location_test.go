package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ordertrack/internal/adapters/out/rabbitmq"
	"ordertrack/internal/core/domain/model/kernel"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel routes published messages to the single consumer whose queue
// is bound to the routing key, the way a topic exchange with exact keys does.
type fakeChannel struct {
	mu         sync.Mutex
	exchanges  map[string]string
	bindings   map[string]bool
	deliveries chan amqp.Delivery
	published  []amqp.Publishing
	publishErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		exchanges:  make(map[string]string),
		bindings:   make(map[string]bool),
		deliveries: make(chan amqp.Delivery, 16),
	}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges[name] = kind
	return nil
}

func (c *fakeChannel) QueueDeclare(_ string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: "amq.gen-test"}, nil
}

func (c *fakeChannel) QueueBind(_, key, _ string, _ bool, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[key] = true
	return nil
}

func (c *fakeChannel) QueueUnbind(_, key, _ string, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings, key)
	return nil
}

func (c *fakeChannel) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	if c.bindings[key] {
		c.deliveries <- amqp.Delivery{RoutingKey: key, Body: msg.Body, ContentType: msg.ContentType}
	}
	return nil
}

func (c *fakeChannel) Close() error {
	close(c.deliveries)
	return nil
}

func (c *fakeChannel) isBound(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindings[key]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func coord(t *testing.T, lat, lng float64) kernel.Coordinate {
	t.Helper()
	c, err := kernel.NewCoordinate(lat, lng)
	require.NoError(t, err)
	return c
}

func receive(t *testing.T, ch <-chan kernel.Coordinate) kernel.Coordinate {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no position delivered")
		return kernel.Coordinate{}
	}
}

func TestLocationSink_Broadcast(t *testing.T) {
	t.Run("should publish json keyed by partner", func(t *testing.T) {
		ch := newFakeChannel()
		at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		sink, err := rabbitmq.NewLocationSink(ch, rabbitmq.DefaultExchange, func() time.Time { return at })
		require.NoError(t, err)
		assert.Equal(t, amqp.ExchangeTopic, ch.exchanges[rabbitmq.DefaultExchange])

		partnerID := kernel.NewUUID()
		require.NoError(t, sink.Broadcast(t.Context(), partnerID, coord(t, 12.97, 77.59)))

		require.Len(t, ch.published, 1)
		msg := ch.published[0]
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, amqp.Transient, msg.DeliveryMode)

		var body map[string]any
		require.NoError(t, json.Unmarshal(msg.Body, &body))
		assert.Equal(t, partnerID.String(), body["partner_id"])
		assert.InDelta(t, 12.97, body["lat"], 1e-9)
		assert.InDelta(t, 77.59, body["lng"], 1e-9)
	})

	t.Run("should reject an invalid partner without publishing", func(t *testing.T) {
		ch := newFakeChannel()
		sink, err := rabbitmq.NewLocationSink(ch, rabbitmq.DefaultExchange, nil)
		require.NoError(t, err)

		require.Error(t, sink.Broadcast(t.Context(), kernel.UUID{}, coord(t, 1, 1)))
		assert.Empty(t, ch.published)
	})

	t.Run("should return publish errors", func(t *testing.T) {
		ch := newFakeChannel()
		ch.publishErr = errors.New("channel closed")
		sink, err := rabbitmq.NewLocationSink(ch, rabbitmq.DefaultExchange, nil)
		require.NoError(t, err)

		require.Error(t, sink.Broadcast(t.Context(), kernel.NewUUID(), coord(t, 1, 1)))
	})
}

func TestLocationFeed_Subscribe(t *testing.T) {
	t.Run("should deliver positions of the subscribed partner", func(t *testing.T) {
		ch := newFakeChannel()
		feed, err := rabbitmq.NewLocationFeed(t.Context(), ch, rabbitmq.DefaultExchange, discardLogger())
		require.NoError(t, err)
		sink, err := rabbitmq.NewLocationSink(ch, rabbitmq.DefaultExchange, nil)
		require.NoError(t, err)

		partnerID := kernel.NewUUID()
		got := make(chan kernel.Coordinate, 4)
		unsubscribe, err := feed.Subscribe(t.Context(), partnerID, func(c kernel.Coordinate) { got <- c })
		require.NoError(t, err)
		defer unsubscribe()
		assert.True(t, ch.isBound(partnerID.String()))

		want := coord(t, 12.95, 77.61)
		require.NoError(t, sink.Broadcast(t.Context(), partnerID, want))
		assert.True(t, receive(t, got).IsEqual(want))
	})

	t.Run("should keep the binding until the last subscriber leaves", func(t *testing.T) {
		ch := newFakeChannel()
		feed, err := rabbitmq.NewLocationFeed(t.Context(), ch, rabbitmq.DefaultExchange, discardLogger())
		require.NoError(t, err)

		partnerID := kernel.NewUUID()
		first, err := feed.Subscribe(t.Context(), partnerID, func(kernel.Coordinate) {})
		require.NoError(t, err)
		second, err := feed.Subscribe(t.Context(), partnerID, func(kernel.Coordinate) {})
		require.NoError(t, err)

		first()
		first()
		assert.True(t, ch.isBound(partnerID.String()))

		second()
		assert.False(t, ch.isBound(partnerID.String()))
	})

	t.Run("should drop messages whose body names another partner", func(t *testing.T) {
		ch := newFakeChannel()
		feed, err := rabbitmq.NewLocationFeed(t.Context(), ch, rabbitmq.DefaultExchange, discardLogger())
		require.NoError(t, err)

		partnerID := kernel.NewUUID()
		got := make(chan kernel.Coordinate, 4)
		_, err = feed.Subscribe(t.Context(), partnerID, func(c kernel.Coordinate) { got <- c })
		require.NoError(t, err)

		spoofed, err := json.Marshal(map[string]any{"partner_id": kernel.NewUUID().String(), "lat": 1.0, "lng": 1.0})
		require.NoError(t, err)
		ch.deliveries <- amqp.Delivery{RoutingKey: partnerID.String(), Body: spoofed}
		ch.deliveries <- amqp.Delivery{RoutingKey: partnerID.String(), Body: []byte("{")}

		want := coord(t, 2, 2)
		valid, err := json.Marshal(map[string]any{"partner_id": partnerID.String(), "lat": 2.0, "lng": 2.0})
		require.NoError(t, err)
		ch.deliveries <- amqp.Delivery{RoutingKey: partnerID.String(), Body: valid}

		assert.True(t, receive(t, got).IsEqual(want))
		assert.Empty(t, got)
	})

	t.Run("should stop and refuse subscriptions once the channel closes", func(t *testing.T) {
		ch := newFakeChannel()
		feed, err := rabbitmq.NewLocationFeed(t.Context(), ch, rabbitmq.DefaultExchange, discardLogger())
		require.NoError(t, err)

		require.NoError(t, ch.Close())
		select {
		case <-feed.Done():
		case <-time.After(2 * time.Second):
			require.FailNow(t, "consumer did not stop")
		}

		_, err = feed.Subscribe(t.Context(), kernel.NewUUID(), func(kernel.Coordinate) {})
		require.ErrorIs(t, err, rabbitmq.ErrChannelClosed)
	})
}
