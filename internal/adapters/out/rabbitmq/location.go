package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultExchange is the topic exchange partner positions are published to.
	DefaultExchange = "partner.locations"

	publishTimeout = 5 * time.Second
	// positions older than the staleness window are useless to subscribers
	messageTTL = "30000"
)

type locationMessage struct {
	PartnerID string    `json:"partner_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	SentAt    time.Time `json:"sent_at"`
}

func declareExchange(ch Channel, exchange string) error {
	return ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// LocationSink publishes a partner's own position with the partner id as routing key.
type LocationSink struct {
	ch       Channel
	exchange string
	clock    func() time.Time
}

var _ ports.PartnerLocationSink = (*LocationSink)(nil)

// NewLocationSink declares the exchange and returns a sink publishing to it.
func NewLocationSink(ch Channel, exchange string, clock func() time.Time) (*LocationSink, error) {
	if clock == nil {
		clock = time.Now
	}
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	return &LocationSink{ch: ch, exchange: exchange, clock: clock}, nil
}

// Broadcast publishes coordinate for partnerID.
func (s *LocationSink) Broadcast(ctx context.Context, partnerID kernel.UUID, coordinate kernel.Coordinate) error {
	if err := errors.Join(partnerID.Validate(), coordinate.Validate()); err != nil {
		return err
	}

	now := s.clock()
	body, err := json.Marshal(locationMessage{
		PartnerID: partnerID.String(),
		Lat:       coordinate.Lat(),
		Lng:       coordinate.Lng(),
		SentAt:    now.UTC(),
	})
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return s.ch.PublishWithContext(publishCtx, s.exchange, partnerID.String(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Transient,
		Expiration:   messageTTL,
		Timestamp:    now,
	})
}

// LocationFeed consumes partner positions through one exclusive queue.
// The queue is bound to a partner's routing key while that partner has
// subscribers and unbound after the last one leaves.
type LocationFeed struct {
	ch       Channel
	exchange string
	queue    string
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[kernel.UUID]map[uint64]func(kernel.Coordinate)
	nextID uint64
	closed bool
	done   chan struct{}
}

var _ ports.PartnerLocationFeed = (*LocationFeed)(nil)

// NewLocationFeed declares the exchange and a server-named queue and starts
// consuming. Consumption stops when ctx is cancelled or the channel closes.
func NewLocationFeed(ctx context.Context, ch Channel, exchange string, logger *slog.Logger) (*LocationFeed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, err
	}

	f := &LocationFeed{
		ch:       ch,
		exchange: exchange,
		queue:    q.Name,
		logger:   logger.With("component", "rabbitmq_location_feed", "queue", q.Name),
		subs:     make(map[kernel.UUID]map[uint64]func(kernel.Coordinate)),
		done:     make(chan struct{}),
	}
	go f.consume(ctx, deliveries)
	return f, nil
}

// Subscribe registers onUpdate for positions of partnerID.
func (f *LocationFeed) Subscribe(
	_ context.Context,
	partnerID kernel.UUID,
	onUpdate func(kernel.Coordinate),
) (ports.Unsubscribe, error) {
	if err := partnerID.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrChannelClosed
	}

	if len(f.subs[partnerID]) == 0 {
		if err := f.ch.QueueBind(f.queue, partnerID.String(), f.exchange, false, nil); err != nil {
			return nil, err
		}
		f.subs[partnerID] = make(map[uint64]func(kernel.Coordinate))
	}
	f.nextID++
	id := f.nextID
	f.subs[partnerID][id] = onUpdate

	var once sync.Once
	return func() {
		once.Do(func() { f.unsubscribe(partnerID, id) })
	}, nil
}

// Done is closed when the consumer goroutine exits.
func (f *LocationFeed) Done() <-chan struct{} {
	return f.done
}

func (f *LocationFeed) unsubscribe(partnerID kernel.UUID, id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.subs[partnerID], id)
	if len(f.subs[partnerID]) > 0 {
		return
	}
	delete(f.subs, partnerID)
	if f.closed {
		return
	}
	if err := f.ch.QueueUnbind(f.queue, partnerID.String(), f.exchange, nil); err != nil {
		f.logger.Warn("Failed to unbind partner", "partner_id", partnerID.String(), "error", err)
	}
}

func (f *LocationFeed) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(f.done)
	defer func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				f.logger.Info("Delivery channel closed")
				return
			}
			f.dispatch(d)
		}
	}
}

func (f *LocationFeed) dispatch(d amqp.Delivery) {
	var msg locationMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		f.logger.Warn("Malformed location message", "error", err)
		return
	}
	partnerID, err := kernel.UUIDFromString(msg.PartnerID)
	if err != nil || partnerID.String() != d.RoutingKey {
		f.logger.Warn("Location message for unexpected partner", "routing_key", d.RoutingKey)
		return
	}
	coordinate, err := kernel.NewCoordinate(msg.Lat, msg.Lng)
	if err != nil {
		f.logger.Warn("Location message out of range", "partner_id", msg.PartnerID, "error", err)
		return
	}

	f.mu.Lock()
	callbacks := make([]func(kernel.Coordinate), 0, len(f.subs[partnerID]))
	for _, cb := range f.subs[partnerID] {
		callbacks = append(callbacks, cb)
	}
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(coordinate)
	}
}
