// Package listen turns postgres LISTEN/NOTIFY into the order change and
// partner location feeds. One connection serves every subscriber.
package listen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ordertrack/internal/adapters/out/postgres/locationrepo"
	"ordertrack/internal/adapters/out/postgres/orderrepo"
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/ports"

	"github.com/lib/pq"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("listen hub is closed")

// Hub dispatches notifications from the order_changed and partner_location
// channels to in-process subscribers. After a reconnect every order subscriber
// is signalled once, since notifications sent while disconnected are lost.
type Hub struct {
	listener *pq.Listener
	logger   *slog.Logger

	mu       sync.Mutex
	orders   map[kernel.UUID]map[uint64]func()
	partners map[kernel.UUID]map[uint64]func(kernel.Coordinate)
	nextID   uint64
	closed   bool
}

// NewHub opens the listener connection and subscribes to both channels.
func NewHub(dsn string, logger *slog.Logger) (*Hub, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := newHub(logger)

	h.listener = pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, h.onEvent)
	for _, channel := range []string{orderrepo.ChannelOrderChanged, locationrepo.ChannelPartnerLocation} {
		if err := h.listener.Listen(channel); err != nil {
			_ = h.listener.Close()
			return nil, err
		}
	}
	return h, nil
}

func newHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger.With("component", "listen_hub"),
		orders:   make(map[kernel.UUID]map[uint64]func()),
		partners: make(map[kernel.UUID]map[uint64]func(kernel.Coordinate)),
	}
}

// Run dispatches notifications until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.InfoContext(ctx, "Listen hub started")
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Listen hub stopped")
			return
		case n, ok := <-h.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				h.logger.InfoContext(ctx, "Listener reconnected, signalling all orders")
				h.signalAllOrders()
				continue
			}
			h.dispatch(n.Channel, n.Extra)
		case <-ticker.C:
			go func() {
				if err := h.listener.Ping(); err != nil {
					h.logger.WarnContext(ctx, "Listener ping failed", "error", err)
				}
			}()
		}
	}
}

// Close drops all subscribers and closes the listener connection.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.orders = make(map[kernel.UUID]map[uint64]func())
	h.partners = make(map[kernel.UUID]map[uint64]func(kernel.Coordinate))
	h.mu.Unlock()

	if h.listener == nil {
		return nil
	}
	return h.listener.Close()
}

// Orders returns the order change feed served by the hub.
func (h *Hub) Orders() ports.OrderChangeFeed {
	return orderFeed{hub: h}
}

// Partners returns the partner location feed served by the hub.
func (h *Hub) Partners() ports.PartnerLocationFeed {
	return partnerFeed{hub: h}
}

func (h *Hub) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		h.logger.Info("Listener connected")
	case pq.ListenerEventDisconnected:
		h.logger.Warn("Listener disconnected", "error", err)
	case pq.ListenerEventReconnected:
		h.logger.Info("Listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		h.logger.Warn("Listener connection attempt failed", "error", err)
	}
}

func (h *Hub) dispatch(channel, payload string) {
	switch channel {
	case orderrepo.ChannelOrderChanged:
		id, err := kernel.UUIDFromString(payload)
		if err != nil {
			h.logger.Warn("Malformed order notification", "payload", payload, "error", err)
			return
		}
		for _, cb := range h.orderCallbacks(id) {
			cb()
		}
	case locationrepo.ChannelPartnerLocation:
		partnerID, c, err := locationrepo.DecodePayload(payload)
		if err != nil {
			h.logger.Warn("Malformed partner location notification", "payload", payload, "error", err)
			return
		}
		for _, cb := range h.partnerCallbacks(partnerID) {
			cb(c)
		}
	default:
		h.logger.Debug("Notification on unknown channel", "channel", channel)
	}
}

func (h *Hub) signalAllOrders() {
	h.mu.Lock()
	callbacks := make([]func(), 0, len(h.orders))
	for _, subs := range h.orders {
		for _, cb := range subs {
			callbacks = append(callbacks, cb)
		}
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func (h *Hub) orderCallbacks(id kernel.UUID) []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]func(), 0, len(h.orders[id]))
	for _, cb := range h.orders[id] {
		out = append(out, cb)
	}
	return out
}

func (h *Hub) partnerCallbacks(id kernel.UUID) []func(kernel.Coordinate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]func(kernel.Coordinate), 0, len(h.partners[id]))
	for _, cb := range h.partners[id] {
		out = append(out, cb)
	}
	return out
}

func (h *Hub) subscribeOrder(orderID kernel.UUID, onChange func()) (ports.Unsubscribe, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.nextID++
	id := h.nextID
	if h.orders[orderID] == nil {
		h.orders[orderID] = make(map[uint64]func())
	}
	h.orders[orderID][id] = onChange

	return h.unsubscriber(func() {
		delete(h.orders[orderID], id)
		if len(h.orders[orderID]) == 0 {
			delete(h.orders, orderID)
		}
	}), nil
}

func (h *Hub) subscribePartner(partnerID kernel.UUID, onUpdate func(kernel.Coordinate)) (ports.Unsubscribe, error) {
	if err := partnerID.Validate(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.nextID++
	id := h.nextID
	if h.partners[partnerID] == nil {
		h.partners[partnerID] = make(map[uint64]func(kernel.Coordinate))
	}
	h.partners[partnerID][id] = onUpdate

	return h.unsubscriber(func() {
		delete(h.partners[partnerID], id)
		if len(h.partners[partnerID]) == 0 {
			delete(h.partners, partnerID)
		}
	}), nil
}

func (h *Hub) unsubscriber(remove func()) ports.Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			remove()
			h.mu.Unlock()
		})
	}
}

type orderFeed struct{ hub *Hub }

func (f orderFeed) Subscribe(_ context.Context, orderID kernel.UUID, onChange func()) (ports.Unsubscribe, error) {
	return f.hub.subscribeOrder(orderID, onChange)
}

type partnerFeed struct{ hub *Hub }

func (f partnerFeed) Subscribe(
	_ context.Context,
	partnerID kernel.UUID,
	onUpdate func(kernel.Coordinate),
) (ports.Unsubscribe, error) {
	return f.hub.subscribePartner(partnerID, onUpdate)
}
