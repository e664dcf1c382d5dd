package memory

import (
	"context"
	"sync"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/ports"
)

// LocationBroker fans partner broadcasts out to in-process subscribers.
// It serves as both ports.PartnerLocationSink and ports.PartnerLocationFeed
// when no message broker is configured.
type LocationBroker struct {
	mu     sync.Mutex
	subs   map[kernel.UUID]map[uint64]func(kernel.Coordinate)
	last   map[kernel.UUID]kernel.Coordinate
	nextID uint64
}

// NewLocationBroker creates an empty broker.
func NewLocationBroker() *LocationBroker {
	return &LocationBroker{
		subs: make(map[kernel.UUID]map[uint64]func(kernel.Coordinate)),
		last: make(map[kernel.UUID]kernel.Coordinate),
	}
}

// Broadcast delivers coordinate to every subscriber of partnerID.
func (b *LocationBroker) Broadcast(_ context.Context, partnerID kernel.UUID, coordinate kernel.Coordinate) error {
	if err := partnerID.Validate(); err != nil {
		return err
	}
	if err := coordinate.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	b.last[partnerID] = coordinate
	callbacks := make([]func(kernel.Coordinate), 0, len(b.subs[partnerID]))
	for _, cb := range b.subs[partnerID] {
		callbacks = append(callbacks, cb)
	}
	b.mu.Unlock()

	for _, cb := range callbacks {
		cb(coordinate)
	}
	return nil
}

// Subscribe registers onUpdate for partnerID. The last known position, if any,
// is delivered immediately so late subscribers do not wait for the next fix.
func (b *LocationBroker) Subscribe(
	_ context.Context,
	partnerID kernel.UUID,
	onUpdate func(kernel.Coordinate),
) (ports.Unsubscribe, error) {
	if err := partnerID.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[partnerID] == nil {
		b.subs[partnerID] = make(map[uint64]func(kernel.Coordinate))
	}
	b.subs[partnerID][id] = onUpdate
	last, hasLast := b.last[partnerID]
	b.mu.Unlock()

	if hasLast {
		onUpdate(last)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[partnerID], id)
			if len(b.subs[partnerID]) == 0 {
				delete(b.subs, partnerID)
			}
			b.mu.Unlock()
		})
	}, nil
}

// Subscribers returns the number of live subscriptions for partnerID.
func (b *LocationBroker) Subscribers(partnerID kernel.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[partnerID])
}
