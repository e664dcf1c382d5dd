package tracker

import (
	"context"
	"sync"

	"ordertrack/internal/core/domain/model/kernel"
)

type registryEntry struct {
	ready chan struct{}
	rec   *Reconciler
	err   error
	refs  int
}

// Registry keeps at most one running Reconciler per order and shares it
// between every open view of that order. A reconciler lives while it has
// holders; the last release closes it.
type Registry struct {
	cfg  Config
	deps Dependencies

	mu      sync.Mutex
	entries map[kernel.UUID]*registryEntry
	closed  bool
}

// NewRegistry creates an empty registry whose reconcilers share cfg and deps.
func NewRegistry(cfg Config, deps Dependencies) *Registry {
	return &Registry{
		cfg:     cfg,
		deps:    deps,
		entries: make(map[kernel.UUID]*registryEntry),
	}
}

// Acquire returns the reconciler of orderID, starting it on first use.
// Every successful call must be paired with exactly one call of release.
func (r *Registry) Acquire(ctx context.Context, orderID kernel.UUID) (*Reconciler, func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrRegistryClosed
	}
	entry, found := r.entries[orderID]
	if !found {
		entry = &registryEntry{ready: make(chan struct{})}
		r.entries[orderID] = entry
	}
	entry.refs++
	r.mu.Unlock()

	if !found {
		rec := NewReconciler(orderID, r.cfg, r.deps)
		entry.err = rec.Start(ctx)
		if entry.err == nil {
			entry.rec = rec
		} else {
			rec.Close()
			r.mu.Lock()
			if r.entries[orderID] == entry {
				delete(r.entries, orderID)
			}
			r.mu.Unlock()
		}
		close(entry.ready)
	} else {
		select {
		case <-entry.ready:
		case <-ctx.Done():
			r.release(orderID, entry)
			return nil, nil, ctx.Err()
		}
	}

	if entry.err != nil {
		err := entry.err
		r.release(orderID, entry)
		return nil, nil, err
	}

	var once sync.Once
	return entry.rec, func() { once.Do(func() { r.release(orderID, entry) }) }, nil
}

// Peek returns the running reconciler of orderID without taking a hold.
func (r *Registry) Peek(orderID kernel.UUID) (*Reconciler, bool) {
	r.mu.Lock()
	entry, ok := r.entries[orderID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	select {
	case <-entry.ready:
		return entry.rec, entry.rec != nil
	default:
		return nil, false
	}
}

// Len returns the number of tracked orders.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops every reconciler. Later Acquire calls fail with ErrRegistryClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[kernel.UUID]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		<-entry.ready
		if entry.rec != nil {
			entry.rec.Close()
		}
	}
}

func (r *Registry) release(orderID kernel.UUID, entry *registryEntry) {
	r.mu.Lock()
	entry.refs--
	last := entry.refs <= 0
	if last && r.entries[orderID] == entry {
		delete(r.entries, orderID)
	}
	r.mu.Unlock()

	if last && entry.rec != nil {
		entry.rec.Close()
	}
}
