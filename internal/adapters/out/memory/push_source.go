package memory

import (
	"errors"
	"sync"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/ports"
)

// ErrSourceClosed is returned by Watch after Close.
var ErrSourceClosed = errors.New("location source is closed")

// PushLocationSource is a ports.LocationSource fed by the caller, typically a
// websocket connection relaying device fixes.
type PushLocationSource struct {
	mu       sync.Mutex
	watchers map[ports.SubscriptionHandle]watcher
	next     ports.SubscriptionHandle
	closed   bool
}

type watcher struct {
	onFix   func(kernel.LocationFix)
	onError func(error)
}

// NewPushLocationSource creates a source with no watchers.
func NewPushLocationSource() *PushLocationSource {
	return &PushLocationSource{watchers: make(map[ports.SubscriptionHandle]watcher)}
}

// Watch registers the callbacks; onError may be nil.
func (s *PushLocationSource) Watch(
	onFix func(kernel.LocationFix),
	onError func(error),
) (ports.SubscriptionHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSourceClosed
	}
	s.next++
	s.watchers[s.next] = watcher{onFix: onFix, onError: onError}
	return s.next, nil
}

// Stop removes a watcher. Unknown handles are ignored.
func (s *PushLocationSource) Stop(handle ports.SubscriptionHandle) {
	s.mu.Lock()
	delete(s.watchers, handle)
	s.mu.Unlock()
}

// Push delivers fix to all watchers.
func (s *PushLocationSource) Push(fix kernel.LocationFix) {
	for _, w := range s.snapshot() {
		w.onFix(fix)
	}
}

// Fail reports a transport error to all watchers.
func (s *PushLocationSource) Fail(err error) {
	for _, w := range s.snapshot() {
		if w.onError != nil {
			w.onError(err)
		}
	}
}

// Watchers returns the number of active watches.
func (s *PushLocationSource) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Close drops all watchers and refuses new ones.
func (s *PushLocationSource) Close() {
	s.mu.Lock()
	s.closed = true
	s.watchers = make(map[ports.SubscriptionHandle]watcher)
	s.mu.Unlock()
}

func (s *PushLocationSource) snapshot() []watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		out = append(out, w)
	}
	return out
}
