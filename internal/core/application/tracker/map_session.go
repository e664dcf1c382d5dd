package tracker

import (
	"log/slog"
	"sort"
	"sync"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/domain/services"
	"ordertrack/internal/core/ports"
)

// MapSession is one open map view of an order. It holds a registry reference
// to the order's reconciler, the view's camera latch and, when a location
// source was given, the device watch of the viewer. Each session is its own
// reconciler device, so its first fix gets the first-fix exception even when
// another view of the same role already reports fixes.
type MapSession struct {
	viewer  order.Actor
	rec     *Reconciler
	device  Device
	release func()
	latch   *services.CameraLatch
	builder services.SceneBuilder
	logger  *slog.Logger

	source    ports.LocationSource
	handle    ports.SubscriptionHandle
	watchOnce sync.Once
	stopRec   func()

	mu           sync.Mutex
	listeners    map[uint64]func(services.Scene)
	nextListener uint64
	closed       bool
}

func newMapSession(
	viewer order.Actor,
	rec *Reconciler,
	release func(),
	source ports.LocationSource,
	logger *slog.Logger,
) (*MapSession, error) {
	s := &MapSession{
		viewer:    viewer,
		rec:       rec,
		device:    rec.AttachDevice(),
		release:   release,
		latch:     services.NewCameraLatch(),
		builder:   services.NewSceneBuilder(),
		logger:    logger.With("component", "map_session", "order_id", rec.OrderID().String(), "role", viewer.Role.String()),
		listeners: make(map[uint64]func(services.Scene)),
	}
	s.stopRec = rec.OnChange(s.onReconcilerChange)

	if source != nil && viewer.Role != order.Merchant {
		handle, err := source.Watch(s.onFix, s.onSourceError)
		if err != nil {
			s.stopRec()
			rec.DetachDevice(s.device)
			return nil, err
		}
		s.source = source
		s.handle = handle
	}
	return s, nil
}

// Viewer returns the actor looking at this view.
func (s *MapSession) Viewer() order.Actor {
	return s.viewer
}

// OrderID returns the viewed order.
func (s *MapSession) OrderID() kernel.UUID {
	return s.rec.OrderID()
}

// Scene builds the current scene for the viewer.
func (s *MapSession) Scene() services.Scene {
	view := s.rec.Snapshot()
	return s.builder.Build(services.SceneInput{
		Order:     view.Order,
		Viewer:    s.viewer,
		Positions: view.Positions,
		Route:     view.Route,
		Following: s.latch.IsFollowing(),
	})
}

// OnSceneChanged calls cb with a fresh scene after every change of the order,
// its positions or the camera latch. The returned function removes cb.
func (s *MapSession) OnSceneChanged(cb func(services.Scene)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	s.nextListener++
	id := s.nextListener
	s.listeners[id] = cb

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Pan releases the follow camera.
func (s *MapSession) Pan() {
	if s.latch.IsFollowing() {
		s.latch.Pan()
		s.notify()
	}
}

// Recenter engages the follow camera again.
func (s *MapSession) Recenter() {
	s.latch.Recenter()
	s.notify()
}

// ReportFix feeds a fix of the viewer's device as if it came from the watched source.
func (s *MapSession) ReportFix(fix kernel.LocationFix) bool {
	if s.isClosed() {
		return false
	}
	switch s.viewer.Role { //nolint:exhaustive // merchants have no moving position
	case order.Partner:
		return s.rec.ReportOwnFix(s.device, s.viewer.ID, fix)
	case order.Customer:
		return s.rec.ApplyFix(s.device, order.Customer, fix)
	}
	return false
}

// Close stops the device watch and drops the registry reference. It is idempotent.
func (s *MapSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = make(map[uint64]func(services.Scene))
	s.mu.Unlock()

	s.stopWatch()
	s.stopRec()
	s.rec.DetachDevice(s.device)
	s.release()
}

// stopWatch ends the device watch once; a finished order needs no more fixes.
func (s *MapSession) stopWatch() {
	s.watchOnce.Do(func() {
		if s.source != nil {
			s.source.Stop(s.handle)
		}
	})
}

func (s *MapSession) onReconcilerChange() {
	if s.rec.IsTerminal() {
		s.stopWatch()
	}
	s.notify()
}

func (s *MapSession) onFix(fix kernel.LocationFix) {
	s.ReportFix(fix)
}

func (s *MapSession) onSourceError(err error) {
	s.logger.Warn("Location source failed", "error", err)
}

func (s *MapSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *MapSession) notify() {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	callbacks := make([]func(services.Scene), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, s.listeners[id])
	}
	s.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}
	scene := s.Scene()
	for _, cb := range callbacks {
		cb(scene)
	}
}
