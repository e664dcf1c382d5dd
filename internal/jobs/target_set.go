package jobs

import (
	"sync"

	"ordertrack/internal/core/application/tracker"
	"ordertrack/internal/core/domain/model/kernel"
)

// targetSet is the set of orders a job drives on every run.
type targetSet struct {
	mu      sync.Mutex
	targets map[kernel.UUID]tracker.Schedulable
}

func newTargetSet() *targetSet {
	return &targetSet{targets: make(map[kernel.UUID]tracker.Schedulable)}
}

func (s *targetSet) add(target tracker.Schedulable) {
	s.mu.Lock()
	s.targets[target.OrderID()] = target
	s.mu.Unlock()
}

// remove drops target only if it is still the registered one for its order.
func (s *targetSet) remove(target tracker.Schedulable) {
	s.mu.Lock()
	if current, ok := s.targets[target.OrderID()]; ok && current == target {
		delete(s.targets, target.OrderID())
	}
	s.mu.Unlock()
}

func (s *targetSet) snapshot() []tracker.Schedulable {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tracker.Schedulable, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t)
	}
	return out
}

func (s *targetSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets)
}
