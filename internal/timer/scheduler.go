// Package timer holds the per-session countdowns: the one-shot auto quiz
// trigger and the pomodoro study clock.
package timer

import (
	"sync"
	"time"
)

// Scheduler runs at most one single-shot task per key, and arms each key at
// most once over its lifetime. A disarmed or fired key stays spent.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	armed   map[string]struct{}
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		armed:  make(map[string]struct{}),
	}
}

// Arm schedules fn to run after d for key. It reports false, leaving
// nothing scheduled, when key was armed before or the scheduler is stopped.
func (s *Scheduler) Arm(key string, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if _, seen := s.armed[key]; seen {
		return false
	}
	s.armed[key] = struct{}{}

	s.timers[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, pending := s.timers[key]
		delete(s.timers, key)
		s.mu.Unlock()

		if pending {
			fn()
		}
	})
	return true
}

// Disarm cancels the pending task for key. It reports whether a task was
// actually cancelled before firing.
func (s *Scheduler) Disarm(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	t.Stop()
	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Armed reports whether key was ever armed.
func (s *Scheduler) Armed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[key]
	return ok
}

// Stop cancels every pending task. Later Arm calls are refused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
