package timer

import (
	"sync"

	"tutor-backend/internal/model"
)

// PomodoroManager keeps one Pomodoro per session, created on first use.
type PomodoroManager struct {
	mu     sync.Mutex
	opts   PomodoroOptions
	clocks map[string]*Pomodoro
	closed bool
}

func NewPomodoroManager(opts PomodoroOptions) *PomodoroManager {
	return &PomodoroManager{
		opts:   opts.withDefaults(),
		clocks: make(map[string]*Pomodoro),
	}
}

func (m *PomodoroManager) get(sessionID string) *Pomodoro {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.clocks[sessionID]; ok {
		return p
	}

	p := NewPomodoro(m.opts)
	if !m.closed {
		p.Start()
	}
	m.clocks[sessionID] = p
	return p
}

func (m *PomodoroManager) State(sessionID string) model.PomodoroState {
	return m.get(sessionID).Snapshot()
}

func (m *PomodoroManager) Toggle(sessionID string) model.PomodoroState {
	return m.get(sessionID).Toggle()
}

func (m *PomodoroManager) Reset(sessionID string) model.PomodoroState {
	return m.get(sessionID).Reset()
}

// Remove stops and forgets the clock of one session.
func (m *PomodoroManager) Remove(sessionID string) {
	m.mu.Lock()
	p, ok := m.clocks[sessionID]
	delete(m.clocks, sessionID)
	m.mu.Unlock()

	if ok {
		p.Close()
	}
}

// Close stops every clock.
func (m *PomodoroManager) Close() {
	m.mu.Lock()
	m.closed = true
	clocks := make([]*Pomodoro, 0, len(m.clocks))
	for _, p := range m.clocks {
		clocks = append(clocks, p)
	}
	m.mu.Unlock()

	for _, p := range clocks {
		p.Close()
	}
}
