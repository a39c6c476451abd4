package timer

import (
	"fmt"
	"sync"
	"time"

	"tutor-backend/internal/model"
)

type Phase string

const (
	PhaseStudy Phase = "study"
	PhaseBreak Phase = "break"
)

// PomodoroOptions configure a Pomodoro. Every tick takes one second off the
// clock; TickInterval is how often a tick happens in real time.
type PomodoroOptions struct {
	StudyDuration time.Duration
	BreakDuration time.Duration
	AutoBreak     bool
	TickInterval  time.Duration
}

func (o PomodoroOptions) withDefaults() PomodoroOptions {
	if o.StudyDuration <= 0 {
		o.StudyDuration = 25 * time.Minute
	}
	if o.BreakDuration <= 0 {
		o.BreakDuration = 5 * time.Minute
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	return o
}

// Pomodoro is a pausable countdown. It starts paused at the full study
// duration and clamps at zero. With AutoBreak, the end of a study phase
// starts a running break and the end of a break goes back to a paused study
// phase.
type Pomodoro struct {
	mu        sync.Mutex
	opts      PomodoroOptions
	phase     Phase
	remaining time.Duration
	running   bool

	started  bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewPomodoro(opts PomodoroOptions) *Pomodoro {
	opts = opts.withDefaults()
	return &Pomodoro{
		opts:      opts,
		phase:     PhaseStudy,
		remaining: opts.StudyDuration,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the ticking goroutine once. Ticks while paused are ignored.
func (p *Pomodoro) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true
	go p.run()
}

func (p *Pomodoro) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stop:
			return
		}
	}
}

func (p *Pomodoro) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.remaining -= time.Second
	if p.remaining > 0 {
		return
	}
	p.remaining = 0

	if !p.opts.AutoBreak {
		p.running = false
		return
	}

	switch p.phase {
	case PhaseStudy:
		p.phase = PhaseBreak
		p.remaining = p.opts.BreakDuration
		p.running = true
	case PhaseBreak:
		p.phase = PhaseStudy
		p.remaining = p.opts.StudyDuration
		p.running = false
	}
}

// Toggle pauses a running clock or resumes a paused one. An expired clock
// stays paused until Reset.
func (p *Pomodoro) Toggle() model.PomodoroState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.running = false
	} else if p.remaining > 0 {
		p.running = true
	}
	return p.snapshotLocked()
}

// Reset pauses the clock at the full study duration.
func (p *Pomodoro) Reset() model.PomodoroState {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.phase = PhaseStudy
	p.remaining = p.opts.StudyDuration
	p.running = false
	return p.snapshotLocked()
}

func (p *Pomodoro) Snapshot() model.PomodoroState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pomodoro) snapshotLocked() model.PomodoroState {
	seconds := int64(p.remaining / time.Second)
	return model.PomodoroState{
		Phase:     string(p.phase),
		Remaining: seconds,
		Display:   fmt.Sprintf("%02d:%02d", seconds/60, seconds%60),
		Running:   p.running,
		Expired:   p.remaining == 0,
	}
}

// Close stops the ticking goroutine and waits for it to exit.
func (p *Pomodoro) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})

	p.mu.Lock()
	started := p.started
	p.started = true // a later Start must not spawn a goroutine
	p.mu.Unlock()

	if started {
		<-p.done
	}
}
