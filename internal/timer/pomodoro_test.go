package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPomodoro_StartsPausedAtStudyDuration(t *testing.T) {
	p := NewPomodoro(PomodoroOptions{})

	state := p.Snapshot()
	assert.Equal(t, "study", state.Phase)
	assert.Equal(t, int64(25*60), state.Remaining)
	assert.Equal(t, "25:00", state.Display)
	assert.False(t, state.Running)
	assert.False(t, state.Expired)
}

func TestPomodoro_TickOnlyWhileRunning(t *testing.T) {
	p := NewPomodoro(PomodoroOptions{StudyDuration: 10 * time.Second})

	p.tick()
	assert.Equal(t, int64(10), p.Snapshot().Remaining)

	assert.True(t, p.Toggle().Running)
	p.tick()
	p.tick()
	assert.Equal(t, "00:08", p.Snapshot().Display)

	assert.False(t, p.Toggle().Running)
	p.tick()
	assert.Equal(t, int64(8), p.Snapshot().Remaining)
}

func TestPomodoro_ClampsAtZero(t *testing.T) {
	p := NewPomodoro(PomodoroOptions{StudyDuration: 2 * time.Second})
	p.Toggle()

	for i := 0; i < 5; i++ {
		p.tick()
	}

	state := p.Snapshot()
	assert.Equal(t, int64(0), state.Remaining)
	assert.True(t, state.Expired)
	assert.False(t, state.Running)
	assert.Equal(t, "study", state.Phase)

	// expired clocks do not resume
	assert.False(t, p.Toggle().Running)

	state = p.Reset()
	assert.Equal(t, int64(2), state.Remaining)
	assert.False(t, state.Running)
}

func TestPomodoro_AutoBreak(t *testing.T) {
	p := NewPomodoro(PomodoroOptions{
		StudyDuration: 2 * time.Second,
		BreakDuration: 3 * time.Second,
		AutoBreak:     true,
	})
	p.Toggle()

	p.tick()
	p.tick()
	state := p.Snapshot()
	assert.Equal(t, "break", state.Phase)
	assert.Equal(t, int64(3), state.Remaining)
	assert.True(t, state.Running)

	p.tick()
	p.tick()
	p.tick()
	state = p.Snapshot()
	assert.Equal(t, "study", state.Phase)
	assert.Equal(t, int64(2), state.Remaining)
	assert.False(t, state.Running)
}

func TestPomodoro_RunsOnTicker(t *testing.T) {
	p := NewPomodoro(PomodoroOptions{StudyDuration: 3 * time.Second, TickInterval: 5 * time.Millisecond})
	p.Start()
	defer p.Close()

	p.Toggle()
	assert.Eventually(t, func() bool { return p.Snapshot().Expired }, time.Second, 5*time.Millisecond)
}

func TestPomodoro_CloseWithoutStart(t *testing.T) {
	p := NewPomodoro(PomodoroOptions{})
	p.Close()
	p.Close()
}

func TestPomodoroManager_PerSessionClocks(t *testing.T) {
	m := NewPomodoroManager(PomodoroOptions{StudyDuration: time.Hour, TickInterval: time.Hour})
	defer m.Close()

	require.True(t, m.Toggle("a").Running)
	assert.False(t, m.State("b").Running)
	assert.True(t, m.State("a").Running)

	assert.False(t, m.Reset("a").Running)
	assert.Equal(t, "60:00", m.State("a").Display)

	m.Remove("a")
	assert.False(t, m.State("a").Running)
}
