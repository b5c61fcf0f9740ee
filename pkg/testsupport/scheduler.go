package testsupport

import (
	"sync"
	"time"

	"github.com/goliatone/go-formadvisor/pkg/session"
)

// ManualScheduler is a session.Scheduler whose timers only fire when the test
// calls FireAll.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	sched   *ManualScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// AfterFunc implements session.Scheduler.
func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) session.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{sched: m, delay: d, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Armed returns the delays of timers that have neither fired nor stopped.
func (m *ManualScheduler) Armed() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Duration
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.delay)
		}
	}
	return out
}

// FireAll runs every armed timer and reports how many fired.
func (m *ManualScheduler) FireAll() int {
	m.mu.Lock()
	var armed []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			armed = append(armed, t)
		}
	}
	m.mu.Unlock()

	for _, t := range armed {
		t.fn()
	}
	return len(armed)
}
