// Package clock schedules deferred callbacks for the binder.
//
// Every callback runs on a single goroutine, so code driven by a Clock can
// mutate its state without locking, the same way browser code relies on the
// JavaScript event loop.
package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Clock schedules f to run once after d has elapsed.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Loop is a Clock backed by real time. Timer callbacks, and anything handed
// to Post, run one at a time on the goroutine that calls Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

// NewLoop returns an idle Loop. Callbacks queue up until Run is called.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues f to run on the loop. It never blocks, so it is safe to call
// from JavaScript callbacks.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc implements Clock.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.fire() {
				f()
			}
		})
	})
	return t
}

// Run executes queued callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		for _, f := range batch {
			f()
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

type loopTimer struct {
	mu   sync.Mutex
	t    *time.Timer
	done bool
}

// fire reports whether the callback should still run.
func (t *loopTimer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *loopTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.t.Stop()
	return true
}

// Manual is a Clock that only moves when Advance is called. Callbacks run
// synchronously inside Advance in deadline order, ties broken by scheduling
// order.
type Manual struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

// NewManual returns a Manual clock at time zero.
func NewManual() *Manual {
	return &Manual{}
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.m.remove(t)
	return true
}

// AfterFunc implements Clock.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Now returns the elapsed time since the clock was created.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Pending returns the number of callbacks that have not run yet.
func (m *Manual) Pending() int {
	return len(m.timers)
}

// Advance moves the clock forward by d, running every callback that falls
// due. Callbacks scheduled by other callbacks run too if they fall inside
// the window.
func (m *Manual) Advance(d time.Duration) {
	end := m.now + d
	for {
		next := m.next()
		if next == nil || next.at > end {
			break
		}
		m.remove(next)
		next.stopped = true
		m.now = next.at
		next.f()
	}
	m.now = end
}

func (m *Manual) next() *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at != m.timers[j].at {
			return m.timers[i].at < m.timers[j].at
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	return m.timers[0]
}

func (m *Manual) remove(t *manualTimer) {
	for i, o := range m.timers {
		if o == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}
