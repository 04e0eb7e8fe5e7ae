package uibind

import (
	"time"

	"github.com/octoberswimmer/uibind/clock"
)

// LoadStatus tracks widget render progress for one element.
type LoadStatus int

const (
	StatusIdle LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// binding is the side-table record for one bound element.
type binding struct {
	rule        Rule
	el          Element
	id          string
	initialHTML string
	rerender    bool
	status      LoadStatus

	// attempt increments with every render so stale callbacks and polls
	// from earlier renders are ignored.
	attempt int

	check    *debouncer
	removers []func()
}

// Binding is a read-only view of a bound element.
type Binding struct {
	ID       string
	Rule     string
	Method   string
	Status   LoadStatus
	Rerender bool
	Renders  int
}

func (b *binding) view() Binding {
	return Binding{
		ID:       b.id,
		Rule:     b.rule.Name,
		Method:   b.rule.Method,
		Status:   b.status,
		Rerender: b.rerender,
		Renders:  b.attempt,
	}
}

// debouncer delays calls until wait has passed without another call. The
// last call's argument wins.
type debouncer struct {
	clk     clock.Clock
	wait    time.Duration
	fn      func(*AccountChange)
	pending clock.Timer
}

func (d *debouncer) call(change *AccountChange) {
	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = d.clk.AfterFunc(d.wait, func() {
		d.pending = nil
		d.fn(change)
	})
}

func (d *debouncer) stop() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
