// Package uibind binds page elements to an external social/identity widget
// SDK. Each Rule maps a CSS class to an SDK method; the Binder renders a
// widget into every matching element and renders it again when the element
// was hidden, failed to load, or the signed-in account changed.
//
// The Binder is not safe for concurrent use. All of its callbacks run on
// its Clock, which plays the part of the browser event loop; page, SDK and
// session callbacks must be delivered on that same loop (see clock.Loop).
package uibind

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/octoberswimmer/uibind/clock"
	"go.uber.org/zap"
)

// Binder renders widgets into elements matched by its rules.
type Binder struct {
	page    Page
	sdk     SDK
	session Session
	rules   []Rule

	clock         clock.Clock
	log           *zap.Logger
	retryInterval time.Duration
	maxAttempts   int
	debounce      time.Duration
	clickDelays   []time.Duration
	idPrefix      string
	fallback      string
	onFailure     func(*RenderError)

	nextID   int
	bindings map[string]*binding
	order    []string
	closed   bool
}

// NewBinder creates a Binder using DefaultRules unless WithRules is given.
// page may be nil, in which case resize and click checks are not wired.
//
// Without WithClock the binder schedules on a clock.Loop that only runs
// while Run is executing.
func NewBinder(page Page, sdk SDK, session Session, opts ...BinderOption) *Binder {
	b := &Binder{
		page:          page,
		sdk:           sdk,
		session:       session,
		rules:         DefaultRules(),
		log:           zap.NewNop(),
		retryInterval: DefaultRetryInterval,
		maxAttempts:   DefaultMaxAttempts,
		debounce:      DefaultDebounce,
		clickDelays:   DefaultClickDelays(),
		idPrefix:      DefaultIDPrefix,
		fallback:      DefaultFallbackMessage,
		bindings:      make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.clock == nil {
		b.clock = clock.NewLoop()
	}
	return b
}

// Run executes the binder's event loop until ctx is cancelled. It returns
// immediately with nil if the binder was configured with a clock that is
// not a *clock.Loop.
func (b *Binder) Run(ctx context.Context) error {
	loop, ok := b.clock.(*clock.Loop)
	if !ok {
		return nil
	}
	return loop.Run(ctx)
}

// Rules returns the binder's rule table.
func (b *Binder) Rules() []Rule {
	return append([]Rule(nil), b.rules...)
}

// BindAll binds every element in container matching a rule that is not
// bound yet. It is safe to call again whenever the container's content
// changes; elements already bound are left alone.
func (b *Binder) BindAll(container Container) {
	if b.closed {
		return
	}
	for _, r := range b.rules {
		for _, el := range container.QueryAll(r.CSSSelector()) {
			b.bind(container, r, el)
		}
	}
}

// boundAttr marks DOM nodes that already carry a binding.
const boundAttr = "data-gy-ui-bound"

func (b *Binder) bind(container Container, r Rule, el Element) {
	if _, marked := el.Attr(boundAttr); marked {
		return
	}
	id := el.ID()
	if _, taken := b.bindings[id]; id == "" || taken {
		if taken {
			b.log.Debug("Element id is bound to another element, assigning a new one", zap.String("id", id))
		}
		id = b.newID(container)
		el.SetID(id)
	}
	el.SetAttr(boundAttr, r.Name)

	bd := &binding{
		rule:        r,
		el:          el,
		id:          id,
		initialHTML: el.InnerHTML(),
		rerender:    rerenderEnabled(el),
	}
	b.bindings[id] = bd
	b.order = append(b.order, id)
	b.log.Debug("Binding to UI element", zap.String("id", id), zap.String("rule", r.Name))

	bd.check = &debouncer{
		clk:  b.clock,
		wait: b.debounce,
		fn:   func(change *AccountChange) { b.check(bd, change) },
	}
	if b.page != nil {
		bd.removers = append(bd.removers,
			b.page.OnResize(func() { bd.check.call(nil) }),
			b.page.OnClick(func() { b.clicked(bd) }),
		)
	}
	bd.removers = append(bd.removers, b.session.Subscribe(func(change AccountChange) {
		bd.check.call(&change)
	}))

	b.render(bd)
}

// newID returns the next generated id that is neither bound nor used by an
// element in container.
func (b *Binder) newID(container Container) string {
	for {
		b.nextID++
		id := b.idPrefix + strconv.Itoa(b.nextID)
		if _, taken := b.bindings[id]; taken {
			continue
		}
		if len(container.QueryAll(`[id="`+id+`"]`)) == 0 {
			return id
		}
	}
}

// clicked checks immediately (debounced) and again after each click delay,
// since a click may reveal an element only once an animation finished.
func (b *Binder) clicked(bd *binding) {
	bd.check.call(nil)
	for _, d := range b.clickDelays {
		b.clock.AfterFunc(d, func() { b.check(bd, nil) })
	}
}

// check renders bd again if it still shows its initial content without a
// live widget, or if the rule's predicate asks for it after an account
// change.
func (b *Binder) check(bd *binding, change *AccountChange) {
	if b.closed {
		return
	}
	html := bd.el.InnerHTML()
	if (html == "" || html == bd.initialHTML) && !b.sdk.HasInstance(bd.id) {
		b.log.Debug("Re-rendering UI element because it was previously hidden", zap.String("id", bd.id))
		b.render(bd)
		return
	}
	if bd.rule.Predicate == nil || !bd.rerender || change == nil {
		return
	}
	if bd.rule.Predicate.ShouldRerender(change.Old, change.New, bd.el) {
		b.log.Debug("Re-rendering UI element on account change",
			zap.String("id", bd.id),
			zap.String("oldUID", change.Old.UID),
			zap.String("newUID", change.New.UID),
		)
		b.render(bd)
	}
}

// Render renders a widget into el if it is bound. It does nothing while
// the account is not initialized, while el is hidden, or while a previous
// render of el is still loading.
func (b *Binder) Render(el Element) {
	if bd, ok := b.bindings[el.ID()]; ok {
		bd.el = el
		b.render(bd)
	}
}

func (b *Binder) render(bd *binding) {
	if b.closed {
		return
	}
	if !b.session.IsInitialized() || bd.el.Hidden() {
		return
	}
	if bd.status == StatusLoading {
		return
	}

	bd.status = StatusLoading
	bd.attempt++
	attempt := bd.attempt

	cb := Callbacks{
		OnLoad: func() {
			if bd.attempt == attempt {
				bd.status = StatusLoaded
			}
		},
		OnError: func(err error) {
			b.log.Error("UI render onError", zap.String("id", bd.id), zap.Error(err))
		},
	}
	if err := b.sdk.Invoke(bd.rule.Method, ElementParams(bd.rule, bd.el), cb); err != nil {
		if !errors.Is(err, ErrSDKUnavailable) {
			err = fmt.Errorf("%w: %v", ErrSDKUnavailable, err)
		}
		b.fail(bd, FailureInvocation, err)
		return
	}
	if bd.status == StatusLoading {
		b.waitForLoad(bd, attempt, 1)
	}
}

// waitForLoad polls for the load callback every retryInterval and fails
// the render after maxAttempts polls.
func (b *Binder) waitForLoad(bd *binding, attempt, n int) {
	b.clock.AfterFunc(b.retryInterval, func() {
		if b.closed || bd.attempt != attempt || bd.status != StatusLoading {
			return
		}
		if n >= b.maxAttempts {
			b.fail(bd, FailureTimeout, ErrLoadTimeout)
			return
		}
		b.waitForLoad(bd, attempt, n+1)
	})
}

// fail replaces the element content with the error message.
func (b *Binder) fail(bd *binding, kind FailureKind, err error) {
	bd.status = StatusFailed
	bd.el.SetText(errorMessage(bd.rule, bd.el, b.fallback))

	rerr := &RenderError{
		Op:        "uibind.render",
		Kind:      kind,
		Rule:      bd.rule.Name,
		Method:    bd.rule.Method,
		ElementID: bd.id,
		Err:       err,
	}
	b.log.Warn("UI render failed", zap.Error(rerr))
	if b.onFailure != nil {
		b.onFailure(rerr)
	}
}

// Bound reports whether the element with the given id is bound.
func (b *Binder) Bound(id string) bool {
	_, ok := b.bindings[id]
	return ok
}

// Status returns the load status of the element with the given id.
func (b *Binder) Status(id string) (LoadStatus, bool) {
	bd, ok := b.bindings[id]
	if !ok {
		return StatusIdle, false
	}
	return bd.status, true
}

// Bindings returns every bound element in bind order.
func (b *Binder) Bindings() []Binding {
	out := make([]Binding, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.bindings[id].view())
	}
	return out
}

// Close detaches every listener and subscription. Checks and polls that
// are already scheduled become no-ops.
func (b *Binder) Close() {
	if b.closed {
		return
	}
	b.closed = true
	for _, id := range b.order {
		bd := b.bindings[id]
		bd.check.stop()
		for _, remove := range bd.removers {
			if remove != nil {
				remove()
			}
		}
		bd.removers = nil
	}
	if r, ok := b.sdk.(Releaser); ok {
		r.Release()
	}
}
