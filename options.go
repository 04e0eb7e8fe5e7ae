package uibind

import (
	"time"

	"github.com/octoberswimmer/uibind/clock"
	"go.uber.org/zap"
)

const (
	// DefaultRetryInterval is how often a render polls for the load
	// callback.
	DefaultRetryInterval = 500 * time.Millisecond
	// DefaultMaxAttempts is how many polls happen before a render fails.
	DefaultMaxAttempts = 20
	// DefaultDebounce collapses bursts of resize, click and account events.
	DefaultDebounce = 100 * time.Millisecond
	// DefaultIDPrefix prefixes ids generated for elements without one.
	DefaultIDPrefix = "gy-ui-"
	// DefaultFallbackMessage is shown when a render fails and neither the
	// element nor the rule configures a message.
	DefaultFallbackMessage = "An error has occurred. Please try again later."
)

// DefaultClickDelays are the extra re-checks after a body click, for
// content revealed by animations or late loading.
func DefaultClickDelays() []time.Duration {
	return []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		750 * time.Millisecond,
		1000 * time.Millisecond,
		1250 * time.Millisecond,
		1500 * time.Millisecond,
	}
}

// BinderOption is used to set options when creating a Binder.
//
// Example usage:
//
//	b := NewBinder(page, sdk, session, WithLogger(logger), WithRetry(time.Second, 10))
type BinderOption func(*Binder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) BinderOption {
	return func(b *Binder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithClock sets the clock used for polling, debouncing and delayed
// checks. Every binder callback runs on it.
func WithClock(c clock.Clock) BinderOption {
	return func(b *Binder) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithRetry sets the load polling interval and the number of polls before
// a render is considered failed. Values below 1 keep the defaults.
func WithRetry(interval time.Duration, attempts int) BinderOption {
	return func(b *Binder) {
		if interval > 0 {
			b.retryInterval = interval
		}
		if attempts > 0 {
			b.maxAttempts = attempts
		}
	}
}

// WithDebounce sets the debounce window for re-render checks.
func WithDebounce(d time.Duration) BinderOption {
	return func(b *Binder) {
		if d >= 0 {
			b.debounce = d
		}
	}
}

// WithClickDelays sets the delays of the extra re-checks that follow a
// body click. An empty list disables them.
func WithClickDelays(delays ...time.Duration) BinderOption {
	return func(b *Binder) {
		b.clickDelays = append([]time.Duration(nil), delays...)
	}
}

// WithIDPrefix sets the prefix of generated element ids.
func WithIDPrefix(prefix string) BinderOption {
	return func(b *Binder) {
		if prefix != "" {
			b.idPrefix = prefix
		}
	}
}

// WithFallbackMessage sets the generic error message.
func WithFallbackMessage(msg string) BinderOption {
	return func(b *Binder) {
		if msg != "" {
			b.fallback = msg
		}
	}
}

// WithRules replaces the rule table.
func WithRules(rules []Rule) BinderOption {
	return func(b *Binder) {
		b.rules = append([]Rule(nil), rules...)
	}
}

// WithFailureHandler registers fn to observe failed renders, after the
// element content has been replaced.
func WithFailureHandler(fn func(*RenderError)) BinderOption {
	return func(b *Binder) {
		b.onFailure = fn
	}
}
