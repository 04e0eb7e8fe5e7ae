package uibind

import (
	"errors"
	"fmt"
)

var (
	// ErrSDKUnavailable is reported when the SDK method could not be
	// invoked.
	ErrSDKUnavailable = errors.New("widget sdk unavailable")

	// ErrLoadTimeout is reported when the widget never signalled it loaded.
	ErrLoadTimeout = errors.New("widget did not load in time")

	// ErrNoBrowser is returned by browser-only constructors outside a
	// browser.
	ErrNoBrowser = errors.New("uibind: only running inside a browser is supported")
)

// FailureKind identifies why a render failed.
type FailureKind int

const (
	// FailureInvocation means the SDK call failed synchronously.
	FailureInvocation FailureKind = iota
	// FailureTimeout means the load callback never arrived.
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvocation:
		return "invocation"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// RenderError describes a failed render. It is never returned to callers;
// the binder logs it and hands it to the failure handler.
type RenderError struct {
	Op        string
	Kind      FailureKind
	Rule      string
	Method    string
	ElementID string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s [%s] rule=%s element=%s: %v", e.Op, e.Kind, e.Rule, e.ElementID, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
