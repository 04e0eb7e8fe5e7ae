// Package uibindtest provides an in-memory widget SDK for exercising a
// uibind.Binder without a browser.
package uibindtest

import (
	"fmt"

	"github.com/octoberswimmer/uibind"
)

// Mode controls how RecordingSDK answers an invocation.
type Mode int

const (
	// LoadImmediately calls OnLoad before Invoke returns.
	LoadImmediately Mode = iota
	// LoadManually leaves the load pending until Load is called.
	LoadManually
	// Unavailable fails every invocation synchronously.
	Unavailable
)

// Call records one invocation.
type Call struct {
	Method string
	Params uibind.Params
	cb     uibind.Callbacks
}

// ContainerID returns the containerID parameter of the call.
func (c Call) ContainerID() string {
	id, _ := c.Params["containerID"].(string)
	return id
}

// Load fires the OnLoad callback handed over with this call, even if the
// element has rendered again since.
func (c Call) Load() bool {
	if c.cb.OnLoad == nil {
		return false
	}
	c.cb.OnLoad()
	return true
}

// RecordingSDK records invocations and simulates widget loading.
type RecordingSDK struct {
	Mode Mode
	// Render, if set, is written into the container on a successful
	// invocation and registers a live instance for it.
	Render func(c Call) string

	calls     []Call
	instances map[string]bool
	content   map[string]string
	released  bool
}

// NewRecordingSDK returns a RecordingSDK in the given mode.
func NewRecordingSDK(mode Mode) *RecordingSDK {
	return &RecordingSDK{
		Mode:      mode,
		instances: make(map[string]bool),
		content:   make(map[string]string),
	}
}

// Invoke implements uibind.SDK.
func (s *RecordingSDK) Invoke(method string, params uibind.Params, cb uibind.Callbacks) error {
	c := Call{Method: method, Params: params.Clone(), cb: cb}
	s.calls = append(s.calls, c)
	if s.Mode == Unavailable {
		return fmt.Errorf("%w: %s is not defined", uibind.ErrSDKUnavailable, method)
	}
	if s.Render != nil {
		s.content[c.ContainerID()] = s.Render(c)
		s.instances[c.ContainerID()] = true
	}
	if s.Mode == LoadImmediately && cb.OnLoad != nil {
		cb.OnLoad()
	}
	return nil
}

// HasInstance implements uibind.SDK.
func (s *RecordingSDK) HasInstance(containerID string) bool {
	return s.instances[containerID]
}

// SetInstance registers or removes a live instance for containerID.
func (s *RecordingSDK) SetInstance(containerID string, live bool) {
	if live {
		s.instances[containerID] = true
	} else {
		delete(s.instances, containerID)
	}
}

// Content returns what Render produced for containerID.
func (s *RecordingSDK) Content(containerID string) string {
	return s.content[containerID]
}

// Calls returns every invocation so far.
func (s *RecordingSDK) Calls() []Call {
	return append([]Call(nil), s.calls...)
}

// CallsFor returns the invocations targeting containerID.
func (s *RecordingSDK) CallsFor(containerID string) []Call {
	var out []Call
	for _, c := range s.calls {
		if c.ContainerID() == containerID {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent invocation targeting containerID.
func (s *RecordingSDK) Last(containerID string) (Call, bool) {
	calls := s.CallsFor(containerID)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// Load fires OnLoad for the most recent invocation targeting containerID.
func (s *RecordingSDK) Load(containerID string) bool {
	c, ok := s.Last(containerID)
	if !ok || c.cb.OnLoad == nil {
		return false
	}
	c.cb.OnLoad()
	return true
}

// Fail fires OnError for the most recent invocation targeting containerID.
func (s *RecordingSDK) Fail(containerID string, err error) bool {
	c, ok := s.Last(containerID)
	if !ok || c.cb.OnError == nil {
		return false
	}
	c.cb.OnError(err)
	return true
}

// Release implements uibind.Releaser.
func (s *RecordingSDK) Release() {
	s.released = true
}

// Released reports whether Release was called.
func (s *RecordingSDK) Released() bool {
	return s.released
}
