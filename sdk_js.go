//go:build js
// +build js

package uibind

import (
	"fmt"
	"strings"
	"syscall/js"
)

// instancesPath locates the SDK's registry of live widgets.
var instancesPath = []string{"gigya", "_", "plugins", "instances"}

// NewGlobalSDK returns the widget SDK loaded into the page's global scope.
// SDK callbacks are handed to post so they run on the binder's event loop.
// The SDK does not have to be loaded yet; invocations fail until it is.
func NewGlobalSDK(post func(func())) (SDK, error) {
	return &globalSDK{post: post}, nil
}

type globalSDK struct {
	post      func(func())
	callbacks callbackSet[js.Func]
}

func (s *globalSDK) Invoke(method string, params Params, cb Callbacks) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrSDKUnavailable, method, r)
		}
	}()

	path := strings.Split(method, ".")
	obj := lookup(js.Global(), path[:len(path)-1])
	name := path[len(path)-1]
	if !defined(obj) || obj.Get(name).Type() != js.TypeFunction {
		return fmt.Errorf("%w: %s is not defined", ErrSDKUnavailable, method)
	}

	onLoad := js.FuncOf(func(js.Value, []js.Value) interface{} {
		if cb.OnLoad != nil {
			s.post(cb.OnLoad)
		}
		return nil
	})
	onError := js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		if cb.OnError != nil {
			e := jsError(args)
			s.post(func() { cb.OnError(e) })
		}
		return nil
	})
	s.callbacks.add(onLoad, onError)

	arg := js.ValueOf(toJS(params))
	arg.Set("onLoad", onLoad)
	arg.Set("onError", onError)

	res := obj.Call(name, arg)
	if res.Type() == js.TypeBoolean && !res.Bool() {
		return fmt.Errorf("%w: %s returned false", ErrSDKUnavailable, method)
	}
	return nil
}

func (s *globalSDK) HasInstance(containerID string) bool {
	instances := lookup(js.Global(), instancesPath)
	if !defined(instances) {
		return false
	}
	return instances.Get(containerID).Truthy()
}

// Release frees every callback handed to the SDK. Widgets that call them
// afterwards only get a console error.
func (s *globalSDK) Release() {
	s.callbacks.release()
}

func lookup(v js.Value, path []string) js.Value {
	for _, p := range path {
		if !defined(v) {
			return js.Undefined()
		}
		v = v.Get(p)
	}
	return v
}

func defined(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

// toJS converts params into values js.ValueOf accepts.
func toJS(v interface{}) interface{} {
	switch v := v.(type) {
	case Params:
		return toJS(map[string]interface{}(v))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = toJS(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = toJS(e)
		}
		return out
	case int, int64, float64, string, bool, nil:
		return v
	case uint64:
		return float64(v)
	default:
		return fmt.Sprint(v)
	}
}

func jsError(args []js.Value) error {
	if len(args) == 0 || !defined(args[0]) {
		return fmt.Errorf("widget error")
	}
	e := args[0]
	for _, key := range []string{"errorMessage", "message"} {
		if m := e.Get(key); m.Type() == js.TypeString {
			return fmt.Errorf("widget error: %s", m.String())
		}
	}
	return fmt.Errorf("widget error: %s", js.Global().Get("JSON").Call("stringify", e).String())
}
