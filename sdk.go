package uibind

// Params is the parameter object passed to an SDK method.
type Params map[string]interface{}

// Callbacks are handed to the SDK alongside the parameters. The SDK calls
// OnLoad once the widget has rendered and OnError when rendering failed.
type Callbacks struct {
	OnLoad  func()
	OnError func(err error)
}

// SDK is the external widget library loaded into the page.
type SDK interface {
	// Invoke calls the named method. A non-nil error means the call could
	// not be made at all, typically because the SDK is not loaded.
	Invoke(method string, params Params, cb Callbacks) error

	// HasInstance reports whether the SDK holds a live widget rendered into
	// the element with the given id.
	HasInstance(containerID string) bool
}

// Releaser is implemented by SDKs that hold resources for the widgets they
// rendered. Binder.Close calls Release.
type Releaser interface {
	Release()
}

// callbackSet keeps callback handles alive once they are handed to the
// SDK. A live widget may call the callbacks of any earlier render, so
// handles are only released all together.
type callbackSet[F interface{ Release() }] struct {
	held []F
}

func (c *callbackSet[F]) add(fs ...F) {
	c.held = append(c.held, fs...)
}

func (c *callbackSet[F]) len() int {
	return len(c.held)
}

func (c *callbackSet[F]) release() {
	for _, f := range c.held {
		f.Release()
	}
	c.held = nil
}

// Clone returns a deep copy of p. Nested maps and slices are copied;
// other values are shared.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case Params:
		return v.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Params(v).Clone())
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
