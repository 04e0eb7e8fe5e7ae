//go:build js
// +build js

package uibind

import "syscall/js"

// Browser returns the window and document of the running page. Event
// listeners are handed to post so they run on the binder's event loop.
func Browser(post func(func())) (Page, Container, error) {
	doc := js.Global().Get("document")
	if doc.IsUndefined() || doc.IsNull() {
		return nil, nil, ErrNoBrowser
	}
	return &jsPage{post: post}, jsElement{v: doc}, nil
}

// Export publishes fn as a global function called name, so page scripts can
// ask for a rescan after they change the document. Calls are handed to post.
func Export(name string, post func(func()), fn func()) (func(), error) {
	f := js.FuncOf(func(js.Value, []js.Value) interface{} {
		post(fn)
		return nil
	})
	js.Global().Set(name, f)
	return func() {
		js.Global().Delete(name)
		f.Release()
	}, nil
}

type jsPage struct {
	post func(func())
}

func (p *jsPage) OnResize(fn func()) func() {
	return p.listen(js.Global(), "resize", fn)
}

func (p *jsPage) OnClick(fn func()) func() {
	return p.listen(js.Global().Get("document").Get("body"), "click", fn)
}

func (p *jsPage) listen(target js.Value, event string, fn func()) func() {
	if target.IsUndefined() || target.IsNull() {
		return func() {}
	}
	f := js.FuncOf(func(js.Value, []js.Value) interface{} {
		p.post(fn)
		return nil
	})
	target.Call("addEventListener", event, f)
	return func() {
		target.Call("removeEventListener", event, f)
		f.Release()
	}
}

// jsElement wraps a DOM element or the document.
type jsElement struct {
	v js.Value
}

func (e jsElement) QueryAll(selector string) []Element {
	list := e.v.Call("querySelectorAll", selector)
	n := list.Length()
	out := make([]Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, jsElement{v: list.Index(i)})
	}
	return out
}

func (e jsElement) ID() string {
	return e.v.Get("id").String()
}

func (e jsElement) SetID(id string) {
	e.v.Set("id", id)
}

func (e jsElement) Attr(name string) (string, bool) {
	if !e.v.Call("hasAttribute", name).Bool() {
		return "", false
	}
	return e.v.Call("getAttribute", name).String(), true
}

func (e jsElement) SetAttr(name, value string) {
	e.v.Call("setAttribute", name, value)
}

func (e jsElement) Dataset() map[string]string {
	ds := e.v.Get("dataset")
	keys := js.Global().Get("Object").Call("keys", ds)
	out := make(map[string]string, keys.Length())
	for i := 0; i < keys.Length(); i++ {
		k := keys.Index(i).String()
		out[k] = ds.Get(k).String()
	}
	return out
}

func (e jsElement) InnerHTML() string {
	return e.v.Get("innerHTML").String()
}

func (e jsElement) SetText(text string) {
	e.v.Set("textContent", text)
}

// Hidden matches jQuery's :hidden, an element without any layout box.
func (e jsElement) Hidden() bool {
	return e.v.Get("offsetWidth").Int() == 0 &&
		e.v.Get("offsetHeight").Int() == 0 &&
		e.v.Call("getClientRects").Length() == 0
}

func (e jsElement) OuterSize() (float64, float64) {
	return e.v.Get("offsetWidth").Float(), e.v.Get("offsetHeight").Float()
}

func (e jsElement) Count(selector string) int {
	return e.v.Call("querySelectorAll", selector).Length()
}
