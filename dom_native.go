//go:build !js
// +build !js

package uibind

import (
	"sort"
	"strconv"
	"strings"

	dom "github.com/gost-dom/browser/dom"
	ev "github.com/gost-dom/browser/dom/event"
	html "github.com/gost-dom/browser/html"
)

// Browser returns the page and document of the running browser. In native
// builds it always fails; use NewGostPage instead.
func Browser(post func(func())) (Page, Container, error) {
	return nil, nil, ErrNoBrowser
}

// NewGlobalSDK returns the SDK loaded into the browser page. In native
// builds it always fails.
func NewGlobalSDK(post func(func())) (SDK, error) {
	return nil, ErrNoBrowser
}

// WatchAccount feeds the browser SDK's login state into s. In native builds
// it always fails.
func WatchAccount(post func(func()), s *SessionState) error {
	return ErrNoBrowser
}

// Export publishes fn to page scripts as a global function. In native
// builds it always fails.
func Export(name string, post func(func()), fn func()) (func(), error) {
	return nil, ErrNoBrowser
}

// GostPage adapts a gost-dom window for native builds and tests.
//
// gost-dom does no layout and has no viewport, so resize events are
// delivered with Resize, and geometry comes from inline width and height
// styles.
type GostPage struct {
	win html.Window

	nextID    int
	resize    map[int]func()
	click     map[int]func()
	listening bool
}

// NewGostPage wraps win.
func NewGostPage(win html.Window) *GostPage {
	return &GostPage{
		win:    win,
		resize: make(map[int]func()),
		click:  make(map[int]func()),
	}
}

// Document returns the whole document as a Container.
func (p *GostPage) Document() Container {
	return gostContainer{q: p.win.Document()}
}

// Body returns the document body, or nil if there is none.
func (p *GostPage) Body() Element {
	body := p.win.Document().Body()
	if body == nil {
		return nil
	}
	return WrapGostElement(body)
}

// OnResize implements Page.
func (p *GostPage) OnResize(fn func()) func() {
	id := p.add(p.resize, fn)
	return func() { delete(p.resize, id) }
}

// OnClick implements Page. Listeners fire for clicks anywhere in the body.
func (p *GostPage) OnClick(fn func()) func() {
	p.listen()
	id := p.add(p.click, fn)
	return func() { delete(p.click, id) }
}

// Resize delivers a resize event to every listener.
func (p *GostPage) Resize() {
	fire(p.resize)
}

// Click dispatches a click event on the document body.
func (p *GostPage) Click() {
	if elt, ok := p.win.Document().Body().(html.HTMLElement); ok {
		elt.Click()
	}
}

// Listeners returns the number of resize and click listeners.
func (p *GostPage) Listeners() (resize, click int) {
	return len(p.resize), len(p.click)
}

func (p *GostPage) add(m map[int]func(), fn func()) int {
	p.nextID++
	m[p.nextID] = fn
	return p.nextID
}

func (p *GostPage) listen() {
	if p.listening {
		return
	}
	body, ok := p.win.Document().Body().(ev.EventTarget)
	if !ok {
		return
	}
	p.listening = true
	body.AddEventListener("click", ev.NewEventHandlerFuncWithoutError(func(*ev.Event) {
		fire(p.click)
	}))
}

// fire calls listeners in registration order.
func fire(m map[int]func()) {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := m[id]; ok {
			fn()
		}
	}
}

type querier interface {
	QuerySelectorAll(selector string) (dom.NodeList, error)
}

type gostContainer struct {
	q querier
}

func (c gostContainer) QueryAll(selector string) []Element {
	return queryAll(c.q, selector)
}

func queryAll(q querier, selector string) []Element {
	list, err := q.QuerySelectorAll(selector)
	if err != nil || list == nil {
		return nil
	}
	var out []Element
	for i := 0; i < list.Length(); i++ {
		if el, ok := list.Item(i).(dom.Element); ok {
			out = append(out, WrapGostElement(el))
		}
	}
	return out
}

// WrapGostElement converts a gost-dom element into an Element.
func WrapGostElement(el dom.Element) Element {
	return &gostElement{el: el}
}

type gostElement struct {
	el dom.Element
}

func (e *gostElement) QueryAll(selector string) []Element {
	return queryAll(e.el, selector)
}

func (e *gostElement) ID() string {
	id, _ := e.el.GetAttribute("id")
	return id
}

func (e *gostElement) SetID(id string) {
	e.el.SetAttribute("id", id)
}

func (e *gostElement) Attr(name string) (string, bool) {
	return e.el.GetAttribute(name)
}

func (e *gostElement) SetAttr(name, value string) {
	e.el.SetAttribute(name, value)
}

func (e *gostElement) Dataset() map[string]string {
	out := make(map[string]string)
	attrs := e.el.Attributes()
	for i := 0; i < attrs.Length(); i++ {
		a := attrs.Item(i)
		if a == nil {
			continue
		}
		if key, ok := datasetKey(a.LocalName()); ok {
			out[key] = a.Value()
		}
	}
	return out
}

func (e *gostElement) InnerHTML() string {
	return e.el.InnerHTML()
}

func (e *gostElement) SetText(text string) {
	e.el.SetTextContent(text)
}

func (e *gostElement) Hidden() bool {
	var n dom.Node = e.el
	for n != nil {
		if el, ok := n.(dom.Element); ok {
			if _, hidden := el.GetAttribute("hidden"); hidden {
				return true
			}
			style, _ := el.GetAttribute("style")
			if strings.EqualFold(parseStyle(style)["display"], "none") {
				return true
			}
		}
		n = n.Parent()
	}
	return false
}

func (e *gostElement) OuterSize() (float64, float64) {
	style, _ := e.el.GetAttribute("style")
	decl := parseStyle(style)
	return pixels(decl["width"]), pixels(decl["height"])
}

func (e *gostElement) Count(selector string) int {
	return len(e.QueryAll(selector))
}

// datasetKey converts a data-* attribute name to its dataset key:
// "data-error-message" becomes "errorMessage".
func datasetKey(attr string) (string, bool) {
	attr = strings.ToLower(attr)
	if !strings.HasPrefix(attr, "data-") || len(attr) == len("data-") {
		return "", false
	}
	var sb strings.Builder
	rest := attr[len("data-"):]
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == '-' && i+1 < len(rest) && rest[i+1] >= 'a' && rest[i+1] <= 'z' {
			sb.WriteByte(rest[i+1] - 'a' + 'A')
			i++
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}

// parseStyle splits an inline style attribute into lower-cased property
// names and trimmed values.
func parseStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return out
}

// pixels parses "300px" or "300". Anything else is zero.
func pixels(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
