//go:build !js
// +build !js

package uibind

import (
	"fmt"

	html "github.com/gost-dom/browser/html"
)

// BindWindow binds every rule match in the document of win, the way a host
// page does once it has loaded, and returns the binder together with the
// page it listens on. Use the returned page to deliver resize and click
// events.
func BindWindow(win html.Window, sdk SDK, session Session, opts ...BinderOption) (*Binder, *GostPage, error) {
	if win.Document().Body() == nil {
		return nil, nil, fmt.Errorf("gostdom: <body> element not found")
	}
	page := NewGostPage(win)
	b := NewBinder(page, sdk, session, opts...)
	b.BindAll(page.Document())
	return b, page, nil
}

// Find returns the single element matching selector.
func (p *GostPage) Find(selector string) (Element, error) {
	node, err := p.win.Document().QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query selector %q error: %w", selector, err)
	}
	if node == nil {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return WrapGostElement(node), nil
}
