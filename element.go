package uibind

// Container is a DOM subtree that can be searched for elements to bind.
type Container interface {
	// QueryAll returns the elements matching the CSS selector inside the
	// container, in document order.
	QueryAll(selector string) []Element
}

// Element is a DOM element the binder renders a widget into.
//
// Implementations are thin handles: two Elements returned by separate
// queries may wrap the same DOM node. The binder marks the nodes it binds
// with a data-gy-ui-bound attribute and keys its state by element id.
type Element interface {
	Container

	ID() string
	SetID(id string)

	// Attr returns the value of the named attribute and whether it is set.
	Attr(name string) (string, bool)
	SetAttr(name, value string)

	// Dataset returns the element's data-* attributes keyed by their
	// camel-cased name, without the "data-" prefix.
	Dataset() map[string]string

	InnerHTML() string

	// SetText replaces the element's content with a text node.
	SetText(text string)

	// Hidden reports whether the element is not currently displayed.
	Hidden() bool

	// OuterSize returns the element's rendered width and height including
	// padding and border. Zero means unknown or not laid out.
	OuterSize() (width, height float64)

	// Count returns the number of descendants matching selector.
	Count(selector string) int
}

// Page delivers window-level events. Listeners run on the event loop.
type Page interface {
	OnResize(fn func()) (remove func())
	OnClick(fn func()) (remove func())
}
