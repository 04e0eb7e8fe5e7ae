package uibind

// RerenderPredicate decides whether an already rendered widget must be
// rendered again after the account changed.
type RerenderPredicate interface {
	ShouldRerender(prev, next Account, el Element) bool
}

// PredicateFunc adapts a function to RerenderPredicate.
type PredicateFunc func(prev, next Account, el Element) bool

// ShouldRerender implements RerenderPredicate.
func (f PredicateFunc) ShouldRerender(prev, next Account, el Element) bool {
	return f(prev, next, el)
}

// Rule maps elements to the SDK method that renders a widget into them.
type Rule struct {
	// Name is used to derive the default selector ".gy-ui-<name>".
	Name string
	// Method is the dotted path of the SDK method, e.g.
	// "gigya.socialize.showLoginUI".
	Method string
	// Selector overrides the derived selector.
	Selector string
	// Defaults are merged under the parameters read from the element.
	Defaults Params
	// ErrorMessage is shown when rendering fails and the element does not
	// configure its own message.
	ErrorMessage string
	// Predicate, if set, can request a re-render on account changes.
	Predicate RerenderPredicate
}

// ClassPrefix prefixes the rule name to form the default selector class.
const ClassPrefix = "gy-ui-"

// NewRule returns a Rule with its own copy of defaults.
func NewRule(name, method string, defaults Params) Rule {
	return Rule{Name: name, Method: method, Defaults: defaults.Clone()}
}

// WithPredicate returns a copy of r using p.
func (r Rule) WithPredicate(p RerenderPredicate) Rule {
	r.Defaults = r.Defaults.Clone()
	r.Predicate = p
	return r
}

// CSSSelector returns the selector matching the rule's elements.
func (r Rule) CSSSelector() string {
	if r.Selector != "" {
		return r.Selector
	}
	return "." + ClassPrefix + r.Name
}
