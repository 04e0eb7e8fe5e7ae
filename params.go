package uibind

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dataset keys the binder reads for itself.
const (
	boundKey        = "gyUiBound"
	rerenderKey     = "rerender"
	errorMessageKey = "errorMessage"
	containerIDKey  = "containerID"
	widthKey        = "width"
	heightKey       = "height"
)

// ParseValue converts an attribute value to a parameter value the way
// jQuery's data() does: "true", "false" and "null", numbers that print back
// to the same text, and values wrapped in {} or [] are decoded. Flow maps
// and sequences are read as YAML, so unquoted keys work. Anything else,
// including text that fails to decode, stays the raw string.
func ParseValue(raw string) interface{} {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, ok := parseNumber(raw); ok {
		return n
	}
	if isFlow(raw) {
		var v interface{}
		if err := yaml.Unmarshal([]byte(raw), &v); err == nil && v != nil {
			return normalize(v)
		}
	}
	return raw
}

// parseNumber accepts raw only if formatting the number gives raw back, so
// "0x10", "1.50" and " 42" stay text.
func parseNumber(raw string) (interface{}, bool) {
	if i, err := strconv.Atoi(raw); err == nil {
		return i, strconv.Itoa(i) == raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || strconv.FormatFloat(f, 'f', -1, 64) != raw {
		return nil, false
	}
	return f, true
}

func isFlow(raw string) bool {
	if len(raw) < 2 {
		return false
	}
	first, last := raw[0], raw[len(raw)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

// normalize turns decoded YAML into Params-shaped values.
func normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case Params:
		return normalize(map[string]interface{}(v))
	case map[string]interface{}:
		out := make(Params, len(v))
		for k, e := range v {
			out[k] = normalize(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(Params, len(v))
		for k, e := range v {
			if ks, ok := k.(string); ok {
				out[ks] = normalize(e)
			}
		}
		return out
	case []interface{}:
		for i, e := range v {
			v[i] = normalize(e)
		}
		return v
	default:
		return v
	}
}

// Merge deep-merges src into dst and returns dst. Nested maps are merged
// key by key; any other value in src replaces the one in dst.
func Merge(dst, src Params) Params {
	if dst == nil {
		dst = Params{}
	}
	for k, v := range src {
		sv, sok := asParams(v)
		dv, dok := asParams(dst[k])
		if sok && dok {
			dst[k] = Merge(dv.Clone(), sv)
			continue
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

func asParams(v interface{}) (Params, bool) {
	switch v := v.(type) {
	case Params:
		return v, true
	case map[string]interface{}:
		return Params(v), true
	}
	return nil, false
}

// ElementParams derives the SDK parameters for el under rule r: element
// data attributes over rule defaults, the element id as containerID, and
// the outer geometry as width and height when neither sets them.
func ElementParams(r Rule, el Element) Params {
	attrs := Params{}
	for k, v := range el.Dataset() {
		if k == rerenderKey || k == boundKey {
			continue
		}
		if k == errorMessageKey {
			attrs[k] = v
			continue
		}
		attrs[k] = ParseValue(v)
	}
	params := Merge(r.Defaults.Clone(), attrs)
	params[containerIDKey] = el.ID()

	w, h := el.OuterSize()
	if _, ok := params[widthKey]; !ok && w != 0 {
		params[widthKey] = w
	}
	if _, ok := params[heightKey]; !ok && h != 0 {
		params[heightKey] = h
	}
	return params
}

// rerenderEnabled reports whether account changes may re-render el.
func rerenderEnabled(el Element) bool {
	v, ok := el.Dataset()[rerenderKey]
	return !ok || strings.TrimSpace(v) != "false"
}

// errorMessage returns the message shown when rendering el fails.
func errorMessage(r Rule, el Element, fallback string) string {
	if msg := el.Dataset()[errorMessageKey]; msg != "" {
		return msg
	}
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	if msg, ok := r.Defaults[errorMessageKey].(string); ok && msg != "" {
		return msg
	}
	return fallback
}
