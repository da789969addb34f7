// Package header implements the ordered header list shared by requests and
// responses. Unlike net/http.Header it preserves insertion order, allows
// duplicate names without merging, and never canonicalizes names; lookups
// are case-insensitive.
package header

import "strings"

// Header is a single name/value pair. The value is kept exactly as set.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list.
type Headers []Header

// Add appends a header, preserving insertion order. It never overwrites
// earlier entries with the same name.
func (hs *Headers) Add(name, value string) {
	*hs = append(*hs, Header{Name: name, Value: value})
}

// Get returns the value of the first header matching name.
func (hs Headers) Get(name string) (string, bool) {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// GetAll returns every value for name in insertion order.
func (hs Headers) GetAll(name string) []string {
	var vv []string
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			vv = append(vv, h.Value)
		}
	}
	return vv
}

// Has reports whether at least one header matches name.
func (hs Headers) Has(name string) bool {
	_, ok := hs.Get(name)
	return ok
}

// Clone returns a copy that can be appended to without affecting hs.
func (hs Headers) Clone() Headers {
	if hs == nil {
		return nil
	}
	out := make(Headers, len(hs))
	copy(out, hs)
	return out
}

// Without returns a copy of hs with every header matching one of names
// removed.
func (hs Headers) Without(names ...string) Headers {
	out := make(Headers, 0, len(hs))
next:
	for _, h := range hs {
		for _, n := range names {
			if strings.EqualFold(h.Name, n) {
				continue next
			}
		}
		out = append(out, h)
	}
	return out
}
