package response

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// Field is one header line.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered header collection. Lookups are case-insensitive and repeated names keep
// every value in arrival order.
type Header struct {
	fields []Field
}

func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

func (h Header) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Values returns every value for name in order.
func (h Header) Values(name string) []string {
	var values []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// Names returns the distinct header names in order of first appearance, as first spelled.
func (h Header) Names() []string {
	seen := make(map[string]struct{}, len(h.fields))
	var names []string
	for _, f := range h.fields {
		key := strings.ToLower(f.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}

func (h Header) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

func (h Header) Len() int {
	return len(h.fields)
}

// HTTPHeader converts to net/http form. Order across names is lost, order within a name is kept.
func (h Header) HTTPHeader() http.Header {
	out := make(http.Header, len(h.fields))
	for _, f := range h.fields {
		key := textproto.CanonicalMIMEHeaderKey(f.Name)
		out[key] = append(out[key], f.Value)
	}
	return out
}

// FromHTTPHeader converts an http.Header. Names are sorted since the map carries no order.
func FromHTTPHeader(hh http.Header) Header {
	names := make([]string, 0, len(hh))
	for name := range hh {
		names = append(names, name)
	}
	sort.Strings(names)
	var h Header
	for _, name := range names {
		for _, v := range hh[name] {
			h.Add(name, v)
		}
	}
	return h
}

// ParseHeaderLines parses "Name: value" lines. Lines without a colon are skipped; folded
// continuation lines are appended to the previous value.
func ParseHeaderLines(lines []string) Header {
	var h Header
	for _, line := range lines {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(h.fields) > 0 {
			last := &h.fields[len(h.fields)-1]
			last.Value = last.Value + " " + strings.TrimSpace(line)
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h
}
