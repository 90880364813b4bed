// Package listview is the fetch, cache, render and invalidate loop shared by
// every list screen.
package listview

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
)

// Query identifies one list: an entity kind and its filter values. Filter
// names double as URL query parameters of the screen.
type Query struct {
	Kind    domain.EntityKind
	Filters map[string]string
}

// NewQuery builds a query from alternating name, value pairs.
func NewQuery(kind domain.EntityKind, pairs ...string) Query {
	q := Query{Kind: kind, Filters: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Filters[pairs[i]] = pairs[i+1]
	}
	return q
}

// Values returns the non-empty filters as URL values.
func (q Query) Values() url.Values {
	v := make(url.Values, len(q.Filters))
	for name, val := range q.Filters {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		v.Set(name, val)
	}
	return v
}

// Key is deterministic: the kind followed by the sorted non-empty filters.
// An empty filter and an absent one produce the same key.
func (q Query) Key() string {
	enc := q.Values().Encode()
	if enc == "" {
		return string(q.Kind)
	}
	return string(q.Kind) + "?" + enc
}

// Get returns a filter value.
func (q Query) Get(name string) string {
	return q.Filters[name]
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Query, error) {
	kind, raw, _ := strings.Cut(key, "?")
	if kind == "" {
		return Query{}, fmt.Errorf("empty query key")
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return Query{}, fmt.Errorf("invalid query key %q: %w", key, err)
	}
	q := Query{Kind: domain.EntityKind(kind), Filters: make(map[string]string, len(vals))}
	for name := range vals {
		q.Filters[name] = vals.Get(name)
	}
	return q, nil
}
