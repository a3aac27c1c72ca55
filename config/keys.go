package config

import "sort"

// Key names one required setting.
type Key string

// Keys is the fixed, ordered set of keys a service variant requires.
type Keys []Key

// NewKeys builds a key set, dropping duplicates while preserving order.
func NewKeys(names ...string) Keys {
	seen := make(map[Key]bool, len(names))
	keys := make(Keys, 0, len(names))
	for _, n := range names {
		k := Key(n)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// Strings returns the key names in declared order.
func (ks Keys) Strings() []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}

// Resolved maps every required key to a present value. It is only built by
// Resolve and is never mutated afterwards.
type Resolved struct {
	keys   Keys
	values map[Key]string
}

func newResolved(keys Keys, values map[Key]string) *Resolved {
	r := &Resolved{
		keys:   append(Keys(nil), keys...),
		values: make(map[Key]string, len(keys)),
	}
	for _, k := range keys {
		r.values[k] = values[k]
	}
	return r
}

// Get returns the value of a required key. Keys outside the required set
// yield "".
func (r *Resolved) Get(key Key) string {
	return r.values[key]
}

// Lookup returns the value of key and whether it belongs to the resolved set.
func (r *Resolved) Lookup(key Key) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Redacted returns the key names in sorted order, for logging without values.
func (r *Resolved) Redacted() []string {
	names := r.keys.Strings()
	sort.Strings(names)
	return names
}
