// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kconfig

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a symbol value as stored in a configuration: a Tristate for
// tristate and boolean symbols, an int64 for int and hex symbols, a
// string for string symbols, or nil for options read as "is not set".
// Values must be comparable so that they can key value sets. The type
// is an alias so that values pass through interface boundaries (such
// as the directive interpreter's) unchanged.
type Value = interface{}

// ValueIsSet reports whether v represents a set option. Options that
// are nil, tristate "n" or the empty string are written to .config
// files as "is not set" markers.
func ValueIsSet(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case Tristate:
		return val != TriNo
	case string:
		return val != ""
	}
	return true
}

// FormatValueToken renders v the way it appears inside a value set in
// log output. Tristate values use their n/m/y names.
func FormatValueToken(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<unset>"
	case Tristate:
		return val.String()
	case string:
		return fmt.Sprintf("%q", val)
	case int64:
		return fmt.Sprintf("%d", val)
	}
	return fmt.Sprintf("%v", v)
}

// ValueSet is a set of acceptable symbol values. It is used by the
// solution cache and the resolver, where an entry restricts a symbol
// to one of several values.
type ValueSet map[Value]bool

// NewValueSet returns a set containing the given values.
func NewValueSet(values ...Value) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}

// TristateSetToValues converts a TristateSet into a ValueSet.
func TristateSetToValues(ts TristateSet) ValueSet {
	s := make(ValueSet, 3)
	for _, v := range ts.Values() {
		s[v] = true
	}
	return s
}

// Contains reports whether v is a member of s.
func (s ValueSet) Contains(v Value) bool {
	return s[v]
}

// ContainsNo reports whether tristate "n" is a member of s. Since "n"
// is the smallest tristate, this is equivalent to min(s) == n for
// tristate-valued sets.
func (s ValueSet) ContainsNo() bool {
	return s[TriNo]
}

// MinTristate returns the smallest tristate member of s; ok is false
// if s has no tristate members.
func (s ValueSet) MinTristate() (Tristate, bool) {
	found := false
	min := TriYes
	for v := range s {
		if t, isTri := v.(Tristate); isTri {
			if !found || t < min {
				min = t
			}
			found = true
		}
	}
	return min, found
}

// Intersect returns the intersection of s and o.
func (s ValueSet) Intersect(o ValueSet) ValueSet {
	out := make(ValueSet)
	for v := range s {
		if o[v] {
			out[v] = true
		}
	}
	return out
}

// Without returns a copy of s with v removed.
func (s ValueSet) Without(v Value) ValueSet {
	out := make(ValueSet, len(s))
	for m := range s {
		if m != v {
			out[m] = true
		}
	}
	return out
}

// Copy returns a shallow copy of s.
func (s ValueSet) Copy() ValueSet {
	out := make(ValueSet, len(s))
	for v := range s {
		out[v] = true
	}
	return out
}

// Equal reports whether s and o contain the same values.
func (s ValueSet) Equal(o ValueSet) bool {
	if len(s) != len(o) {
		return false
	}
	for v := range s {
		if !o[v] {
			return false
		}
	}
	return true
}

// Values returns the members of s in a deterministic order: tristates
// ascending first, then remaining values by formatted representation.
func (s ValueSet) Values() []Value {
	var tris []Tristate
	var rest []Value
	for v := range s {
		if t, ok := v.(Tristate); ok {
			tris = append(tris, t)
		} else {
			rest = append(rest, v)
		}
	}
	sort.Slice(tris, func(i, j int) bool { return tris[i] < tris[j] })
	sort.Slice(rest, func(i, j int) bool {
		return FormatValueToken(rest[i]) < FormatValueToken(rest[j])
	})
	out := make([]Value, 0, len(tris)+len(rest))
	for _, t := range tris {
		out = append(out, t)
	}
	return append(out, rest...)
}

// String implements the stringer#String method.
func (s ValueSet) String() string {
	var parts []string
	for _, v := range s.Values() {
		parts = append(parts, FormatValueToken(v))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
