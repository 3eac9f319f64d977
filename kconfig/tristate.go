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

// Package kconfig implements the Kconfig symbol model used for kernel
// configuration generation: tristate logic, typed symbols and their
// dependency expressions, the symbol table, and the .config store.
package kconfig

import "fmt"

// Tristate is a three-valued Kconfig symbol value with the total
// order n < m < y. Conjunction is min, disjunction is max and
// negation mirrors the value around m.
type Tristate int

const (
	// TriNo is the "n" (disabled) value.
	TriNo Tristate = iota
	// TriModule is the "m" (build as module) value.
	TriModule
	// TriYes is the "y" (built-in) value.
	TriYes
)

// And returns the conjunction of t and o, i.e. min(t, o).
func (t Tristate) And(o Tristate) Tristate {
	if o < t {
		return o
	}
	return t
}

// Or returns the disjunction of t and o, i.e. max(t, o).
func (t Tristate) Or(o Tristate) Tristate {
	if o > t {
		return o
	}
	return t
}

// Invert returns the negation of t: y - t.
func (t Tristate) Invert() Tristate {
	return TriYes - t
}

// Bool reports whether t is truthy, i.e. not TriNo.
func (t Tristate) Bool() bool {
	return t != TriNo
}

// String implements the stringer#String method.
func (t Tristate) String() string {
	switch t {
	case TriNo:
		return "n"
	case TriModule:
		return "m"
	case TriYes:
		return "y"
	}
	return fmt.Sprintf("Tristate(%d)", int(t))
}

// ParseTristate converts the .config representation of a tristate
// value ("n", "m" or "y") into its Tristate value.
func ParseTristate(s string) (Tristate, error) {
	switch s {
	case "n":
		return TriNo, nil
	case "m":
		return TriModule, nil
	case "y":
		return TriYes, nil
	}
	return TriNo, fmt.Errorf("invalid tristate value %q", s)
}

// TristateSet is a set of tristate values, stored as a bitmask. The
// zero value is the empty set.
type TristateSet uint8

// Predefined value sets used by expression solving and the resolver.
const (
	TristateSetNone TristateSet = 0
	TristateSetN                = 1 << TriNo
	TristateSetM                = 1 << TriModule
	TristateSetY                = 1 << TriYes
	TristateSetNM               = TristateSetN | TristateSetM
	TristateSetYM               = TristateSetY | TristateSetM
	TristateSetAll              = TristateSetN | TristateSetM | TristateSetY
)

// NewTristateSet returns the set containing the given values.
func NewTristateSet(values ...Tristate) TristateSet {
	var s TristateSet
	for _, v := range values {
		s |= 1 << v
	}
	return s
}

// Contains reports whether v is a member of s.
func (s TristateSet) Contains(v Tristate) bool {
	return s&(1<<v) != 0
}

// Empty reports whether s contains no values.
func (s TristateSet) Empty() bool {
	return s == 0
}

// Intersect returns the intersection of s and o.
func (s TristateSet) Intersect(o TristateSet) TristateSet {
	return s & o
}

// Union returns the union of s and o.
func (s TristateSet) Union(o TristateSet) TristateSet {
	return s | o
}

// Invert returns the set of negations of the members of s.
func (s TristateSet) Invert() TristateSet {
	var out TristateSet
	for _, v := range s.Values() {
		out |= 1 << v.Invert()
	}
	return out
}

// Min returns the smallest member of s. The second return value is
// false if s is empty.
func (s TristateSet) Min() (Tristate, bool) {
	for v := TriNo; v <= TriYes; v++ {
		if s.Contains(v) {
			return v, true
		}
	}
	return TriNo, false
}

// Max returns the largest member of s. The second return value is
// false if s is empty.
func (s TristateSet) Max() (Tristate, bool) {
	for v := TriYes; v >= TriNo; v-- {
		if s.Contains(v) {
			return v, true
		}
	}
	return TriNo, false
}

// UpwardClosed reports whether s is closed under taking larger values.
func (s TristateSet) UpwardClosed() bool {
	min, ok := s.Min()
	if !ok {
		return false
	}
	for v := min; v <= TriYes; v++ {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// DownwardClosed reports whether s is closed under taking smaller values.
func (s TristateSet) DownwardClosed() bool {
	max, ok := s.Max()
	if !ok {
		return false
	}
	for v := TriNo; v <= max; v++ {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// Values returns the members of s in ascending order.
func (s TristateSet) Values() []Tristate {
	var out []Tristate
	for v := TriNo; v <= TriYes; v++ {
		if s.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// String implements the stringer#String method.
func (s TristateSet) String() string {
	out := "{"
	for i, v := range s.Values() {
		if i > 0 {
			out += ","
		}
		out += v.String()
	}
	return out + "}"
}
