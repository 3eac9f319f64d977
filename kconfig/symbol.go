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
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// SymbolType identifies the value type of a Kconfig symbol. The set of
// types is closed: Kconfig defines exactly these and no others.
type SymbolType int

const (
	// SymbolTypeUnknown marks symbols whose type could not be
	// determined. They never accept a value.
	SymbolTypeUnknown SymbolType = iota
	// SymbolTypeTristate symbols take n, m or y.
	SymbolTypeTristate
	// SymbolTypeBoolean symbols take n or y.
	SymbolTypeBoolean
	// SymbolTypeString symbols take a free-form string.
	SymbolTypeString
	// SymbolTypeInt symbols take a base-10 integer.
	SymbolTypeInt
	// SymbolTypeHex symbols take a base-16 integer.
	SymbolTypeHex
)

// String implements the stringer#String method, returning the Kconfig
// name of the type.
func (t SymbolType) String() string {
	switch t {
	case SymbolTypeTristate:
		return "tristate"
	case SymbolTypeBoolean:
		return "boolean"
	case SymbolTypeString:
		return "string"
	case SymbolTypeInt:
		return "int"
	case SymbolTypeHex:
		return "hex"
	}
	return "undef"
}

// IsStringlike reports whether values of this type are scalars that
// are not ordered against tristate visibility values (string, int,
// hex and undef symbols).
func (t SymbolType) IsStringlike() bool {
	switch t {
	case SymbolTypeString, SymbolTypeInt, SymbolTypeHex, SymbolTypeUnknown:
		return true
	}
	return false
}

// SymbolDefault is one "default" clause of a symbol: a value
// expression and an optional condition restricting when it applies.
type SymbolDefault struct {
	Value Expr
	Cond  Expr
}

// Symbol is a single named Kconfig option. The type is fixed when the
// symbol is created and never changes. The dependency expressions are
// nil when the symbol has no such clause, and reference only symbols
// interned in the same table once the link phase has run.
type Symbol struct {
	Name string
	Type SymbolType

	// DirDep is the "depends on" expression.
	DirDep Expr
	// VisDep is the OR-merge of all prompt visibility conditions.
	VisDep Expr
	// RevDep is the "selected by" expression, the union of all
	// selectors. The resolver does not walk it; it is retained for
	// diagnostics.
	RevDep Expr
	// Defaults lists the symbol's default clauses in declaration
	// order. Only set for types where defaults are meaningful.
	Defaults []*SymbolDefault
}

// NewSymbol returns a symbol with the given name and type and no
// dependencies.
func NewSymbol(name string, typ SymbolType) *Symbol {
	return &Symbol{Name: name, Type: typ}
}

// IsTristate reports whether s is a (strictly) tristate symbol, i.e.
// one that may take the value m.
func (s *Symbol) IsTristate() bool {
	return s.Type == SymbolTypeTristate
}

// SupportsDefaults reports whether default clauses are meaningful for
// this symbol's type.
func (s *Symbol) SupportsDefaults() bool {
	return s.Type != SymbolTypeUnknown
}

// reinterpretDep maps a dependency evaluation result into the symbol's
// value domain. Symbols that cannot be modular reinterpret a transient
// m as y.
func (s *Symbol) reinterpretDep(v Tristate) Tristate {
	if v == TriModule && !s.IsTristate() {
		return TriYes
	}
	return v
}

// EvaluateDirDep evaluates the symbol's direct dependency expression
// against env. A symbol without a DirDep is always satisfied (y).
func (s *Symbol) EvaluateDirDep(env ValueMap) Tristate {
	if s.DirDep == nil {
		return TriYes
	}
	return s.reinterpretDep(s.DirDep.Evaluate(env))
}

// EvaluateVisDep evaluates the symbol's prompt visibility expression
// against env. A symbol without a VisDep is always visible (y).
func (s *Symbol) EvaluateVisDep(env ValueMap) Tristate {
	if s.VisDep == nil {
		return TriYes
	}
	return s.reinterpretDep(s.VisDep.Evaluate(env))
}

// EvaluateDep evaluates the combined dependency value of the symbol:
// min(dir_dep, vis_dep), evaluated lazily.
func (s *Symbol) EvaluateDep(env ValueMap) Tristate {
	dep := s.EvaluateDirDep(env)
	if dep == TriNo {
		return dep
	}
	return dep.And(s.EvaluateVisDep(env))
}

// NormalizeValue converts an input value into the symbol's canonical
// value representation, or returns an error if the value is not valid
// for the symbol's type.
func (s *Symbol) NormalizeValue(v Value) (Value, error) {
	switch s.Type {
	case SymbolTypeTristate, SymbolTypeBoolean:
		tri, err := normalizeTristateValue(v)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %v", s.Name, err)
		}
		if tri == TriModule && s.Type == SymbolTypeBoolean {
			return nil, fmt.Errorf("symbol %s: boolean symbol cannot be m", s.Name)
		}
		return tri, nil

	case SymbolTypeString:
		return cast.ToString(v), nil

	case SymbolTypeInt, SymbolTypeHex:
		if tri, ok := v.(Tristate); ok && tri == TriNo {
			// "n" disables the option; it bypasses the int domain.
			return tri, nil
		}
		iv, err := normalizeIntValue(v)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %v", s.Name, err)
		}
		return iv, nil
	}
	return nil, fmt.Errorf("symbol %s has undef type, cannot hold a value", s.Name)
}

func normalizeTristateValue(v Value) (Tristate, error) {
	switch val := v.(type) {
	case Tristate:
		return val, nil
	case bool:
		if val {
			return TriYes, nil
		}
		return TriNo, nil
	case string:
		return ParseTristate(val)
	}
	iv, err := cast.ToIntE(v)
	if err != nil {
		return TriNo, fmt.Errorf("invalid tristate value %v", v)
	}
	if iv < int(TriNo) || iv > int(TriYes) {
		return TriNo, fmt.Errorf("tristate value out of range: %d", iv)
	}
	return Tristate(iv), nil
}

func normalizeIntValue(v Value) (int64, error) {
	if s, ok := v.(string); ok {
		// base 0 admits both decimal and 0x-prefixed input.
		iv, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid int value %q", s)
		}
		return iv, nil
	}
	iv, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int value %v", v)
	}
	return iv, nil
}

// EscapeStringValue escapes the characters of a string symbol value
// that .config files require escaping. The kernel's own writer only
// escapes '#'; quote handling is left to the consuming shell.
func EscapeStringValue(s string) string {
	return strings.ReplaceAll(s, "#", `\#`)
}

// UnescapeStringValue reverses EscapeStringValue.
func UnescapeStringValue(s string) string {
	return strings.ReplaceAll(s, `\#`, "#")
}

// FormatValue renders the symbol with the given value as one .config
// line. optName is the already-converted option name (e.g. with the
// CONFIG_ prefix). Unset values produce the "is not set" marker line.
func (s *Symbol) FormatValue(v Value, optName string) string {
	if !ValueIsSet(v) {
		return fmt.Sprintf("# %s is not set", optName)
	}
	switch s.Type {
	case SymbolTypeString:
		return fmt.Sprintf("%s=\"%s\"", optName, EscapeStringValue(cast.ToString(v)))
	case SymbolTypeHex:
		return fmt.Sprintf("%s=%#x", optName, v)
	case SymbolTypeInt:
		return fmt.Sprintf("%s=%d", optName, v)
	}
	return fmt.Sprintf("%s=%v", optName, v)
}

// String implements the stringer#String method.
func (s *Symbol) String() string {
	return fmt.Sprintf("%s<%s>", s.Type, s.Name)
}

// UnpackValueString converts the value part of a .config line into a
// typed value, detecting the value type along the way. The type can
// be used to create a symbol for options that are not in the table.
func UnpackValueString(in string) (SymbolType, Value, error) {
	if in == "" {
		return SymbolTypeUnknown, nil, fmt.Errorf("empty value")
	}

	if tri, err := ParseTristate(in); err == nil {
		return SymbolTypeTristate, tri, nil
	}

	if len(in) > 1 && (in[0] == '"' || in[0] == '\'') && in[0] == in[len(in)-1] {
		return SymbolTypeString, UnescapeStringValue(in[1 : len(in)-1]), nil
	}

	if iv, err := strconv.ParseInt(in, 10, 64); err == nil {
		return SymbolTypeInt, iv, nil
	}
	if iv, err := strconv.ParseInt(strings.TrimPrefix(in, "0x"), 16, 64); err == nil {
		return SymbolTypeHex, iv, nil
	}

	return SymbolTypeUnknown, nil, fmt.Errorf("cannot determine value type of %q", in)
}
