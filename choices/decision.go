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

// Package choices accumulates user decisions about Kconfig options
// and commits them through the dependency resolver. A decision keeps
// track of all requested values for one symbol; successive requests
// may only narrow it.
package choices

import (
	"fmt"
	"strings"

	"github.com/golang/glog"

	"github.com/dywisor/kernelconfig/kconfig"
)

// Decision accumulates the user-requested values for a single symbol.
// All operations report success; failures (type mismatches, value
// conflicts) are logged and leave the previous state untouched.
type Decision interface {
	// Symbol returns the symbol this decision controls.
	Symbol() *kconfig.Symbol

	// Values returns the acceptable values accumulated so far; ok is
	// false when no decision has been made.
	Values() (values kconfig.ValueSet, ok bool)

	Disable(source string) bool
	Module(source string) bool
	Builtin(source string) bool
	BuiltinOrModule(source string) bool
	SetTo(value kconfig.Value, source string) bool
	Append(value kconfig.Value, source string) bool
	Add(value kconfig.Value, source string) bool
}

// NewDecision creates the decision object matching the symbol's type.
// defaultValue is the symbol's base-config value, or nil when unset.
func NewDecision(sym *kconfig.Symbol, defaultValue kconfig.Value) (Decision, error) {
	base := decisionBase{sym: sym, def: defaultValue}
	switch sym.Type {
	case kconfig.SymbolTypeTristate:
		return &tristateDecision{restrictionDecision{decisionBase: base}}, nil
	case kconfig.SymbolTypeBoolean:
		return &booleanDecision{restrictionDecision{decisionBase: base}}, nil
	case kconfig.SymbolTypeString:
		return &stringDecision{scalarDecision{decisionBase: base}}, nil
	case kconfig.SymbolTypeInt, kconfig.SymbolTypeHex:
		return &intDecision{scalarDecision{decisionBase: base}}, nil
	}
	return nil, fmt.Errorf("no decision type for %s symbol %s", sym.Type, sym.Name)
}

// decisionBase carries the state shared by all decision shapes.
type decisionBase struct {
	sym *kconfig.Symbol
	// def is the symbol's value in the base configuration, used for
	// reference in logs and as the append/add seed.
	def kconfig.Value
}

// Symbol implements Decision.
func (d *decisionBase) Symbol() *kconfig.Symbol { return d.sym }

// notSupported logs and refuses an operation the symbol's type does
// not offer.
func (d *decisionBase) notSupported(op, source string) bool {
	glog.Errorf("%s%s-type option %s does not support %s", logSource(source),
		d.sym.Type, d.sym.Name, op)
	return false
}

func logSource(source string) string {
	if source == "" {
		return ""
	}
	return source + ": "
}

// restrictionDecision holds a monotone-narrowing set of acceptable
// tristate values. The zero state is unrestricted.
type restrictionDecision struct {
	decisionBase
	values     kconfig.TristateSet
	restricted bool
}

// Values implements Decision.
func (d *restrictionDecision) Values() (kconfig.ValueSet, bool) {
	if !d.restricted {
		return nil, false
	}
	return kconfig.TristateSetToValues(d.values), true
}

// updateRestrictions intersects a new request with the accumulated
// restriction. A first request replaces the unrestricted state; an
// equal request is a no-op; a narrower request restricts further; a
// request outside the current set is a conflict and is refused.
func (d *restrictionDecision) updateRestrictions(requested kconfig.TristateSet, source string) bool {
	for _, v := range requested.Values() {
		if _, err := d.sym.NormalizeValue(v); err != nil {
			glog.Errorf("%sInvalid value for %s: %v", logSource(source), d.sym.Name, err)
			return false
		}
	}

	if !d.restricted {
		glog.V(1).Infof("%sSetting decision for %s to %s (overrides default value %s)",
			logSource(source), d.sym.Name, requested, d.defaultString())
		d.values = requested
		d.restricted = true
		return true
	}

	switch {
	case requested == d.values:
		glog.V(1).Infof("%sKeeping previous decision %s for %s",
			logSource(source), requested, d.sym.Name)
		return true

	case d.values.Intersect(requested) == requested:
		// A proper subset further restricts the decision.
		glog.V(1).Infof("%sUpdating decision for %s to %s (was %s)",
			logSource(source), d.sym.Name, requested, d.values)
		d.values = requested
		return true
	}

	// The request permits values the previous decision ruled out.
	glog.Warningf("%sDecision %s for %s conflicts with previous decision %s",
		logSource(source), requested, d.sym.Name, d.values)
	return false
}

func (d *restrictionDecision) defaultString() string {
	if d.def == nil {
		return "<unset>"
	}
	return kconfig.FormatValueToken(d.def)
}

// Disable implements Decision.
func (d *restrictionDecision) Disable(source string) bool {
	return d.updateRestrictions(kconfig.TristateSetN, source)
}

// Builtin implements Decision.
func (d *restrictionDecision) Builtin(source string) bool {
	return d.updateRestrictions(kconfig.TristateSetY, source)
}

// SetTo implements Decision.
func (d *restrictionDecision) SetTo(value kconfig.Value, source string) bool {
	normval, err := d.sym.NormalizeValue(value)
	if err != nil {
		glog.Errorf("%sInvalid value for %s: %v", logSource(source), d.sym.Name, err)
		return false
	}
	return d.updateRestrictions(kconfig.NewTristateSet(normval.(kconfig.Tristate)), source)
}

// Append implements Decision; appending contradicts restriction
// semantics.
func (d *restrictionDecision) Append(value kconfig.Value, source string) bool {
	return d.notSupported("append", source)
}

// Add implements Decision; adding contradicts restriction semantics.
func (d *restrictionDecision) Add(value kconfig.Value, source string) bool {
	return d.notSupported("add", source)
}

// tristateDecision is the restriction decision of tristate symbols.
type tristateDecision struct {
	restrictionDecision
}

// Module implements Decision.
func (d *tristateDecision) Module(source string) bool {
	return d.updateRestrictions(kconfig.TristateSetM, source)
}

// BuiltinOrModule implements Decision.
func (d *tristateDecision) BuiltinOrModule(source string) bool {
	return d.updateRestrictions(kconfig.TristateSetYM, source)
}

// booleanDecision is the restriction decision of boolean symbols.
type booleanDecision struct {
	restrictionDecision
}

// Module implements Decision; boolean symbols cannot be modular.
func (d *booleanDecision) Module(source string) bool {
	return d.notSupported("module", source)
}

// BuiltinOrModule implements Decision; for boolean symbols this
// degrades to builtin.
func (d *booleanDecision) BuiltinOrModule(source string) bool {
	return d.Builtin(source)
}

// scalarDecision holds a single assigned value (string, int or hex
// symbols). The zero state is unassigned.
type scalarDecision struct {
	decisionBase
	value    kconfig.Value
	assigned bool
}

// Values implements Decision.
func (d *scalarDecision) Values() (kconfig.ValueSet, bool) {
	if !d.assigned {
		return nil, false
	}
	return kconfig.NewValueSet(d.value), true
}

func (d *scalarDecision) setValue(value kconfig.Value, source string) bool {
	if d.assigned && d.value != value {
		glog.V(1).Infof("%sOverwriting decision for %s: %s (was %s)",
			logSource(source), d.sym.Name,
			kconfig.FormatValueToken(value), kconfig.FormatValueToken(d.value))
	}
	d.value = value
	d.assigned = true
	return true
}

// Disable implements Decision; it bypasses the value domain check.
func (d *scalarDecision) Disable(source string) bool {
	return d.setValue(kconfig.TriNo, source)
}

// Module implements Decision.
func (d *scalarDecision) Module(source string) bool {
	return d.notSupported("module", source)
}

// Builtin implements Decision.
func (d *scalarDecision) Builtin(source string) bool {
	return d.notSupported("builtin", source)
}

// BuiltinOrModule implements Decision.
func (d *scalarDecision) BuiltinOrModule(source string) bool {
	return d.notSupported("builtin_or_module", source)
}

// SetTo implements Decision.
func (d *scalarDecision) SetTo(value kconfig.Value, source string) bool {
	normval, err := d.sym.NormalizeValue(value)
	if err != nil {
		glog.Errorf("%sInvalid value for %s: %v", logSource(source), d.sym.Name, err)
		return false
	}
	return d.setValue(normval, source)
}

// extendBase validates value for an append/add operation and returns
// the value to extend: the current decision if one was made, else the
// base-config default. ok is false when the operation must be
// refused.
func (d *scalarDecision) extendBase(value kconfig.Value, source string) (prev, normval kconfig.Value, ok bool) {
	normval, err := d.sym.NormalizeValue(value)
	if err != nil {
		glog.Errorf("%sInvalid value for %s: %v", logSource(source), d.sym.Name, err)
		return nil, nil, false
	}
	if tri, isTri := normval.(kconfig.Tristate); isTri && tri == kconfig.TriNo {
		glog.Errorf("%sCannot add/append n to %s", logSource(source), d.sym.Name)
		return nil, nil, false
	}

	switch {
	case d.assigned && d.value == kconfig.Value(kconfig.TriNo):
		glog.Errorf("%sCannot add/append %s to disabled option %s",
			logSource(source), kconfig.FormatValueToken(normval), d.sym.Name)
		return nil, nil, false
	case d.assigned:
		return d.value, normval, true
	case d.def == kconfig.Value(kconfig.TriNo):
		return nil, normval, true
	default:
		return d.def, normval, true
	}
}

// intDecision is the scalar decision of int and hex symbols.
type intDecision struct {
	scalarDecision
}

// Append implements Decision; int symbols have no append semantics.
func (d *intDecision) Append(value kconfig.Value, source string) bool {
	return d.notSupported("append", source)
}

// Add implements Decision: arithmetic addition onto the current or
// default value.
func (d *intDecision) Add(value kconfig.Value, source string) bool {
	prev, normval, ok := d.extendBase(value, source)
	if !ok {
		return false
	}
	base := int64(0)
	if iv, isInt := prev.(int64); isInt {
		base = iv
	}
	return d.setValue(base+normval.(int64), source)
}

// stringDecision is the scalar decision of string symbols.
type stringDecision struct {
	scalarDecision
}

// Append implements Decision: whitespace-separated concatenation onto
// the current or default value.
func (d *stringDecision) Append(value kconfig.Value, source string) bool {
	prev, normval, ok := d.extendBase(value, source)
	if !ok {
		return false
	}
	prevStr, _ := prev.(string)
	if prevStr == "" {
		return d.setValue(normval, source)
	}
	glog.V(1).Infof("%sAppending %q to decision %q for %s",
		logSource(source), normval, prevStr, d.sym.Name)
	return d.setValue(prevStr+" "+normval.(string), source)
}

// Add implements Decision: word union; only words not already present
// are appended.
func (d *stringDecision) Add(value kconfig.Value, source string) bool {
	prev, normval, ok := d.extendBase(value, source)
	if !ok {
		return false
	}
	words := dedupWords(strings.Fields(normval.(string)))

	prevStr, _ := prev.(string)
	if prevStr == "" {
		return d.setValue(strings.Join(words, " "), source)
	}

	present := make(map[string]bool)
	for _, w := range strings.Fields(prevStr) {
		present[w] = true
	}
	var fresh []string
	for _, w := range words {
		if !present[w] {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) == 0 {
		glog.V(1).Infof("%sKeeping decision %q for %s", logSource(source), prevStr, d.sym.Name)
		// The previous value may originate from the default; the
		// decision still has to be made.
		return d.setValue(prevStr, source)
	}
	glog.V(1).Infof("%sAdding %q to decision %q for %s",
		logSource(source), strings.Join(fresh, " "), prevStr, d.sym.Name)
	return d.setValue(prevStr+" "+strings.Join(fresh, " "), source)
}

func dedupWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
