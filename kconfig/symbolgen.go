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
	"sort"

	"github.com/golang/glog"

	"github.com/dywisor/kernelconfig/util"
)

// ExprViewKind identifies the node kind of an ExprView.
type ExprViewKind int

// ExprView node kinds, mirroring the external parser's expression
// structs.
const (
	EVNone ExprViewKind = iota
	EVSymbol
	EVAnd
	EVOr
	EVNot
	EVEqual
	EVUnequal
	EVLess
	EVLessEqual
	EVGreater
	EVGreaterEqual
)

// ExprView is an opaque expression node handed in by the external
// Kconfig parser. And/Or nodes are binary; Not uses Left only;
// comparison operands are symbol names.
type ExprView interface {
	Kind() ExprViewKind
	// SymbolName returns the referenced name for EVSymbol nodes and
	// the operand names via Left()/Right() for comparisons. Nameless
	// (meta) symbols return "".
	SymbolName() string
	Left() ExprView
	Right() ExprView
}

// PromptView is one prompt of a symbol together with its visibility
// condition.
type PromptView interface {
	Prompt() string
	Visibility() ExprView
}

// DefaultView is one default clause of a symbol.
type DefaultView interface {
	Value() ExprView
	Condition() ExprView
}

// SymbolView is an opaque symbol handed in by the external Kconfig
// parser. Symbols with an empty name (choice groups) are discarded.
type SymbolView interface {
	Name() string
	Type() SymbolType
	DirDep() ExprView
	RevDep() ExprView
	Prompts() []PromptView
	Defaults() []DefaultView
}

// defaultSymbolConstants returns the names that resolve to interned
// constants instead of symbols during the link phase.
func defaultSymbolConstants() map[string]Value {
	return map[string]Value{
		"n": TriNo,
		"m": TriModule,
		"y": TriYes,
		"0": int64(0),
		"1": int64(1),
	}
}

// symbolDeps holds a symbol's unlinked dependency expressions between
// the import and link phases.
type symbolDeps struct {
	dirDep   Expr
	visDep   Expr
	revDep   Expr
	defaults []*SymbolDefault
}

// SymbolGenerator builds a SymbolTable from the external parser's
// symbol views: a first pass creates symbols and converts expression
// views, a second pass links name references against the table and
// defaults the names that remain missing.
type SymbolGenerator struct {
	symbols *SymbolTable
	deps    map[*Symbol]*symbolDeps
}

// NewSymbolGenerator returns an empty generator.
func NewSymbolGenerator() *SymbolGenerator {
	return &SymbolGenerator{
		symbols: NewSymbolTable(),
		deps:    make(map[*Symbol]*symbolDeps),
	}
}

// Generate imports the given symbol views and returns the linked
// symbol table. The expression interning caches are scoped to this
// call; they hold references into the table being built.
func (g *SymbolGenerator) Generate(views []SymbolView) (*SymbolTable, error) {
	ClearExprCaches()
	defer ClearExprCaches()

	var errs util.Errors
	for _, view := range views {
		errs = util.AppendErr(errs, g.prepareSymbol(view))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	g.linkDeps()
	return g.symbols, nil
}

// prepareSymbol creates the symbol for one view and converts its
// dependency expression views. Nameless symbols are skipped.
func (g *SymbolGenerator) prepareSymbol(view SymbolView) error {
	if view.Name() == "" {
		return nil
	}
	sym := NewSymbol(view.Name(), view.Type())
	if err := g.symbols.Add(sym); err != nil {
		return err
	}

	deps := &symbolDeps{
		dirDep: g.buildExpr(view.DirDep()),
		revDep: g.buildExpr(view.RevDep()),
	}

	// The visibility dependency is the OR-merge of all prompt
	// conditions; a prompt without a condition makes the symbol
	// unconditionally visible.
	var vis []Expr
	unconditional := false
	for _, prompt := range view.Prompts() {
		cond := g.buildExpr(prompt.Visibility())
		if cond == nil {
			unconditional = true
			break
		}
		vis = append(vis, cond)
	}
	switch {
	case unconditional:
		deps.visDep = NewConst(TriYes)
	case len(vis) == 1:
		deps.visDep = vis[0]
	case len(vis) > 1:
		deps.visDep = NewOr(vis...)
	}

	if sym.SupportsDefaults() {
		for _, def := range view.Defaults() {
			value := g.buildExpr(def.Value())
			cond := g.buildExpr(def.Condition())
			if value != nil || cond != nil {
				deps.defaults = append(deps.defaults, &SymbolDefault{Value: value, Cond: cond})
			}
		}
	}

	g.deps[sym] = deps
	return nil
}

// buildExpr recursively converts an expression view into an Expr with
// by-name leaves. Nameless symbol references become constant n.
func (g *SymbolGenerator) buildExpr(view ExprView) Expr {
	if view == nil || view.Kind() == EVNone {
		return nil
	}

	switch view.Kind() {
	case EVSymbol:
		return g.buildSymbolLeaf(view)

	case EVAnd:
		return NewAnd(g.buildExpr(view.Left()), g.buildExpr(view.Right()))

	case EVOr:
		return NewOr(g.buildExpr(view.Left()), g.buildExpr(view.Right()))

	case EVNot:
		return NewNot(g.buildExpr(view.Left()))

	case EVEqual, EVUnequal, EVLess, EVLessEqual, EVGreater, EVGreaterEqual:
		return NewCmp(
			cmpOpForViewKind(view.Kind()),
			g.buildSymbolLeaf(view.Left()),
			g.buildSymbolLeaf(view.Right()),
		)
	}
	glog.Errorf("Unhandled expression view kind %d", view.Kind())
	return NewConst(TriNo)
}

func (g *SymbolGenerator) buildSymbolLeaf(view ExprView) Expr {
	if view == nil || view.SymbolName() == "" {
		// Meta symbols (choice groups) collapse to constant n.
		return NewConst(TriNo)
	}
	return NewSymbolName(view.SymbolName())
}

func cmpOpForViewKind(kind ExprViewKind) CmpOp {
	switch kind {
	case EVUnequal:
		return OpNE
	case EVLess:
		return OpLT
	case EVLessEqual:
		return OpLE
	case EVGreater:
		return OpGT
	case EVGreaterEqual:
		return OpGE
	}
	return OpEQ
}

// constifyMissingName converts a missing symbol name into a constant.
// Names that already denote a value keep that value; everything else
// defaults to tristate n. String comparisons are not supported, so
// quoted values also default to n.
func constifyMissingName(name string) Value {
	vtype, value, err := UnpackValueString(name)
	if err != nil {
		return TriNo
	}
	if vtype == SymbolTypeString {
		glog.Warningf("String comparisons are not allowed: %q", value)
		return TriNo
	}
	return value
}

// linkDeps expands name references in every collected dependency
// expression, defaults the names that stay missing, then simplifies
// and assigns the expressions to their symbols.
func (g *SymbolGenerator) linkDeps() {
	constants := defaultSymbolConstants()

	glog.V(1).Info("Expanding dependency expressions")
	missing := g.expandOnce(constants)

	if len(missing) > 0 {
		glog.Infof("Missing %d symbols, defaulting them", len(missing))

		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := constifyMissingName(name)
			glog.V(1).Infof("Defaulting symbol %s to %s", name, FormatValueToken(value))
			constants[name] = value
		}

		glog.V(1).Info("Expanding dependency expressions again")
		if still := g.expandOnce(constants); len(still) > 0 {
			panic("second expression expansion reported missing symbols")
		}
	}

	simplify := func(e Expr) Expr {
		if e == nil {
			return nil
		}
		return e.Simplify()
	}
	for sym, deps := range g.deps {
		sym.DirDep = simplify(deps.dirDep)
		sym.VisDep = simplify(deps.visDep)
		sym.RevDep = simplify(deps.revDep)
		for _, def := range deps.defaults {
			def.Value = simplify(def.Value)
			def.Cond = simplify(def.Cond)
		}
		if len(deps.defaults) > 0 {
			sym.Defaults = deps.defaults
		}
	}
}

// expandOnce links every collected expression once and returns the
// union of missing names.
func (g *SymbolGenerator) expandOnce(constants map[string]Value) map[string]bool {
	nameMap := g.symbols.NameMap()
	missing := make(map[string]bool)

	expand := func(e Expr) Expr {
		if e == nil {
			return nil
		}
		return e.expandSymbols(nameMap, constants, missing)
	}
	for _, deps := range g.deps {
		deps.dirDep = expand(deps.dirDep)
		deps.visDep = expand(deps.visDep)
		deps.revDep = expand(deps.revDep)
		for _, def := range deps.defaults {
			def.Value = expand(def.Value)
			def.Cond = expand(def.Cond)
		}
	}
	return missing
}
