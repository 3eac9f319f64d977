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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExprEvaluate(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)
	b := NewSymbol("B", SymbolTypeTristate)
	s := NewSymbol("S", SymbolTypeString)
	defer ClearExprCaches()

	tests := []struct {
		name string
		in   Expr
		env  ValueMap
		want Tristate
	}{{
		name: "const tristate",
		in:   NewConst(TriModule),
		want: TriModule,
	}, {
		name: "const truthy string",
		in:   NewConst("abc"),
		want: TriYes,
	}, {
		name: "const falsy int",
		in:   NewConst(int64(0)),
		want: TriNo,
	}, {
		name: "missing symbol is n",
		in:   NewSymbolRef(a),
		env:  ValueMap{},
		want: TriNo,
	}, {
		name: "symbol value",
		in:   NewSymbolRef(a),
		env:  ValueMap{a: TriModule},
		want: TriModule,
	}, {
		name: "string symbol coerces",
		in:   NewSymbolRef(s),
		env:  ValueMap{s: "quiet"},
		want: TriYes,
	}, {
		name: "not",
		in:   NewNot(NewSymbolRef(a)),
		env:  ValueMap{a: TriModule},
		want: TriModule,
	}, {
		name: "and is min",
		in:   NewAnd(NewSymbolRef(a), NewSymbolRef(b)),
		env:  ValueMap{a: TriYes, b: TriModule},
		want: TriModule,
	}, {
		name: "and short-circuits on n",
		in:   NewAnd(NewConst(TriNo), NewSymbolRef(a)),
		env:  ValueMap{a: TriYes},
		want: TriNo,
	}, {
		name: "empty and is n",
		in:   NewAnd(),
		want: TriNo,
	}, {
		name: "or is max",
		in:   NewOr(NewSymbolRef(a), NewSymbolRef(b)),
		env:  ValueMap{a: TriNo, b: TriModule},
		want: TriModule,
	}, {
		name: "empty or is y",
		in:   NewOr(),
		want: TriYes,
	}, {
		name: "cmp eq on raw values",
		in:   NewCmp(OpEQ, NewSymbolRef(a), NewConst(TriModule)),
		env:  ValueMap{a: TriModule},
		want: TriYes,
	}, {
		name: "cmp ne",
		in:   NewCmp(OpNE, NewSymbolRef(a), NewConst(TriYes)),
		env:  ValueMap{a: TriModule},
		want: TriYes,
	}, {
		name: "cmp lt string",
		in:   NewCmp(OpLT, NewSymbolRef(s), NewConst("zzz")),
		env:  ValueMap{s: "abc"},
		want: TriYes,
	}, {
		name: "cmp raw not coerced",
		in:   NewCmp(OpEQ, NewSymbolRef(s), NewConst("quiet")),
		env:  ValueMap{s: "quiet"},
		want: TriYes,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Evaluate(tt.env); got != tt.want {
				t.Errorf("Evaluate(): got %s, want %s", got, tt.want)
			}
		})
	}
}

// enumerateEnvs yields every tristate assignment of the given symbols.
func enumerateEnvs(syms []*Symbol) []ValueMap {
	envs := []ValueMap{{}}
	for _, sym := range syms {
		var next []ValueMap
		for _, env := range envs {
			for _, v := range allTristates {
				extended := make(ValueMap, len(env)+1)
				for s, val := range env {
					extended[s] = val
				}
				extended[sym] = v
				next = append(next, extended)
			}
		}
		envs = next
	}
	return envs
}

func TestSimplifyPreservesEvaluation(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)
	b := NewSymbol("B", SymbolTypeTristate)
	defer ClearExprCaches()

	exprs := []Expr{
		NewAnd(NewSymbolRef(a), NewConst(TriYes)),
		NewAnd(NewSymbolRef(a), NewConst(TriNo), NewSymbolRef(b)),
		NewAnd(NewSymbolRef(a), NewSymbolRef(a)),
		NewOr(NewSymbolRef(a), NewConst(TriNo)),
		NewOr(NewSymbolRef(a), NewConst(TriYes)),
		NewOr(NewConst(TriModule), NewConst(TriNo)),
		NewNot(NewNot(NewSymbolRef(a))),
		NewNot(NewConst(TriModule)),
		NewNot(NewAnd(NewSymbolRef(a), NewSymbolRef(b))),
		NewCmp(OpEQ, NewConst(TriYes), NewConst(TriYes)),
		NewCmp(OpLE, NewSymbolRef(a), NewConst(TriModule)),
		NewAnd(NewOr(NewSymbolRef(a), NewSymbolRef(b)), NewConst(TriModule)),
	}

	for _, expr := range exprs {
		simplified := expr.Simplify()
		for _, env := range enumerateEnvs([]*Symbol{a, b}) {
			if got, want := simplified.Evaluate(env), expr.Evaluate(env); got != want {
				t.Errorf("simplify changed evaluation of %s under A=%v B=%v: got %s, want %s",
					expr, env[a], env[b], got, want)
			}
		}
	}
}

func TestSimplifyShapes(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)
	defer ClearExprCaches()

	tests := []struct {
		name string
		in   Expr
		want string
	}{{
		name: "n kills and",
		in:   NewAnd(NewSymbolRef(a), NewConst(TriNo)),
		want: "n",
	}, {
		name: "y vanishes from and",
		in:   NewAnd(NewSymbolRef(a), NewConst(TriYes)),
		want: "A",
	}, {
		name: "y kills or",
		in:   NewOr(NewSymbolRef(a), NewConst(TriYes)),
		want: "y",
	}, {
		name: "n vanishes from or",
		in:   NewOr(NewSymbolRef(a), NewConst(TriNo)),
		want: "A",
	}, {
		name: "double negation",
		in:   NewNot(NewNot(NewSymbolRef(a))),
		want: "A",
	}, {
		name: "constant folding",
		in:   NewAnd(NewConst(TriYes), NewConst(TriModule)),
		want: "m",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Simplify().String(); got != tt.want {
				t.Errorf("Simplify(%s): got %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// solutionNames flattens a cache into symbol-name keyed value sets
// for comparison.
func solutionNames(c *SolutionCache) []map[string]string {
	var out []map[string]string
	for _, sol := range c.Solutions() {
		m := make(map[string]string, len(sol))
		for sym, values := range sol {
			m[sym.Name] = values.String()
		}
		out = append(out, m)
	}
	return out
}

func TestFindSolution(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)
	b := NewSymbol("B", SymbolTypeTristate)
	defer ClearExprCaches()

	tests := []struct {
		name     string
		in       Expr
		inWant   TristateSet
		wantOK   bool
		wantSols []map[string]string
	}{{
		name:     "symbol takes wanted values",
		in:       NewSymbolRef(a),
		inWant:   TristateSetYM,
		wantOK:   true,
		wantSols: []map[string]string{{"A": "{m,y}"}},
	}, {
		name:     "and constrains both operands",
		in:       NewAnd(NewSymbolRef(a), NewSymbolRef(b)),
		inWant:   TristateSetYM,
		wantOK:   true,
		wantSols: []map[string]string{{"A": "{m,y}", "B": "{m,y}"}},
	}, {
		name:     "and wants y exactly",
		in:       NewAnd(NewSymbolRef(a), NewSymbolRef(b)),
		inWant:   TristateSetY,
		wantOK:   true,
		wantSols: []map[string]string{{"A": "{y}", "B": "{y}"}},
	}, {
		name:   "or offers alternatives",
		in:     NewOr(NewSymbolRef(a), NewSymbolRef(b)),
		inWant: TristateSetYM,
		wantOK: true,
		wantSols: []map[string]string{
			{"A": "{m,y}"},
			{"B": "{m,y}"},
		},
	}, {
		name:     "not inverts the want set",
		in:       NewNot(NewSymbolRef(a)),
		inWant:   TristateSetY,
		wantOK:   true,
		wantSols: []map[string]string{{"A": "{n}"}},
	}, {
		name:     "negated and distributes over operands",
		in:       NewNot(NewAnd(NewSymbolRef(a), NewSymbolRef(b))),
		inWant:   TristateSetY,
		wantOK:   true,
		wantSols: []map[string]string{{"A": "{n}"}, {"B": "{n}"}},
	}, {
		name:   "infeasible constant",
		in:     NewConst(TriNo),
		inWant: TristateSetYM,
		wantOK: false,
	}, {
		name:     "feasible constant needs nothing",
		in:       NewConst(TriYes),
		inWant:   TristateSetYM,
		wantOK:   true,
		wantSols: []map[string]string{{}},
	}, {
		name:     "comparison restricts symbol",
		in:       NewCmp(OpEQ, NewSymbolRef(a), NewConst(TriYes)),
		inWant:   TristateSetY,
		wantOK:   true,
		wantSols: []map[string]string{{"A": "{y}"}},
	}, {
		name:     "negated comparison",
		in:       NewCmp(OpNE, NewSymbolRef(a), NewConst(TriYes)),
		inWant:   TristateSetY,
		wantOK:   true,
		wantSols: []map[string]string{{"A": "{n,m}"}},
	}, {
		name:   "conflicting conjunction",
		in:     NewAnd(NewSymbolRef(a), NewNot(NewSymbolRef(a))),
		inWant: TristateSetY,
		wantOK: false,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.FindSolution(tt.inWant)
			if ok != tt.wantOK {
				t.Fatalf("FindSolution(%s, %s): ok %v, want %v", tt.in, tt.inWant, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tt.wantSols, solutionNames(got)); diff != "" {
				t.Errorf("FindSolution(%s, %s) solutions (-want +got):\n%s", tt.in, tt.inWant, diff)
			}
		})
	}
}

func TestEvaluateSolution(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)
	b := NewSymbol("B", SymbolTypeTristate)
	defer ClearExprCaches()

	tests := []struct {
		name      string
		in        Expr
		env       ValueMap
		inWant    TristateSet
		wantOK    bool
		wantNames []string
	}{{
		name:      "satisfied symbol pins itself",
		in:        NewSymbolRef(a),
		env:       ValueMap{a: TriYes},
		inWant:    TristateSetYM,
		wantOK:    true,
		wantNames: []string{"A"},
	}, {
		name:   "unsatisfied symbol",
		in:     NewSymbolRef(a),
		env:    ValueMap{a: TriNo},
		inWant: TristateSetYM,
		wantOK: false,
	}, {
		name:      "and pins all operands",
		in:        NewAnd(NewSymbolRef(a), NewSymbolRef(b)),
		env:       ValueMap{a: TriYes, b: TriModule},
		inWant:    TristateSetYM,
		wantOK:    true,
		wantNames: []string{"A", "B"},
	}, {
		name:      "or pins only the satisfying branch",
		in:        NewOr(NewSymbolRef(a), NewSymbolRef(b)),
		env:       ValueMap{a: TriYes, b: TriNo},
		inWant:    TristateSetYM,
		wantOK:    true,
		wantNames: []string{"A"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.EvaluateSolution(tt.env, tt.inWant)
			if ok != tt.wantOK {
				t.Fatalf("EvaluateSolution: ok %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			var names []string
			for sym := range got {
				names = append(names, sym.Name)
			}
			if diff := cmp.Diff(tt.wantNames, names, sortStrings); diff != "" {
				t.Errorf("EvaluateSolution pins (-want +got):\n%s", diff)
			}
		})
	}
}

var sortStrings = cmp.Transformer("sort", func(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
})

func TestExprInterning(t *testing.T) {
	defer ClearExprCaches()
	a := NewSymbol("A", SymbolTypeTristate)

	if NewConst(TriYes) != NewConst(TriYes) {
		t.Error("NewConst did not intern equal constants")
	}
	if NewSymbolRef(a) != NewSymbolRef(a) {
		t.Error("NewSymbolRef did not intern equal references")
	}

	before := NewConst(TriYes)
	ClearExprCaches()
	if before == NewConst(TriYes) {
		t.Error("ClearExprCaches did not drop the constant cache")
	}
}

func TestExpandSymbols(t *testing.T) {
	defer ClearExprCaches()
	a := NewSymbol("A", SymbolTypeTristate)
	syms := map[string]*Symbol{"A": a}
	consts := map[string]Value{"y": TriYes}

	expr, missing := ExpandExprSymbols(
		NewAnd(NewSymbolName("A"), NewSymbolName("y"), NewSymbolName("GONE")),
		syms, consts)

	if diff := cmp.Diff(map[string]bool{"GONE": true}, missing); diff != "" {
		t.Errorf("missing names (-want +got):\n%s", diff)
	}

	and, ok := expr.(*AndExpr)
	if !ok {
		t.Fatalf("expanded expression is %T, want *AndExpr", expr)
	}
	if _, ok := and.Operands()[0].(*SymbolRefExpr); !ok {
		t.Errorf("operand 0 is %T, want *SymbolRefExpr", and.Operands()[0])
	}
	if _, ok := and.Operands()[1].(*ConstExpr); !ok {
		t.Errorf("operand 1 is %T, want *ConstExpr", and.Operands()[1])
	}
	if _, ok := and.Operands()[2].(*SymbolNameExpr); !ok {
		t.Errorf("operand 2 is %T, want *SymbolNameExpr", and.Operands()[2])
	}
}

func TestDependentSymbols(t *testing.T) {
	defer ClearExprCaches()
	a := NewSymbol("A", SymbolTypeTristate)
	b := NewSymbol("B", SymbolTypeTristate)

	expr := NewOr(NewAnd(NewSymbolRef(a), NewNot(NewSymbolRef(b))), NewConst(TriYes))
	deps := DependentSymbols(expr)
	if len(deps) != 2 || !deps[a] || !deps[b] {
		t.Errorf("DependentSymbols: got %v, want {A, B}", deps)
	}
	if DependentSymbols(nil) != nil {
		t.Error("DependentSymbols(nil): got non-nil")
	}
}
