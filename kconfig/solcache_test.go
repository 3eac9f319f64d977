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

func TestSolutionCacheUnconstrained(t *testing.T) {
	c := NewSolutionCache()
	if !c.Feasible() {
		t.Fatal("new cache is infeasible")
	}
	if got := len(c.Solutions()); got != 1 {
		t.Fatalf("new cache has %d solutions, want 1", got)
	}
	if got := len(c.Solutions()[0]); got != 0 {
		t.Errorf("new cache's solution has %d entries, want 0", got)
	}
}

func TestSolutionCachePushSymbol(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)

	c := NewSolutionCache()
	if !c.PushSymbol(a, NewValueSet(TriModule, TriYes)) {
		t.Fatal("first push made the cache infeasible")
	}
	if !c.PushSymbol(a, NewValueSet(TriYes)) {
		t.Fatal("narrowing push made the cache infeasible")
	}
	if diff := cmp.Diff([]map[string]string{{"A": "{y}"}}, solutionNames(c)); diff != "" {
		t.Errorf("solutions (-want +got):\n%s", diff)
	}

	if c.PushSymbol(a, NewValueSet(TriNo)) {
		t.Error("disjoint push left the cache feasible")
	}
	if c.Feasible() {
		t.Error("cache still reports feasible after disjoint push")
	}
}

func TestSolutionCacheMerge(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)
	b := NewSymbol("B", SymbolTypeTristate)

	left := NewSolutionCache()
	left.PushSymbol(a, NewValueSet(TriModule, TriYes))

	right := NewSolutionCache()
	right.PushSymbol(b, NewValueSet(TriYes))

	if !left.Merge(right) {
		t.Fatal("merge of independent constraints infeasible")
	}
	if diff := cmp.Diff([]map[string]string{{"A": "{m,y}", "B": "{y}"}}, solutionNames(left)); diff != "" {
		t.Errorf("solutions (-want +got):\n%s", diff)
	}

	conflicting := NewSolutionCache()
	conflicting.PushSymbol(a, NewValueSet(TriNo))
	if left.Merge(conflicting) {
		t.Error("merge with conflicting constraint stayed feasible")
	}
}

func TestSolutionCacheMergeCrossProduct(t *testing.T) {
	a := NewSymbol("A", SymbolTypeTristate)
	b := NewSymbol("B", SymbolTypeTristate)

	// (A | B) as two alternatives.
	left := NewSolutionCache()
	altA := NewSolutionCache()
	altA.PushSymbol(a, NewValueSet(TriYes))
	altB := NewSolutionCache()
	altB.PushSymbol(b, NewValueSet(TriYes))
	if !left.MergeAlternatives([]*SolutionCache{altA, altB}) {
		t.Fatal("merge of alternatives infeasible")
	}

	// Constrain A to n: the A alternative dies, the B alternative
	// picks up the constraint.
	other := NewSolutionCache()
	other.PushSymbol(a, NewValueSet(TriNo))
	if !left.Merge(other) {
		t.Fatal("cross-product merge infeasible")
	}
	if diff := cmp.Diff([]map[string]string{{"A": "{n}", "B": "{y}"}}, solutionNames(left)); diff != "" {
		t.Errorf("solutions (-want +got):\n%s", diff)
	}
}

func TestValueSetOps(t *testing.T) {
	s := NewValueSet(TriNo, TriModule, "quiet")
	if !s.ContainsNo() {
		t.Error("ContainsNo: got false, want true")
	}
	if min, ok := s.MinTristate(); !ok || min != TriNo {
		t.Errorf("MinTristate: got %v, %v, want n, true", min, ok)
	}

	without := s.Without(TriNo)
	if without.ContainsNo() {
		t.Error("Without(n) still contains n")
	}
	if !without.Contains("quiet") {
		t.Error("Without(n) dropped unrelated member")
	}

	scalar := NewValueSet("quiet")
	if _, ok := scalar.MinTristate(); ok {
		t.Error("MinTristate of scalar-only set: got ok, want !ok")
	}
	if got := s.String(); got != `{n,m,"quiet"}` {
		t.Errorf("String: got %s, want {n,m,\"quiet\"}", got)
	}
}
