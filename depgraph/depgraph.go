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

// Package depgraph resolves user decisions over the Kconfig symbol
// dependency graph. It builds the transitively closed dependency
// graph of the base configuration and the decision symbols, layers it
// topologically, upward-propagates enabling decisions to discover the
// dependencies they require, and downward-applies the results while
// checking prompt visibility.
package depgraph

import (
	"fmt"
	"os"
	"sort"

	"github.com/kylelemons/godebug/pretty"
	"golang.org/x/exp/maps"

	"github.com/dywisor/kernelconfig/kconfig"
)

// discardNEnvVar names the environment variable that, when set to a
// non-empty value, makes the solver discard solution alternatives
// that force a symbol to n instead of merely penalizing them.
const discardNEnvVar = "KERNELCONFIG_DEPGRAPH_DISCARD_N"

// nDecisionPenalty is the change-count penalty for every forced-n
// decision in a solution alternative when such alternatives are not
// discarded outright.
const nDecisionPenalty = 100

// DecisionState is the resolution state of a value node. States only
// ever increase.
type DecisionState int

const (
	// StateUndecided marks symbols with no base-config value.
	StateUndecided DecisionState = iota + 1
	// StateDefault marks symbols carrying their base-config value.
	StateDefault
	// StateHalfDecided marks symbols whose value was narrowed by
	// propagation but not finally decided.
	StateHalfDecided
	// StateDecided marks symbols with a final value.
	StateDecided
)

// String implements the stringer#String method.
func (s DecisionState) String() string {
	switch s {
	case StateUndecided:
		return "undecided"
	case StateDefault:
		return "default"
	case StateHalfDecided:
		return "half_decided"
	case StateDecided:
		return "decided"
	}
	return fmt.Sprintf("DecisionState(%d)", int(s))
}

// UnresolvableError reports that no symbol assignment can satisfy the
// accumulated decisions.
type UnresolvableError struct {
	// Context names the resolution step that failed.
	Context string
	// Detail names the symbol or decision group at fault.
	Detail string
}

// Error implements the error#Error method.
func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("configuration unresolvable (%s): %s", e.Context, e.Detail)
}

// OptionDecidedError reports an attempt to regress a value node's
// decision state. It indicates a resolver bug, not a user error.
type OptionDecidedError struct {
	Symbol string
	Msg    string
}

// Error implements the error#Error method.
func (e *OptionDecidedError) Error() string {
	return fmt.Sprintf("symbol %s: %s", e.Symbol, e.Msg)
}

// ValueNode tracks the current value and decision state of one symbol
// during resolution.
type ValueNode struct {
	value kconfig.Value
	state DecisionState
}

// Value returns the node's current value.
func (n *ValueNode) Value() kconfig.Value { return n.value }

// State returns the node's decision state.
func (n *ValueNode) State() DecisionState { return n.state }

// transition moves the node to newState with the given value. States
// are monotone: moving to a lower state, or re-entering the same
// state with any value, is an error.
func (n *ValueNode) transition(sym *kconfig.Symbol, newState DecisionState, value kconfig.Value) error {
	switch {
	case newState < n.state:
		return &OptionDecidedError{
			Symbol: sym.Name,
			Msg:    fmt.Sprintf("cannot move from state %s back to %s", n.state, newState),
		}
	case newState == n.state:
		if n.value != value {
			return &OptionDecidedError{
				Symbol: sym.Name,
				Msg: fmt.Sprintf("cannot re-decide state %s with value %s (have %s)",
					n.state, kconfig.FormatValueToken(value), kconfig.FormatValueToken(n.value)),
			}
		}
		return &OptionDecidedError{Symbol: sym.Name, Msg: "re-decided with same value"}
	}
	n.state = newState
	n.value = value
	return nil
}

// MarkDecided finalizes the node's value.
func (n *ValueNode) MarkDecided(sym *kconfig.Symbol, value kconfig.Value) error {
	return n.transition(sym, StateDecided, value)
}

// MarkPropagated records a value forced by propagation without
// finalizing the node.
func (n *ValueNode) MarkPropagated(sym *kconfig.Symbol, value kconfig.Value) error {
	return n.transition(sym, StateHalfDecided, value)
}

// DecisionMap maps symbols to their acceptable value sets.
type DecisionMap map[*kconfig.Symbol]kconfig.ValueSet

// formatDecisions renders a decision map for diagnostics, symbols in
// name order.
func formatDecisions(decisions DecisionMap) string {
	type entry struct {
		Symbol string
		Values string
	}
	entries := make([]entry, 0, len(decisions))
	for sym, values := range decisions {
		entries = append(entries, entry{Symbol: sym.Name, Values: values.String()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
	return pretty.Sprint(entries)
}

// UpdateEntry is one resolved symbol value produced by the graph.
type UpdateEntry struct {
	Symbol *kconfig.Symbol
	Value  kconfig.Value
}

// ConfigGraph is the per-commit dependency graph and resolver state.
type ConfigGraph struct {
	// DiscardNSolutions makes pick-solution drop alternatives that
	// force a symbol to n. Initialized from the
	// KERNELCONFIG_DEPGRAPH_DISCARD_N environment variable.
	DiscardNSolutions bool

	depGraph   map[*kconfig.Symbol]kconfig.SymbolSet
	depOrder   []kconfig.SymbolSet
	valueNodes map[*kconfig.Symbol]*ValueNode

	inputDecisions DecisionMap
	// decisions holds the full decision map after upward propagation.
	decisions DecisionMap
}

// New builds the dependency graph for the given base configuration
// and user decisions. The graph covers every symbol of the base
// config and every decision symbol, transitively closed over their
// dependency expressions, layered so that a layer depends only on
// shallower layers.
func New(cfg *kconfig.Config, decisions DecisionMap) (*ConfigGraph, error) {
	g := &ConfigGraph{
		DiscardNSolutions: os.Getenv(discardNEnvVar) != "",
		depGraph:          make(map[*kconfig.Symbol]kconfig.SymbolSet),
		inputDecisions:    decisions,
	}

	g.expandGraph(cfg.Map().Symbols())
	g.expandGraph(maps.Keys(decisions))

	order, err := g.topoLayers()
	if err != nil {
		return nil, err
	}
	g.depOrder = order
	g.valueNodes = g.createValueNodes(cfg)
	return g, nil
}

// expandGraph adds the given symbols and, transitively, every symbol
// referenced by their dependency expressions to the graph.
func (g *ConfigGraph) expandGraph(symbols []*kconfig.Symbol) {
	pending := symbols
	for len(pending) > 0 {
		var next []*kconfig.Symbol
		for _, sym := range pending {
			if _, done := g.depGraph[sym]; done {
				continue
			}
			deps := symbolDependencies(sym)
			g.depGraph[sym] = deps
			for dep := range deps {
				if _, done := g.depGraph[dep]; !done {
					next = append(next, dep)
				}
			}
		}
		pending = next
	}
}

// symbolDependencies collects the symbols referenced by a symbol's
// direct, visibility and default-clause expressions.
func symbolDependencies(sym *kconfig.Symbol) kconfig.SymbolSet {
	deps := make(kconfig.SymbolSet)
	for s := range kconfig.DependentSymbols(sym.DirDep) {
		deps[s] = true
	}
	for s := range kconfig.DependentSymbols(sym.VisDep) {
		deps[s] = true
	}
	if sym.SupportsDefaults() {
		for _, def := range sym.Defaults {
			for s := range kconfig.DependentSymbols(def.Value) {
				deps[s] = true
			}
			for s := range kconfig.DependentSymbols(def.Cond) {
				deps[s] = true
			}
		}
	}
	return deps
}

// topoLayers layers the graph with Kahn's algorithm: layer 0 holds
// symbols with no dependencies, each following layer holds symbols
// whose dependencies are all in earlier layers. Every layer is an
// antichain.
func (g *ConfigGraph) topoLayers() ([]kconfig.SymbolSet, error) {
	placed := make(kconfig.SymbolSet, len(g.depGraph))
	remaining := make([]*kconfig.Symbol, 0, len(g.depGraph))
	for sym := range g.depGraph {
		remaining = append(remaining, sym)
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Name < remaining[j].Name })

	var layers []kconfig.SymbolSet
	for len(remaining) > 0 {
		layer := make(kconfig.SymbolSet)
		var rest []*kconfig.Symbol
		for _, sym := range remaining {
			ready := true
			for dep := range g.depGraph[sym] {
				if dep != sym && !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				layer[sym] = true
			} else {
				rest = append(rest, sym)
			}
		}
		if len(layer) == 0 {
			return nil, fmt.Errorf("dependency cycle among %d symbols (first: %s)",
				len(rest), rest[0].Name)
		}
		for sym := range layer {
			placed[sym] = true
		}
		layers = append(layers, layer)
		remaining = rest
	}
	return layers, nil
}

// createValueNodes seeds a value node per graph symbol from the base
// configuration. Symbols without a base value start undecided at n.
func (g *ConfigGraph) createValueNodes(cfg *kconfig.Config) map[*kconfig.Symbol]*ValueNode {
	nodes := make(map[*kconfig.Symbol]*ValueNode, len(g.depGraph))
	for sym := range g.depGraph {
		if v, ok := cfg.SymbolValue(sym); ok {
			if v == nil {
				v = kconfig.TriNo
			}
			nodes[sym] = &ValueNode{value: v, state: StateDefault}
		} else {
			nodes[sym] = &ValueNode{value: kconfig.TriNo, state: StateUndecided}
		}
	}
	return nodes
}

// ValueNodeFor returns the value node of sym, or nil if sym is not in
// the graph.
func (g *ConfigGraph) ValueNodeFor(sym *kconfig.Symbol) *ValueNode {
	return g.valueNodes[sym]
}

// Decisions returns the full decision map produced by resolution,
// including decisions discovered by upward propagation.
func (g *ConfigGraph) Decisions() DecisionMap {
	return g.decisions
}

// DepthOf returns the topological layer index of sym, or -1 when sym
// is not in the graph.
func (g *ConfigGraph) DepthOf(sym *kconfig.Symbol) int {
	for k, layer := range g.depOrder {
		if layer[sym] {
			return k
		}
	}
	return -1
}

// sortedLayerSymbols returns the symbols of a layer in name order for
// deterministic iteration.
func sortedLayerSymbols(layer kconfig.SymbolSet) []*kconfig.Symbol {
	syms := maps.Keys(layer)
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	return syms
}

// valueMapUpto builds the symbol-value map of every node in layers
// shallower than level.
func (g *ConfigGraph) valueMapUpto(level int) kconfig.ValueMap {
	env := make(kconfig.ValueMap)
	for k := 0; k < level && k < len(g.depOrder); k++ {
		for sym := range g.depOrder[k] {
			env[sym] = g.valueNodes[sym].value
		}
	}
	return env
}

// Resolve runs upward propagation followed by downward application.
func (g *ConfigGraph) Resolve() error {
	decisions, err := g.resolveUpward(g.inputDecisions)
	if err != nil {
		return err
	}
	if err := g.resolveDownward(decisions); err != nil {
		return err
	}
	g.decisions = decisions
	return nil
}

// UpdateEntries returns the resolved symbol values, ordered by
// topological layer and then symbol name, covering every node whose
// state reached at least half-decided.
func (g *ConfigGraph) UpdateEntries() []UpdateEntry {
	var out []UpdateEntry
	for _, layer := range g.depOrder {
		for _, sym := range sortedLayerSymbols(layer) {
			node := g.valueNodes[sym]
			if node.state >= StateHalfDecided {
				out = append(out, UpdateEntry{Symbol: sym, Value: node.value})
			}
		}
	}
	return out
}
