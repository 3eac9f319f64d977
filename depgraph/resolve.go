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

package depgraph

import (
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/dywisor/kernelconfig/kconfig"
)

// resolveUpward walks the layering deep-to-shallow, expanding every
// decision into the decisions its dependencies require. The returned
// map holds the input decisions plus every propagated decision.
func (g *ConfigGraph) resolveUpward(input DecisionMap) (DecisionMap, error) {
	decisions := make(DecisionMap)
	toExpand := make(DecisionMap, len(input))
	for sym, values := range input {
		toExpand[sym] = values
	}

	first := true
	for k := len(g.depOrder) - 1; k >= 0; k-- {
		if len(toExpand) == 0 {
			glog.V(1).Infof("Stopping at level %2d: nothing to expand", k+1)
			break
		}
		layer := g.depOrder[k]

		atLevel := make(DecisionMap)
		upward := make(DecisionMap)
		for sym, values := range toExpand {
			if layer[sym] {
				atLevel[sym] = values
			} else {
				upward[sym] = values
			}
		}
		if len(atLevel) == 0 {
			continue
		}

		if first {
			glog.V(1).Infof("Starting upwards propagation at level %2d / %2d", k+1, len(g.depOrder))
			first = false
		}

		for sym, values := range atLevel {
			if _, dup := decisions[sym]; dup {
				return nil, fmt.Errorf("internal: re-adding decision for symbol %s", sym.Name)
			}
			decisions[sym] = values
		}

		next, err := g.expandDecisionLevelUpward(k, atLevel, upward)
		if err != nil {
			return nil, err
		}
		toExpand = next
	}

	if len(toExpand) > 0 {
		return nil, fmt.Errorf("internal: did not upwards-propagate all decisions: %s",
			formatDecisions(toExpand))
	}
	return decisions, nil
}

// expandDecisionLevelUpward finds dependency solutions for the
// decisions of one layer, picks a minimal alternative and returns it,
// merged over the decisions still waiting at shallower layers, as the
// next set of decisions to expand.
func (g *ConfigGraph) expandDecisionLevelUpward(level int, atLevel, upward DecisionMap) (DecisionMap, error) {
	solutions, err := g.accumulateSolutions(level, atLevel)
	if err != nil {
		return nil, err
	}
	if solutions == nil {
		// Nothing at this level constrains shallower symbols.
		return upward, nil
	}
	if len(solutions.Solutions()) == 0 {
		return nil, &UnresolvableError{Context: "no solutions", Detail: formatDecisions(atLevel)}
	}

	picked := g.pickSolution(upward, solutions.Solutions())
	if picked == nil {
		return nil, &UnresolvableError{
			Context: "no viable solution",
			Detail:  formatDecisions(atLevel),
		}
	}
	return picked, nil
}

// wantVisValues returns the visibility values the solver must reach
// for a symbol to take minValue: a tristate symbol going to y needs
// full visibility, everything else is satisfied by m as well.
func wantVisValues(sym *kconfig.Symbol, minValue kconfig.Tristate) kconfig.TristateSet {
	if sym.IsTristate() && minValue == kconfig.TriYes {
		return kconfig.TristateSetY
	}
	return kconfig.TristateSetYM
}

// accumulateSolutions merges the dependency solutions of every
// decision in one layer into a single cache. A nil cache means the
// layer imposes no constraints.
func (g *ConfigGraph) accumulateSolutions(level int, atLevel DecisionMap) (*kconfig.SolutionCache, error) {
	var accumulated *kconfig.SolutionCache
	var lazyEnv kconfig.ValueMap

	for _, sym := range sortedDecisionSymbols(atLevel) {
		values := atLevel[sym]
		node := g.valueNodes[sym]

		// Every branch leaves depSolutions nil ("no constraint") or
		// set to this symbol's solution cache.
		var depSolutions *kconfig.SolutionCache

		switch {
		case values.ContainsNo():
			// Disabling needs no dependencies.

		case node.state >= StateDefault && values.Contains(node.value):
			// The base configuration already satisfies the request;
			// identify the existing solution instead of finding a new
			// one. This assumes a near-valid base configuration: the
			// dir_dep must be met, visibility is not strictly
			// enforced here.
			glog.V(1).Infof("Constifying %s (existing value: %s)",
				sym.Name, kconfig.FormatValueToken(node.value))

			if lazyEnv == nil {
				lazyEnv = g.valueMapUpto(level)
			}
			depSolutions = g.constifySolution(sym, lazyEnv)

		default:
			var err error
			depSolutions, err = g.findDecisionSolution(sym, values)
			if err != nil {
				return nil, err
			}
		}

		if depSolutions == nil {
			continue
		}
		if !depSolutions.Feasible() {
			return nil, &UnresolvableError{Context: "combined symbol deps", Detail: sym.Name}
		}

		switch {
		case accumulated == nil:
			accumulated = depSolutions
		case !accumulated.Merge(depSolutions):
			return nil, &UnresolvableError{Context: "group", Detail: formatDecisions(atLevel)}
		}
	}
	return accumulated, nil
}

// constifySolution pins the symbols that establish sym's current
// dependency assignment to their current values. It returns nil when
// there is nothing to pin.
func (g *ConfigGraph) constifySolution(sym *kconfig.Symbol, env kconfig.ValueMap) *kconfig.SolutionCache {
	if sym.DirDep == nil {
		glog.V(1).Infof("Nothing to constify-propagate for symbol %s", sym.Name)
		return nil
	}

	pins, ok := sym.DirDep.EvaluateSolution(env, kconfig.TristateSetYM)
	if !ok {
		glog.V(1).Infof("Could not identify which symbols to constify-propagate for symbol %s", sym.Name)
		return nil
	}
	if len(pins) == 0 {
		glog.V(1).Infof("Nothing to constify-propagate for symbol %s", sym.Name)
		return nil
	}

	if glog.V(1) {
		names := make([]string, 0, len(pins))
		for dep := range pins {
			names = append(names, dep.Name)
		}
		glog.V(1).Infof("Constify-propagate for symbol %s: %v", sym.Name, names)
	}

	solution := make(kconfig.Solution, len(pins))
	for dep := range pins {
		current := kconfig.Value(kconfig.TriNo)
		if v, inEnv := env[dep]; inEnv {
			current = v
		}
		solution[dep] = kconfig.NewValueSet(current)
	}
	cache := kconfig.NewSolutionCache()
	for dep, values := range solution {
		cache.PushSymbol(dep, values)
	}
	return cache
}

// findDecisionSolution finds the assignments of sym's dependencies
// under which sym can take one of the requested values.
func (g *ConfigGraph) findDecisionSolution(sym *kconfig.Symbol, values kconfig.ValueSet) (*kconfig.SolutionCache, error) {
	minValue, _ := values.MinTristate()

	var dirSolutions *kconfig.SolutionCache
	if sym.DirDep != nil {
		sol, ok := sym.DirDep.FindSolution(kconfig.TristateSetYM)
		if !ok {
			return nil, &UnresolvableError{Context: "symbol dir deps", Detail: sym.Name}
		}
		dirSolutions = sol
	}

	var visSolutions *kconfig.SolutionCache
	if sym.VisDep != nil {
		sol, ok := sym.VisDep.FindSolution(wantVisValues(sym, minValue))
		if !ok {
			return nil, &UnresolvableError{Context: "symbol vis deps", Detail: sym.Name}
		}
		visSolutions = sol
	}

	switch {
	case dirSolutions == nil:
		return visSolutions, nil
	case visSolutions == nil:
		return dirSolutions, nil
	}
	merged := dirSolutions.Copy()
	if !merged.Merge(visSolutions) {
		return nil, &UnresolvableError{Context: "combined symbol deps", Detail: sym.Name}
	}
	return merged, nil
}

// pickSolution turns each solution alternative into a candidate
// decision map seeded from the pending upward decisions, rates each
// by the number of symbols it would move away from their defaults,
// and returns the cheapest. Forced-n decisions are either heavily
// penalized or, with DiscardNSolutions set, dropped. Returns nil when
// every alternative conflicts.
func (g *ConfigGraph) pickSolution(upward DecisionMap, solutions []kconfig.Solution) DecisionMap {
	type rated struct {
		changeCount int
		decisions   DecisionMap
	}
	var candidates []rated

	for _, solution := range solutions {
		dec := make(DecisionMap, len(upward)+len(solution))
		for sym, values := range upward {
			dec[sym] = values
		}
		changeCount := 0
		viable := true

		for _, sym := range solution.SortedSymbols() {
			values := solution[sym]
			node := g.valueNodes[sym]

			switch {
			case dec[sym] != nil:
				// An existing decision must narrow, not conflict.
				narrowed := dec[sym].Intersect(values)
				if len(narrowed) == 0 {
					glog.V(1).Infof(
						"Discarding decision-conflicting solution %s, conflicts with %s (want %s, have %s)",
						solution, sym.Name, dec[sym], values)
					viable = false
				} else {
					dec[sym] = narrowed
				}

			case values.Contains(node.value):
				// Greedily keep the default value: no change for sym.
				dec[sym] = kconfig.NewValueSet(node.value)

			case node.state >= StateDecided:
				glog.Errorf("Upper node %s decided during upwards propagation; discarding solution %s",
					sym.Name, solution)
				viable = false

			default:
				nonN := values.Without(kconfig.TriNo)
				switch {
				case len(nonN) > 0:
					dec[sym] = nonN
					changeCount++
				case g.DiscardNSolutions:
					glog.V(1).Infof("Discarding %s=n decision %s", sym.Name, solution)
					viable = false
				default:
					glog.Warningf("Allowing %s=n decision", sym.Name)
					dec[sym] = values
					changeCount += nDecisionPenalty
				}
			}
			if !viable {
				break
			}
		}
		if viable {
			candidates = append(candidates, rated{changeCount: changeCount, decisions: dec})
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.changeCount < best.changeCount {
			best = c
		}
	}
	return best.decisions
}

// resolveDownward walks the layering shallow-to-deep and finalizes a
// value for every decision symbol.
func (g *ConfigGraph) resolveDownward(decisions DecisionMap) error {
	first := true
	for k, layer := range g.depOrder {
		if first {
			hasDecision := false
			for sym := range decisions {
				if layer[sym] {
					hasDecision = true
					break
				}
			}
			if !hasDecision {
				continue
			}
			glog.V(1).Infof("Starting resolving at level %2d / %2d", k+1, len(g.depOrder))
			first = false
		}
		if err := g.applyDecisionLevel(k, layer, decisions); err != nil {
			return err
		}
	}
	return nil
}

// decisionValueCandidates orders a decision's values by preference
// for the symbol's type: tristate prefers m over y over n to keep the
// configuration small, boolean prefers y over n, scalar types keep
// the set's deterministic order.
func decisionValueCandidates(sym *kconfig.Symbol, values kconfig.ValueSet) []kconfig.Value {
	switch sym.Type {
	case kconfig.SymbolTypeTristate:
		var out []kconfig.Value
		for _, v := range []kconfig.Tristate{kconfig.TriModule, kconfig.TriYes, kconfig.TriNo} {
			if values.Contains(v) {
				out = append(out, v)
			}
		}
		return out
	case kconfig.SymbolTypeBoolean:
		var out []kconfig.Value
		for _, v := range []kconfig.Tristate{kconfig.TriYes, kconfig.TriNo} {
			if values.Contains(v) {
				out = append(out, v)
			}
		}
		return out
	}
	return values.Values()
}

// valueWithinVisRange reports whether a symbol may take value under
// the given visibility evaluation. Invisible symbols take nothing;
// non-tristate symbols never take m; string-like symbol values are
// not ordered against the visibility value.
func valueWithinVisRange(sym *kconfig.Symbol, vis kconfig.Tristate, value kconfig.Value) bool {
	if vis == kconfig.TriNo {
		return false
	}
	tri, isTri := value.(kconfig.Tristate)
	if isTri && tri == kconfig.TriModule && !sym.IsTristate() {
		return false
	}
	if sym.Type.IsStringlike() {
		return true
	}
	if !isTri {
		return false
	}
	return tri <= vis
}

// applyDecisionLevel finalizes the decision symbols of one layer.
// Symbols without a decision keep their current value; dependents of
// freshly decided symbols are left for oldconfig to revisit.
func (g *ConfigGraph) applyDecisionLevel(level int, layer kconfig.SymbolSet, decisions DecisionMap) error {
	env := g.valueMapUpto(level)

	for _, sym := range sortedLayerSymbols(layer) {
		values, hasDecision := decisions[sym]
		if !hasDecision {
			continue
		}
		node := g.valueNodes[sym]

		if node.state >= StateDefault && values.Contains(node.value) {
			glog.V(1).Infof("Keeping %s=%s", sym.Name, kconfig.FormatValueToken(node.value))
			if err := node.MarkDecided(sym, node.value); err != nil {
				return err
			}
			continue
		}

		applied := false
		visEvaluated := false
		var visEval kconfig.Tristate
		for _, value := range decisionValueCandidates(sym, values) {
			if tri, ok := value.(kconfig.Tristate); ok && tri == kconfig.TriNo {
				glog.V(1).Infof("Disabling %s", sym.Name)
				if err := node.MarkDecided(sym, tri); err != nil {
					return err
				}
				applied = true
				break
			}

			if !visEvaluated {
				visEval = sym.EvaluateVisDep(env)
				visEvaluated = true
			}
			if valueWithinVisRange(sym, visEval, value) {
				glog.V(1).Infof("Setting %s to %s", sym.Name, kconfig.FormatValueToken(value))
				if err := node.MarkDecided(sym, value); err != nil {
					return err
				}
				applied = true
				break
			}
			glog.V(1).Infof("Cannot set symbol %s to %s, vis deps evaluated to %s",
				sym.Name, kconfig.FormatValueToken(value), visEval)
		}
		if !applied {
			return fmt.Errorf("internal: not resolved or no value candidates: %s", sym.Name)
		}
	}
	return nil
}

// sortedDecisionSymbols returns the decision symbols in name order.
func sortedDecisionSymbols(decisions DecisionMap) []*kconfig.Symbol {
	syms := make([]*kconfig.Symbol, 0, len(decisions))
	for sym := range decisions {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	return syms
}
