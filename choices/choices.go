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

package choices

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/dywisor/kernelconfig/depgraph"
	"github.com/dywisor/kernelconfig/kconfig"
)

// ConfigChoices is the single entry point through which directives
// modify a configuration. It lazily creates one decision per
// referenced symbol and resolves all of them on Commit. Operations
// return false on failure and never panic across the directive
// boundary.
type ConfigChoices struct {
	config    *kconfig.Config
	decisions map[*kconfig.Symbol]Decision
}

// NewConfigChoices returns an empty choices set over the given
// configuration.
func NewConfigChoices(config *kconfig.Config) *ConfigChoices {
	return &ConfigChoices{
		config:    config,
		decisions: make(map[*kconfig.Symbol]Decision),
	}
}

// Config returns the underlying configuration.
func (c *ConfigChoices) Config() *kconfig.Config {
	return c.config
}

// getOrCreateDecision resolves an option name and returns its
// decision object, creating it on first reference. It returns nil
// (after logging) for unknown options and options whose type has no
// decision shape.
func (c *ConfigChoices) getOrCreateDecision(option string) Decision {
	sym, ok := c.config.LookupOption(option)
	if !ok {
		glog.Errorf("Option does not exist: %s", option)
		return nil
	}
	if dec, ok := c.decisions[sym]; ok {
		return dec
	}

	defaultValue, _ := c.config.SymbolValue(sym)
	dec, err := NewDecision(sym, defaultValue)
	if err != nil {
		glog.Errorf("Option %s: %v", option, err)
		return nil
	}
	c.decisions[sym] = dec
	return dec
}

// HasOption reports whether the option name resolves to a symbol.
func (c *ConfigChoices) HasOption(option string) bool {
	_, ok := c.config.LookupOption(option)
	return ok
}

// FindOption reports whether the option resolves to a symbol exactly
// or by name prefix.
func (c *ConfigChoices) FindOption(option string) bool {
	if c.HasOption(option) {
		return true
	}
	name, err := c.config.OptionToSymbolName(option, true)
	if err != nil {
		return false
	}
	return len(c.config.Symbols().SearchPrefix(name)) > 0
}

// OptionDisable requests that the option be disabled.
func (c *ConfigChoices) OptionDisable(option, source string) bool {
	dec := c.getOrCreateDecision(option)
	return dec != nil && dec.Disable(source)
}

// OptionModule requests that the option be enabled as a module.
func (c *ConfigChoices) OptionModule(option, source string) bool {
	dec := c.getOrCreateDecision(option)
	return dec != nil && dec.Module(source)
}

// OptionBuiltin requests that the option be enabled as builtin.
func (c *ConfigChoices) OptionBuiltin(option, source string) bool {
	dec := c.getOrCreateDecision(option)
	return dec != nil && dec.Builtin(source)
}

// OptionBuiltinOrModule requests that the option be enabled, as
// builtin or module, whichever the resolver can satisfy.
func (c *ConfigChoices) OptionBuiltinOrModule(option, source string) bool {
	dec := c.getOrCreateDecision(option)
	return dec != nil && dec.BuiltinOrModule(source)
}

// OptionSetTo requests a specific value for the option.
func (c *ConfigChoices) OptionSetTo(option string, value kconfig.Value, source string) bool {
	if value == nil {
		glog.Errorf("%snil value is forbidden for %s", logSource(source), option)
		return false
	}
	dec := c.getOrCreateDecision(option)
	if dec == nil {
		return false
	}
	// Boolean shorthand values map onto the enable/disable requests.
	if b, isBool := value.(bool); isBool {
		if b {
			return dec.BuiltinOrModule(source)
		}
		return dec.Disable(source)
	}
	return dec.SetTo(value, source)
}

// OptionAppend requests appending a value to the option's existing
// value.
func (c *ConfigChoices) OptionAppend(option string, value kconfig.Value, source string) bool {
	if value == nil {
		glog.Errorf("%snil value is forbidden for %s", logSource(source), option)
		return false
	}
	dec := c.getOrCreateDecision(option)
	return dec != nil && dec.Append(value, source)
}

// OptionAdd requests adding a value to the option's existing value.
func (c *ConfigChoices) OptionAdd(option string, value kconfig.Value, source string) bool {
	if value == nil {
		glog.Errorf("%snil value is forbidden for %s", logSource(source), option)
		return false
	}
	dec := c.getOrCreateDecision(option)
	return dec != nil && dec.Add(value, source)
}

// Discard forgets any decision made for the option. A later directive
// for the same option starts over from an unrestricted state.
func (c *ConfigChoices) Discard(option, source string) bool {
	sym, ok := c.config.LookupOption(option)
	if !ok {
		glog.Warningf("%sOption does not exist: %s", logSource(source), option)
		return false
	}
	if _, ok := c.decisions[sym]; !ok {
		return false
	}
	delete(c.decisions, sym)
	return true
}

// effectiveDecisions collects the non-empty decisions into the
// resolver's input map. Decision objects that were created but never
// successfully used are skipped.
func (c *ConfigChoices) effectiveDecisions() (depgraph.DecisionMap, error) {
	out := make(depgraph.DecisionMap)
	for sym, dec := range c.decisions {
		values, ok := dec.Values()
		if !ok {
			continue
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("decision for %s is empty, no config can be created", sym.Name)
		}
		out[sym] = values
	}
	return out, nil
}

// Resolve runs the dependency resolver over the accumulated decisions
// and returns the updated config mapping together with the set of
// decided symbols. The underlying configuration is not modified.
func (c *ConfigChoices) Resolve() (*kconfig.ConfigMap, kconfig.SymbolSet, error) {
	decisions, err := c.effectiveDecisions()
	if err != nil {
		return nil, nil, err
	}

	graph, err := depgraph.New(c.config, decisions)
	if err != nil {
		return nil, nil, err
	}
	if err := graph.Resolve(); err != nil {
		return nil, nil, err
	}

	cfg := c.config.NewUpdateMap(true)
	decided := make(kconfig.SymbolSet)
	for _, entry := range graph.UpdateEntries() {
		cfg.Set(entry.Symbol, entry.Value)
	}
	for sym := range graph.Decisions() {
		decided[sym] = true
	}
	return cfg, decided, nil
}

// Commit resolves the accumulated decisions, atomically installs the
// resulting configuration and then forgets the committed decisions.
// On error the configuration and the decisions are left unchanged;
// the caller may discard the offending decision and retry.
func (c *ConfigChoices) Commit() error {
	cfg, _, err := c.Resolve()
	if err != nil {
		return err
	}
	c.config.Adopt(cfg)
	c.decisions = make(map[*kconfig.Symbol]Decision)
	return nil
}
