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
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/golang/glog"
)

// OptionPrefix is the option-name prefix of kernel .config entries.
const OptionPrefix = "CONFIG_"

var (
	optionValueRe = regexp.MustCompile(`^([A-Za-z0-9_]+)=(\S+(?:\s+\S+)*)$`)
	optionUnsetRe = regexp.MustCompile(`^#\s*([A-Za-z0-9_]+)\s+is\s+not\s+set$`)
)

// ParseError reports a malformed .config line.
type ParseError struct {
	File string
	Line int
	Msg  string
}

// Error implements the error#Error method.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// ConfigMap is an insertion-ordered symbol-to-value mapping.
type ConfigMap struct {
	order  []*Symbol
	values map[*Symbol]Value
}

// NewConfigMap returns an empty config map.
func NewConfigMap() *ConfigMap {
	return &ConfigMap{values: make(map[*Symbol]Value)}
}

// Set assigns v to sym, appending sym to the order on first
// assignment.
func (m *ConfigMap) Set(sym *Symbol, v Value) {
	if _, ok := m.values[sym]; !ok {
		m.order = append(m.order, sym)
	}
	m.values[sym] = v
}

// Get returns the value of sym; ok is false when sym is absent.
func (m *ConfigMap) Get(sym *Symbol) (Value, bool) {
	v, ok := m.values[sym]
	return v, ok
}

// Len returns the number of entries.
func (m *ConfigMap) Len() int {
	return len(m.order)
}

// Symbols returns the symbols in insertion order.
func (m *ConfigMap) Symbols() []*Symbol {
	return m.order
}

// Copy returns a copy preserving insertion order.
func (m *ConfigMap) Copy() *ConfigMap {
	out := &ConfigMap{
		order:  append([]*Symbol(nil), m.order...),
		values: make(map[*Symbol]Value, len(m.values)),
	}
	for sym, v := range m.values {
		out.values[sym] = v
	}
	return out
}

// ValueMap returns the mapping as a plain ValueMap for expression
// evaluation.
func (m *ConfigMap) ValueMap() ValueMap {
	out := make(ValueMap, len(m.values))
	for sym, v := range m.values {
		out[sym] = v
	}
	return out
}

// Config is a Kconfig-based configuration: a symbol table plus the
// current symbol-to-value mapping seeded from one or more .config
// files. Reads replace the mapping atomically; a failed read leaves
// the previous mapping in place.
type Config struct {
	symbols *SymbolTable
	config  *ConfigMap
}

// NewConfig returns an empty configuration over the given table.
func NewConfig(symbols *SymbolTable) *Config {
	return &Config{
		symbols: symbols,
		config:  NewConfigMap(),
	}
}

// Symbols returns the symbol table backing this configuration.
func (c *Config) Symbols() *SymbolTable {
	return c.symbols
}

// OptionToSymbolName converts a .config option name into a symbol
// name by stripping the CONFIG_ prefix. In lenient mode the input is
// first uppercased and a missing prefix is tolerated; in strict mode
// the input is used as given and a missing prefix is an error.
func (c *Config) OptionToSymbolName(option string, lenient bool) (string, error) {
	opt := option
	if lenient {
		opt = strings.ToUpper(opt)
	}
	name := opt
	switch {
	case strings.HasPrefix(opt, OptionPrefix):
		name = opt[len(OptionPrefix):]
	case !lenient:
		return "", fmt.Errorf("invalid option name %q", option)
	}
	if name == "" {
		return "", fmt.Errorf("invalid option name %q", option)
	}
	return name, nil
}

// SymbolNameToOption converts a symbol name into its .config option
// name.
func (c *Config) SymbolNameToOption(name string) string {
	return OptionPrefix + name
}

// LookupOption resolves an option or symbol name (leniently) to its
// symbol.
func (c *Config) LookupOption(option string) (*Symbol, bool) {
	name, err := c.OptionToSymbolName(option, true)
	if err != nil {
		return nil, false
	}
	return c.symbols.Get(name)
}

// SymbolValue returns the configured value of sym.
func (c *Config) SymbolValue(sym *Symbol) (Value, bool) {
	return c.config.Get(sym)
}

// Map returns the current configuration mapping. Callers must treat
// it as read-only; it is replaced wholesale by reads and commits.
func (c *Config) Map() *ConfigMap {
	return c.config
}

// NewUpdateMap returns a fresh mapping for staging changes. With
// update set it starts from a copy of the current configuration.
func (c *Config) NewUpdateMap(update bool) *ConfigMap {
	if update {
		return c.config.Copy()
	}
	return NewConfigMap()
}

// Adopt atomically replaces the configuration mapping.
func (c *Config) Adopt(m *ConfigMap) {
	c.config = m
}

// ReadConfigFile reads a single .config file. With update set the
// entries extend the current configuration; otherwise they replace
// it. The mapping is only swapped in when the whole file read
// succeeds.
func (c *Config) ReadConfigFile(path string, update bool) error {
	return c.ReadConfigFiles(update, path)
}

// ReadConfigFiles reads a configuration basis: the files are loaded
// in order, later entries updating earlier ones.
func (c *Config) ReadConfigFiles(update bool, paths ...string) error {
	cfg := c.NewUpdateMap(update)
	for _, path := range paths {
		glog.V(1).Infof("Reading config file %s", path)
		if err := c.readInto(cfg, path); err != nil {
			return err
		}
	}
	c.config = cfg
	return nil
}

// readInto parses one .config file into cfg. Unknown symbols with a
// value are adopted into the symbol table with the detected type;
// unknown "is not set" entries are skipped because their type cannot
// be inferred.
func (c *Config) readInto(cfg *ConfigMap, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lino := 0
	for scanner.Scan() {
		lino++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		if m := optionValueRe.FindStringSubmatch(line); m != nil {
			if err := c.applyOptionLine(cfg, path, lino, m[1], m[2]); err != nil {
				return err
			}
			continue
		}
		if m := optionUnsetRe.FindStringSubmatch(line); m != nil {
			if err := c.applyUnsetLine(cfg, m[1]); err != nil {
				return err
			}
			continue
		}
		if line[0] == '#' {
			continue
		}
		return &ParseError{File: path, Line: lino, Msg: fmt.Sprintf("unrecognized line %q", line)}
	}
	return scanner.Err()
}

func (c *Config) applyOptionLine(cfg *ConfigMap, path string, lino int, option, rawValue string) error {
	name, err := c.OptionToSymbolName(option, false)
	if err != nil {
		return &ParseError{File: path, Line: lino, Msg: err.Error()}
	}

	vtype, value, err := UnpackValueString(rawValue)
	if err != nil {
		return &ParseError{File: path, Line: lino, Msg: err.Error()}
	}

	sym, ok := c.symbols.Get(name)
	if !ok {
		glog.Warningf("Read unknown symbol %s, adding as new %s symbol", name, vtype)
		sym, err = c.symbols.AddUnknown(vtype, name)
		if err != nil {
			return err
		}
		cfg.Set(sym, value)
		return nil
	}

	normval, err := sym.NormalizeValue(value)
	if err != nil {
		return &ParseError{
			File: path, Line: lino,
			Msg: fmt.Sprintf("invalid %s value %v for %s symbol %s", vtype, value, sym.Type, sym.Name),
		}
	}
	cfg.Set(sym, normval)
	return nil
}

func (c *Config) applyUnsetLine(cfg *ConfigMap, option string) error {
	name, err := c.OptionToSymbolName(option, false)
	if err != nil {
		return err
	}
	sym, ok := c.symbols.Get(name)
	if !ok {
		glog.V(1).Infof("Cannot infer type of unknown symbol %s (not set), ignoring", name)
		return nil
	}
	// Keep the symbol in the config, just disabled.
	cfg.Set(sym, nil)
	return nil
}

// GenerateLines renders the current configuration as .config lines in
// insertion order.
func (c *Config) GenerateLines() []string {
	out := make([]string, 0, c.config.Len())
	for _, sym := range c.config.Symbols() {
		v, _ := c.config.Get(sym)
		out = append(out, sym.FormatValue(v, c.SymbolNameToOption(sym.Name)))
	}
	return out
}

// WriteConfigFile writes the current configuration to path in the
// kernel's .config format.
func (c *Config) WriteConfigFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range c.GenerateLines() {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
