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
	"sort"

	"github.com/derekparker/trie"
)

// SymbolTable maps normalized symbol names to symbols. Nameless
// symbols (choice groups) are not stored. A trie over the names backs
// prefix search.
type SymbolTable struct {
	names map[string]*Symbol
	index *trie.Trie
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		names: make(map[string]*Symbol),
		index: trie.New(),
	}
}

// Add inserts sym into the table. Nameless symbols and redefinitions
// are rejected.
func (t *SymbolTable) Add(sym *Symbol) error {
	if sym.Name == "" {
		return fmt.Errorf("cannot add symbol without a name")
	}
	if _, exists := t.names[sym.Name]; exists {
		return fmt.Errorf("redefinition of symbol %s", sym.Name)
	}
	t.names[sym.Name] = sym
	t.index.Add(sym.Name, sym)
	return nil
}

// AddUnknown creates a symbol of the given type for a name that was
// encountered outside the Kconfig source (e.g. in a .config file) and
// adds it to the table.
func (t *SymbolTable) AddUnknown(typ SymbolType, name string) (*Symbol, error) {
	sym := NewSymbol(name, typ)
	if err := t.Add(sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// Get looks up a symbol by its exact (already normalized) name.
func (t *SymbolTable) Get(name string) (*Symbol, bool) {
	sym, ok := t.names[name]
	return sym, ok
}

// Len returns the number of symbols in the table.
func (t *SymbolTable) Len() int {
	return len(t.names)
}

// Names returns all symbol names in sorted order.
func (t *SymbolTable) Names() []string {
	out := make([]string, 0, len(t.names))
	for name := range t.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Symbols returns all symbols ordered by name.
func (t *SymbolTable) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.names))
	for _, name := range t.Names() {
		out = append(out, t.names[name])
	}
	return out
}

// NameMap exposes the underlying name mapping for the expression link
// phase. Callers must not modify it.
func (t *SymbolTable) NameMap() map[string]*Symbol {
	return t.names
}

// SearchPrefix returns all symbols whose name starts with prefix,
// ordered by name.
func (t *SymbolTable) SearchPrefix(prefix string) []*Symbol {
	matches := t.index.PrefixSearch(prefix)
	sort.Strings(matches)
	out := make([]*Symbol, 0, len(matches))
	for _, name := range matches {
		if sym, ok := t.names[name]; ok {
			out = append(out, sym)
		}
	}
	return out
}
