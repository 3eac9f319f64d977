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

package lang

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// ConfigChoices is the set of configuration operations the
// interpreter drives. Operations report success; errors are logged by
// the implementation.
type ConfigChoices interface {
	OptionDisable(option, source string) bool
	OptionModule(option, source string) bool
	OptionBuiltin(option, source string) bool
	OptionBuiltinOrModule(option, source string) bool
	OptionSetTo(option string, value interface{}, source string) bool
	OptionAppend(option string, value interface{}, source string) bool
	OptionAdd(option string, value interface{}, source string) bool
	HasOption(option string) bool
	FindOption(option string) bool
}

// DirectiveError reports the first directive whose operation failed.
type DirectiveError struct {
	File string
	Line int
	Op   Opcode
}

// Error implements the error#Error method.
func (e *DirectiveError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s directive failed", e.Line, e.Op)
	}
	return fmt.Sprintf("%s:%d: %s directive failed", e.File, e.Line, e.Op)
}

// Interpreter runs parsed directives against a choices facade. It
// maintains a FIFO queue of files seeded by include directives; each
// file is processed at most once per run, keyed by its real path.
type Interpreter struct {
	choices     ConfigChoices
	searchPaths []string

	queue     []queuedFile
	processed map[string]bool
}

type queuedFile struct {
	path string
	// name is the path as the user wrote it, for diagnostics.
	name string
}

// NewInterpreter returns an interpreter bound to the given choices.
// Include arguments are resolved against searchPaths, after the
// including file's own directory.
func NewInterpreter(choices ConfigChoices, searchPaths ...string) *Interpreter {
	return &Interpreter{
		choices:     choices,
		searchPaths: searchPaths,
	}
}

// realpath resolves symlinks where possible; unresolvable paths fall
// back to their absolute form so deduplication still applies.
func realpath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// lookupIncludeFile locates the file of an include directive. dir is
// the directory of the including file. Returns "" when nothing
// matches.
func (ip *Interpreter) lookupIncludeFile(name, dir string) string {
	var candidates []string
	if filepath.IsAbs(name) {
		candidates = []string{name}
	} else {
		if dir != "" {
			candidates = append(candidates, filepath.Join(dir, name))
		}
		candidates = append(candidates, name)
		for _, sp := range ip.searchPaths {
			candidates = append(candidates, filepath.Join(sp, name))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// enqueue appends a file to the input queue unless its real path was
// already processed or queued during this run.
func (ip *Interpreter) enqueue(path, name string) {
	rp := realpath(path)
	if ip.processed[rp] {
		glog.V(1).Infof("Skipping already processed file %s", name)
		return
	}
	ip.processed[rp] = true
	ip.queue = append(ip.queue, queuedFile{path: path, name: name})
}

// ProcessFiles parses and runs the given directive files, following
// include directives until the file queue drains. Processing stops at
// the first failed directive.
func (ip *Interpreter) ProcessFiles(paths ...string) error {
	ip.queue = nil
	ip.processed = make(map[string]bool)

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("directive file does not exist: %s", path)
		}
		ip.enqueue(path, path)
	}
	return ip.drainQueue()
}

// ProcessString parses and runs directives from a string, following
// include directives the same way ProcessFiles does.
func (ip *Interpreter) ProcessString(input string) error {
	ip.queue = nil
	ip.processed = make(map[string]bool)

	cmds, err := Parse(input, "<string>")
	if err != nil {
		return err
	}
	if err := ip.processCommandList(cmds, "<string>", ""); err != nil {
		return err
	}
	return ip.drainQueue()
}

func (ip *Interpreter) drainQueue() error {
	for len(ip.queue) > 0 {
		f := ip.queue[0]
		ip.queue = ip.queue[1:]

		data, err := os.ReadFile(f.path)
		if err != nil {
			return err
		}
		cmds, err := Parse(string(data), f.name)
		if err != nil {
			return err
		}
		if err := ip.processCommandList(cmds, f.name, filepath.Dir(f.path)); err != nil {
			return err
		}
	}
	return nil
}

func (ip *Interpreter) processCommandList(cmds []*Command, file, dir string) error {
	for _, cmd := range cmds {
		ok, err := ip.processCommand(cmd, file, dir)
		if err != nil {
			return err
		}
		if !ok {
			return &DirectiveError{File: file, Line: cmd.Line, Op: cmd.Op}
		}
	}
	return nil
}

// processCommand runs one directive. The boolean reports directive
// success; the error reports interpreter-level failures.
func (ip *Interpreter) processCommand(cmd *Command, file, dir string) (bool, error) {
	source := fmt.Sprintf("%s:%d", file, cmd.Line)

	if cmd.Op == OpInclude {
		includeFile := ip.lookupIncludeFile(cmd.Value, dir)

		ctx := &includeConditionContext{
			file:    includeFile,
			resolve: func(name string) string { return ip.lookupIncludeFile(name, dir) },
		}
		if !evalCondition(cmd.Cond, ctx) {
			glog.V(1).Infof("%s: skipping include %s (condition false)", source, cmd.Value)
			return true, nil
		}
		if includeFile == "" {
			glog.Errorf("%s: include file %s does not exist", source, cmd.Value)
			return false, nil
		}
		ip.enqueue(includeFile, cmd.Value)
		return true, nil
	}

	if op, listCommand := ip.optionDispatch(cmd.Op); listCommand {
		for _, option := range cmd.Args {
			ctx := &optionConditionContext{choices: ip.choices, option: option}
			if !evalCondition(cmd.Cond, ctx) {
				glog.V(1).Infof("%s: skipping %s %s (condition false)", source, cmd.Op, option)
				continue
			}
			if !op(option, source) {
				return false, nil
			}
		}
		return true, nil
	}

	if op, valueCommand := ip.valueDispatch(cmd.Op); valueCommand {
		option := cmd.Args[0]
		ctx := &optionConditionContext{choices: ip.choices, option: option}
		if !evalCondition(cmd.Cond, ctx) {
			glog.V(1).Infof("%s: skipping %s %s (condition false)", source, cmd.Op, option)
			return true, nil
		}
		return op(option, cmd.Value, source), nil
	}

	return false, fmt.Errorf("unknown directive opcode %v", cmd.Op)
}

func (ip *Interpreter) optionDispatch(op Opcode) (func(option, source string) bool, bool) {
	switch op {
	case OpDisable:
		return ip.choices.OptionDisable, true
	case OpModule:
		return ip.choices.OptionModule, true
	case OpBuiltin:
		return ip.choices.OptionBuiltin, true
	case OpBuiltinOrModule:
		return ip.choices.OptionBuiltinOrModule, true
	}
	return nil, false
}

func (ip *Interpreter) valueDispatch(op Opcode) (func(option string, value interface{}, source string) bool, bool) {
	switch op {
	case OpSetTo:
		return ip.choices.OptionSetTo, true
	case OpAppend:
		return ip.choices.OptionAppend, true
	case OpAdd:
		return ip.choices.OptionAdd, true
	}
	return nil, false
}
