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

import "fmt"

// Opcode identifies a directive command.
type Opcode int

const (
	// OpDisable disables each listed option.
	OpDisable Opcode = iota
	// OpModule enables each listed option as a module.
	OpModule
	// OpBuiltin enables each listed option as builtin.
	OpBuiltin
	// OpBuiltinOrModule enables each listed option as builtin or
	// module.
	OpBuiltinOrModule
	// OpSetTo sets an option to a value.
	OpSetTo
	// OpAppend appends a value to an option.
	OpAppend
	// OpAdd adds a value to an option.
	OpAdd
	// OpInclude queues another directive file.
	OpInclude
)

// String implements the stringer#String method.
func (op Opcode) String() string {
	switch op {
	case OpDisable:
		return "disable"
	case OpModule:
		return "module"
	case OpBuiltin:
		return "builtin"
	case OpBuiltinOrModule:
		return "builtin-or-module"
	case OpSetTo:
		return "set"
	case OpAppend:
		return "append"
	case OpAdd:
		return "add"
	case OpInclude:
		return "include"
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Condition is the if/unless part of a command. Negated marks the
// unless form.
type Condition struct {
	Negated bool
	Words   []string
}

// Command is one parsed directive. Option-list commands fill Args;
// value commands fill Args (one option) and Value; include fills
// Value with the file argument.
type Command struct {
	Op    Opcode
	Args  []string
	Value string
	Cond  *Condition
	Line  int
}

type parser struct {
	toks []token
	pos  int
	file string
}

// Parse parses directive input into its command list. file is used in
// error messages only.
func Parse(input, file string) ([]*Command, error) {
	toks, err := lexString(input, file)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, file: file}
	return p.parseCommandList()
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) errorf(line int, format string, args ...interface{}) error {
	return &ParseError{File: p.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseCommandList() ([]*Command, error) {
	cmds := []*Command{}
	for {
		// Collapse terminators between commands.
		for {
			t, ok := p.peek()
			if !ok {
				return cmds, nil
			}
			if t.typ != tokCmdEnd {
				break
			}
			p.pos++
		}

		cmd, err := p.parseConditionalCommand()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)

		if t, ok := p.next(); ok && t.typ != tokCmdEnd {
			return nil, p.errorf(t.line, "expected end of command, got %q", t.text)
		}
	}
}

func (p *parser) parseConditionalCommand() (*Command, error) {
	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}

	t, ok := p.peek()
	if !ok || (t.typ != tokIf && t.typ != tokUnless) {
		return cmd, nil
	}
	p.pos++

	words, err := p.parseStrList(t.line)
	if err != nil {
		return nil, err
	}
	cmd.Cond = &Condition{Negated: t.typ == tokUnless, Words: words}
	return cmd, nil
}

func (p *parser) parseCommand() (*Command, error) {
	t, ok := p.next()
	if !ok {
		return nil, p.errorf(0, "expected command")
	}

	switch t.typ {
	case tokInclude:
		file, err := p.parseStr(t.line)
		if err != nil {
			return nil, err
		}
		return &Command{Op: OpInclude, Value: file, Line: t.line}, nil

	case tokDisable, tokModule, tokBuiltin, tokBuiltinOrModule:
		args, err := p.parseStrList(t.line)
		if err != nil {
			return nil, err
		}
		op := map[tokenType]Opcode{
			tokDisable:         OpDisable,
			tokModule:          OpModule,
			tokBuiltin:         OpBuiltin,
			tokBuiltinOrModule: OpBuiltinOrModule,
		}[t.typ]
		return &Command{Op: op, Args: args, Line: t.line}, nil

	case tokSetTo, tokAppend, tokAdd:
		name, err := p.parseStr(t.line)
		if err != nil {
			return nil, err
		}
		value, err := p.parseStr(t.line)
		if err != nil {
			return nil, err
		}
		op := map[tokenType]Opcode{
			tokSetTo:  OpSetTo,
			tokAppend: OpAppend,
			tokAdd:    OpAdd,
		}[t.typ]
		return &Command{Op: op, Args: []string{name}, Value: value, Line: t.line}, nil
	}
	return nil, p.errorf(t.line, "unexpected token %q", t.text)
}

func (p *parser) parseStr(line int) (string, error) {
	t, ok := p.next()
	if !ok || t.typ != tokStr {
		return "", p.errorf(line, "expected string argument")
	}
	return t.text, nil
}

func (p *parser) parseStrList(line int) ([]string, error) {
	first, err := p.parseStr(line)
	if err != nil {
		return nil, err
	}
	out := []string{first}
	for {
		t, ok := p.peek()
		if !ok || t.typ != tokStr {
			return out, nil
		}
		p.pos++
		out = append(out, t.text)
	}
}
