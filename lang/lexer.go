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

// Package lang implements the kernelconfig directive language: a
// small line-oriented DSL ("ym THIS; set THAT value") that drives
// configuration changes through the choices facade.
package lang

import (
	"fmt"
	"strings"
)

// ParseError reports a syntax error in directive input.
type ParseError struct {
	File string
	Line int
	Msg  string
}

// Error implements the error#Error method.
func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

type tokenType int

const (
	tokStr tokenType = iota
	tokCmdEnd
	tokDisable
	tokModule
	tokBuiltin
	tokBuiltinOrModule
	tokSetTo
	tokAppend
	tokAdd
	tokInclude
	tokIf
	tokUnless
)

// reservedWords maps lowercase keywords to their token types. The
// single-letter forms mirror the tristate value names.
var reservedWords = map[string]tokenType{
	"disable":           tokDisable,
	"n":                 tokDisable,
	"module":            tokModule,
	"m":                 tokModule,
	"builtin":           tokBuiltin,
	"y":                 tokBuiltin,
	"builtin-or-module": tokBuiltinOrModule,
	"ym":                tokBuiltinOrModule,
	"set":               tokSetTo,
	"append":            tokAppend,
	"add":               tokAdd,
	"include":           tokInclude,
	"if":                tokIf,
	"unless":            tokUnless,
}

type token struct {
	typ  tokenType
	text string
	line int
}

func isWordChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '.':
		return true
	}
	return false
}

// unescapeQuoted removes the surrounding quotes of a quoted string
// and resolves backslash escapes: \x stands for x, for any x.
func unescapeQuoted(s string) string {
	body := s[1 : len(s)-1]
	var out strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		out.WriteByte(body[i])
	}
	return out.String()
}

// lexString tokenizes directive input. Successive command terminators
// collapse into one and leading terminators are suppressed; comments
// run to the end of the line.
func lexString(input, file string) ([]token, error) {
	var toks []token
	line := 1
	// Lookbehind for collapsing repeated CMD_END tokens.
	lastWasCmdEnd := true

	emitCmdEnd := func(atLine int) {
		if !lastWasCmdEnd {
			toks = append(toks, token{typ: tokCmdEnd, line: atLine})
			lastWasCmdEnd = true
		}
	}
	emit := func(t token) {
		toks = append(toks, t)
		lastWasCmdEnd = false
	}

	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case c == ' ' || c == '\t':
			i++

		case c == '#':
			for i < len(input) && input[i] != '\n' {
				i++
			}

		case c == ';':
			emitCmdEnd(line)
			i++

		case c == '\n':
			emitCmdEnd(line)
			for i < len(input) && input[i] == '\n' {
				line++
				i++
			}

		case c == '"' || c == '\'':
			start := i
			i++
			for i < len(input) && input[i] != c {
				if input[i] == '\\' && i+1 < len(input) {
					i++
				}
				if input[i] == '\n' {
					return nil, &ParseError{File: file, Line: line, Msg: "unterminated string"}
				}
				i++
			}
			if i >= len(input) {
				return nil, &ParseError{File: file, Line: line, Msg: "unterminated string"}
			}
			i++
			emit(token{typ: tokStr, text: unescapeQuoted(input[start:i]), line: line})

		case isWordChar(c):
			start := i
			for i < len(input) && isWordChar(input[i]) {
				i++
			}
			word := input[start:i]
			if typ, reserved := reservedWords[strings.ToLower(word)]; reserved {
				emit(token{typ: typ, text: strings.ToLower(word), line: line})
			} else {
				emit(token{typ: tokStr, text: word, line: line})
			}

		default:
			return nil, &ParseError{
				File: file, Line: line,
				Msg: fmt.Sprintf("unexpected character %q", c),
			}
		}
	}
	return toks, nil
}
