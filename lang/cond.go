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
	"os"

	"github.com/golang/glog"
)

// conditionContext evaluates the condition forms that depend on what
// kind of command the condition guards.
type conditionContext interface {
	// exists evaluates the "exists" condition. An empty arg binds the
	// condition to the guarded command's own subject (its option or
	// include file).
	exists(arg string) bool
}

// optionConditionContext evaluates conditions guarding option
// commands against the choices facade.
type optionConditionContext struct {
	choices ConfigChoices
	// option is the subject of the guarded command.
	option string
}

func (c *optionConditionContext) exists(arg string) bool {
	if arg == "" {
		return c.choices.FindOption(c.option)
	}
	return c.choices.HasOption(arg)
}

// includeConditionContext evaluates conditions guarding include
// commands against the filesystem.
type includeConditionContext struct {
	// file is the resolved include file of the guarded command, empty
	// when resolution failed.
	file string
	// resolve locates a named include file.
	resolve func(string) string
}

func (c *includeConditionContext) exists(arg string) bool {
	path := c.file
	if arg != "" {
		path = c.resolve(arg)
	}
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// evalCondition evaluates a command's condition. The "exists" form is
// fully supported; the hardware-match form and unrecognized forms are
// dropped with a warning, assuming true, until their semantics are
// specified.
func evalCondition(cond *Condition, ctx conditionContext) bool {
	if cond == nil {
		return true
	}

	result := true
	switch {
	case len(cond.Words) == 0:
		glog.Warningf("DROPPED empty condition, assuming true")

	case cond.Words[0] == "exists":
		arg := ""
		if len(cond.Words) > 1 {
			arg = cond.Words[1]
		}
		result = ctx.exists(arg)

	case cond.Words[0] == "hwmatch" || cond.Words[0] == "hw":
		glog.Warningf("DROPPED hardware-match condition, assuming true: %v", cond.Words)

	default:
		glog.Warningf("DROPPED condition, assuming true: %v", cond.Words)
	}

	if cond.Negated {
		return !result
	}
	return result
}
