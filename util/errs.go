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

// Package util implements utility functions used across kernelconfig.
package util

import (
	"fmt"
	"strings"
)

// Errors is a slice of error used to accumulate independent failures,
// e.g. across the symbols of an import cycle or the directives of an
// input file.
type Errors []error

// Error implements the error#Error method.
func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, err := range e {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	return strings.Join(parts, "; ")
}

// String implements the stringer#String method.
func (e Errors) String() string {
	return e.Error()
}

// ErrorOrNil returns the accumulated errors, or nil when none were
// collected. Use it at the boundary where Errors becomes a plain
// error result.
func (e Errors) ErrorOrNil() error {
	for _, err := range e {
		if err != nil {
			return e
		}
	}
	return nil
}

// AppendErr appends err to errs if it is not nil and returns the
// result.
func AppendErr(errs Errors, err error) Errors {
	if err == nil {
		return errs
	}
	return append(errs, err)
}

// AppendErrs appends all non-nil members of newErrs to errs and
// returns the result.
func AppendErrs(errs Errors, newErrs []error) Errors {
	for _, err := range newErrs {
		errs = AppendErr(errs, err)
	}
	return errs
}

// PrefixErr wraps err with a subject prefix (typically a symbol or
// file name), keeping nil errors nil.
func PrefixErr(subject string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", subject, err)
}
