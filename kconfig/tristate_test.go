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
	"testing"

	"github.com/google/go-cmp/cmp"
)

var allTristates = []Tristate{TriNo, TriModule, TriYes}

func TestTristateAlgebraLaws(t *testing.T) {
	for _, a := range allTristates {
		if got := a.Invert().Invert(); got != a {
			t.Errorf("double inversion of %s: got %s, want %s", a, got, a)
		}
		for _, b := range allTristates {
			if a.And(b) != b.And(a) {
				t.Errorf("And not commutative for %s, %s", a, b)
			}
			if a.Or(b) != b.Or(a) {
				t.Errorf("Or not commutative for %s, %s", a, b)
			}
			for _, c := range allTristates {
				left := a.And(b.Or(c))
				right := a.And(b).Or(a.And(c))
				if left != right {
					t.Errorf("distributivity failed for %s, %s, %s: %s != %s", a, b, c, left, right)
				}
			}
		}
	}
}

func TestTristateAndOrInvert(t *testing.T) {
	tests := []struct {
		name       string
		inA, inB   Tristate
		wantAnd    Tristate
		wantOr     Tristate
		wantInvert Tristate
	}{{
		name: "n and m", inA: TriNo, inB: TriModule,
		wantAnd: TriNo, wantOr: TriModule, wantInvert: TriYes,
	}, {
		name: "m and y", inA: TriModule, inB: TriYes,
		wantAnd: TriModule, wantOr: TriYes, wantInvert: TriModule,
	}, {
		name: "y and y", inA: TriYes, inB: TriYes,
		wantAnd: TriYes, wantOr: TriYes, wantInvert: TriNo,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inA.And(tt.inB); got != tt.wantAnd {
				t.Errorf("And: got %s, want %s", got, tt.wantAnd)
			}
			if got := tt.inA.Or(tt.inB); got != tt.wantOr {
				t.Errorf("Or: got %s, want %s", got, tt.wantOr)
			}
			if got := tt.inA.Invert(); got != tt.wantInvert {
				t.Errorf("Invert: got %s, want %s", got, tt.wantInvert)
			}
		})
	}
}

func TestParseTristate(t *testing.T) {
	tests := []struct {
		in      string
		want    Tristate
		wantErr bool
	}{
		{in: "n", want: TriNo},
		{in: "m", want: TriModule},
		{in: "y", want: TriYes},
		{in: "Y", wantErr: true},
		{in: "", wantErr: true},
		{in: "yes", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTristate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTristate(%q): err %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseTristate(%q): got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTristateSet(t *testing.T) {
	tests := []struct {
		name         string
		in           TristateSet
		wantValues   []Tristate
		wantUpward   bool
		wantDownward bool
		wantInvert   TristateSet
	}{{
		name:         "empty",
		in:           TristateSetNone,
		wantInvert:   TristateSetNone,
		wantUpward:   false,
		wantDownward: false,
	}, {
		name:         "ym",
		in:           TristateSetYM,
		wantValues:   []Tristate{TriModule, TriYes},
		wantUpward:   true,
		wantDownward: false,
		wantInvert:   TristateSetNM,
	}, {
		name:         "nm",
		in:           TristateSetNM,
		wantValues:   []Tristate{TriNo, TriModule},
		wantUpward:   false,
		wantDownward: true,
		wantInvert:   TristateSetYM,
	}, {
		name:         "all",
		in:           TristateSetAll,
		wantValues:   allTristates,
		wantUpward:   true,
		wantDownward: true,
		wantInvert:   TristateSetAll,
	}, {
		name:         "just m",
		in:           TristateSetM,
		wantValues:   []Tristate{TriModule},
		wantUpward:   false,
		wantDownward: false,
		wantInvert:   TristateSetM,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.wantValues, tt.in.Values()); diff != "" {
				t.Errorf("Values() (-want +got):\n%s", diff)
			}
			if got := tt.in.UpwardClosed(); got != tt.wantUpward {
				t.Errorf("UpwardClosed(): got %v, want %v", got, tt.wantUpward)
			}
			if got := tt.in.DownwardClosed(); got != tt.wantDownward {
				t.Errorf("DownwardClosed(): got %v, want %v", got, tt.wantDownward)
			}
			if got := tt.in.Invert(); got != tt.wantInvert {
				t.Errorf("Invert(): got %s, want %s", got, tt.wantInvert)
			}
		})
	}
}

func TestTristateSetMinMax(t *testing.T) {
	s := NewTristateSet(TriModule, TriYes)
	if min, ok := s.Min(); !ok || min != TriModule {
		t.Errorf("Min(): got %v, %v, want m, true", min, ok)
	}
	if max, ok := s.Max(); !ok || max != TriYes {
		t.Errorf("Max(): got %v, %v, want y, true", max, ok)
	}
	if _, ok := TristateSetNone.Min(); ok {
		t.Error("Min() of empty set: got ok, want !ok")
	}
}
