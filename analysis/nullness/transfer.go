// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
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

package nullness

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-nullness/analysis/ir"
)

// Outcome is the result of applying a transfer function
type Outcome uint8

const (
	// Changed is set when the output vector changed
	Changed Outcome = 1 << iota
	// SideEffect is set when the function's own effect changed a state, compared to copying its input
	SideEffect
	// Fixed is set when the states written by the function's own effect do not depend on its input
	Fixed
)

// NotChanged is the outcome of a function that left its output unchanged
const NotChanged Outcome = 0

// IsChanged returns true if the Changed bit is set
func (o Outcome) IsChanged() bool {
	return o&Changed != 0
}

func (o Outcome) String() string {
	var bits []string
	if o&Changed != 0 {
		bits = append(bits, "changed")
	}
	if o&SideEffect != 0 {
		bits = append(bits, "side-effect")
	}
	if o&Fixed != 0 {
		bits = append(bits, "fixed")
	}
	if len(bits) == 0 {
		return "not-changed"
	}
	return strings.Join(bits, "|")
}

// Transfer is a transfer function. Apply stores in lhs the states of rhs with the function's effect applied, and
// reports whether lhs changed. lhs and rhs may be the same vector.
type Transfer interface {
	Apply(lhs, rhs *Vector) Outcome
	String() string
}

type identity struct{}

// Identity returns the function that copies its input
func Identity() Transfer {
	return identity{}
}

func (identity) Apply(lhs, rhs *Vector) Outcome {
	if lhs.CopyFrom(rhs) {
		return Changed
	}
	return NotChanged
}

func (identity) String() string { return "id" }

// set is the shared implementation of Nullify and Denullify
type set struct {
	v     int
	state State
}

// Nullify returns the function that sets v to Null
func Nullify(v int) Transfer {
	return set{v: v, state: Null}
}

// Denullify returns the function that sets v to NotNull
func Denullify(v int) Transfer {
	return set{v: v, state: NotNull}
}

func (f set) Apply(lhs, rhs *Vector) Outcome {
	out := Fixed
	if rhs.Get(f.v) != f.state && !rhs.constants.IsConstant(f.v) {
		out |= SideEffect
	}
	changed := lhs.copyExcept(rhs, f.v)
	if lhs.Set(f.v, f.state) || changed {
		out |= Changed
	}
	return out
}

func (f set) String() string {
	if f.state == Null {
		return fmt.Sprintf("nullify(v%d)", f.v)
	}
	return fmt.Sprintf("denullify(v%d)", f.v)
}

type phiMeet struct {
	def     int
	sources []int
}

// PhiMeet returns the function that resets def to Unknown and then meets into it the states of the sources
func PhiMeet(def int, sources ...int) Transfer {
	return phiMeet{def: def, sources: sources}
}

func (f phiMeet) Apply(lhs, rhs *Vector) Outcome {
	result := Unknown
	for _, src := range f.sources {
		if src == f.def {
			// the reset value
			continue
		}
		result, _ = Meet(result, rhs.Get(src))
	}
	out := NotChanged
	if rhs.Get(f.def) != result && !rhs.constants.IsConstant(f.def) {
		out |= SideEffect
	}
	changed := lhs.copyExcept(rhs, f.def)
	if lhs.Set(f.def, result) || changed {
		out |= Changed
	}
	return out
}

func (f phiMeet) String() string {
	srcs := make([]string, len(f.sources))
	for i, s := range f.sources {
		srcs[i] = fmt.Sprintf("v%d", s)
	}
	return fmt.Sprintf("phi(v%d <- %s)", f.def, strings.Join(srcs, ", "))
}

type sequence []Transfer

// Sequence returns the function applying fs from left to right, every function reading the output of the previous
// one. The intermediate states are kept out of lhs, which only receives the final result. The SideEffect bits of
// the outcomes are or-ed and the Fixed bits are and-ed. Changed is set when lhs differs from its previous contents.
func Sequence(fs ...Transfer) Transfer {
	switch len(fs) {
	case 0:
		return Identity()
	case 1:
		return fs[0]
	default:
		return sequence(fs)
	}
}

func (fs sequence) Apply(lhs, rhs *Vector) Outcome {
	tmp := rhs.Clone()
	out := Fixed
	for _, f := range fs {
		o := f.Apply(tmp, tmp)
		out = out&o&Fixed | (out|o)&SideEffect
	}
	if lhs.CopyFrom(tmp) {
		out |= Changed
	}
	return out
}

func (fs sequence) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// nodeTransfer returns the function handling the phis at the entry of a node, and whether it is not the identity
func nodeTransfer(phis []ir.Phi) (Transfer, bool) {
	if len(phis) == 0 {
		return Identity(), false
	}
	fs := make([]Transfer, len(phis))
	for i, phi := range phis {
		fs[i] = PhiMeet(phi.Def(), phi.Sources()...)
	}
	return Sequence(fs...), true
}
