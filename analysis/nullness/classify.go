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
	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"github.com/cockroachdb/errors"
)

// Classification holds the transfer functions of the two classes of successors of an instruction.
type Classification struct {
	// First applies to the taken successor of a conditional branch, or to the normal successors of any other
	// instruction
	First Transfer

	// Second applies to the successor of a conditional branch that is not taken, or to the exceptional successors of
	// any other instruction
	Second Transfer

	// Nontrivial is false when both functions are the identity
	Nontrivial bool
}

var trivial = Classification{First: Identity(), Second: Identity(), Nontrivial: false}

// Classify returns the transfer functions of instr. Conditional branches are interpreted using symbols to find
// comparisons against the null constant.
func Classify(instr ir.Instruction, symbols ir.SymbolTable) Classification {
	if instr == nil {
		return trivial
	}
	switch c := instr.Category(); {
	case c.IsHeapAccess():
		ref := operand(instr, instr.Ref(), "reference")
		return Classification{First: Denullify(ref), Second: Nullify(ref), Nontrivial: true}
	case c == ir.MonitorEnter:
		// other faults than a nil dereference can be raised
		ref := operand(instr, instr.Ref(), "monitor")
		return Classification{First: Denullify(ref), Second: Identity(), Nontrivial: true}
	case c == ir.DispatchCall:
		// the fault may come from the callee
		ref := operand(instr, instr.Ref(), "receiver")
		return Classification{First: Denullify(ref), Second: Identity(), Nontrivial: true}
	case c == ir.New:
		def := operand(instr, instr.Def(), "result")
		return Classification{First: Denullify(def), Second: Nullify(def), Nontrivial: true}
	case c == ir.ConditionalBranch:
		return classifyBranch(instr, symbols)
	default:
		return trivial
	}
}

func classifyBranch(instr ir.Instruction, symbols ir.SymbolTable) Classification {
	x, y, op := instr.Branch()
	xNull := x > 0 && symbols.IsNullConstant(x)
	yNull := y > 0 && symbols.IsNullConstant(y)
	if xNull == yNull {
		return trivial
	}
	v := x
	if xNull {
		v = y
	}
	if v <= 0 {
		return trivial
	}
	switch op {
	case ir.OpEq:
		return Classification{First: Nullify(v), Second: Denullify(v), Nontrivial: true}
	case ir.OpNe:
		return Classification{First: Denullify(v), Second: Nullify(v), Nontrivial: true}
	default:
		panic(errors.AssertionFailedf("comparison %s against null in %q", op, instr.String()))
	}
}

func operand(instr ir.Instruction, v int, what string) int {
	if v <= 0 {
		panic(errors.AssertionFailedf("%s of %q has no value number", what, instr.String()))
	}
	return v
}
