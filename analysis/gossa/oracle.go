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

package gossa

import (
	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"github.com/awslabs/ar-go-nullness/analysis/maypanic"
	"github.com/awslabs/ar-go-nullness/analysis/nullness"
	"golang.org/x/tools/go/ssa"
)

// SummaryOracle decides whether calls may panic with the may-panic summaries of their static callees. Calls
// without a static callee may always panic. A *ssa.RunDefers may panic when one of the deferred calls of its
// function may.
type SummaryOracle struct {
	summaries *maypanic.Summaries
}

var _ nullness.FaultOracle = (*SummaryOracle)(nil)

// NewSummaryOracle returns an oracle backed by summaries
func NewSummaryOracle(summaries *maypanic.Summaries) *SummaryOracle {
	return &SummaryOracle{summaries: summaries}
}

// PanicSummaries returns empty may-panic summaries using the faults of SSA instructions
func PanicSummaries() *maypanic.Summaries {
	return maypanic.NewSummaries(MayFault)
}

// MayThrow implements nullness.FaultOracle
func (o *SummaryOracle) MayThrow(call ir.Instruction) bool {
	instr, ok := call.(*Instruction)
	if !ok {
		return true
	}
	if run, ok := instr.SSA().(*ssa.RunDefers); ok {
		return o.deferredMayPanic(run.Parent())
	}
	c, ok := instr.SSA().(ssa.CallInstruction)
	if !ok {
		return true
	}
	callee := c.Common().StaticCallee()
	if callee == nil {
		return true
	}
	return o.summaries.MayPanic(callee)
}

// deferredMayPanic returns true if one of the calls deferred by fn may panic
func (o *SummaryOracle) deferredMayPanic(fn *ssa.Function) bool {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			d, ok := instr.(*ssa.Defer)
			if !ok {
				continue
			}
			callee := d.Call.StaticCallee()
			if callee == nil || o.summaries.MayPanic(callee) {
				return true
			}
		}
	}
	return false
}
