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
	"fmt"
	"go/token"
	"go/types"

	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"golang.org/x/tools/go/ssa"
)

// Instruction is the nullness view of an SSA instruction
type Instruction struct {
	*ir.Instr
	instr ssa.Instruction
}

var _ ir.Instruction = (*Instruction)(nil)

// SSA returns the SSA instruction
func (i *Instruction) SSA() ssa.Instruction {
	return i.instr
}

// Faults returns the kinds of panics instr may raise itself. Panics raised by the callee of a call are not
// included, and neither are the panics of the deferred calls run by *ssa.RunDefers, which is a call.
func Faults(instr ssa.Instruction) []ir.FaultKind {
	switch v := instr.(type) {
	case *ssa.FieldAddr:
		return []ir.FaultKind{ir.FaultNilDereference}
	case *ssa.UnOp:
		if v.Op == token.MUL {
			return []ir.FaultKind{ir.FaultNilDereference}
		}
	case *ssa.Store:
		return []ir.FaultKind{ir.FaultNilDereference}
	case *ssa.IndexAddr:
		if isPointer(v.X.Type()) {
			return []ir.FaultKind{ir.FaultNilDereference, ir.FaultIndexOutOfRange}
		}
		return []ir.FaultKind{ir.FaultIndexOutOfRange}
	case *ssa.Index, *ssa.Slice, *ssa.SliceToArrayPointer:
		return []ir.FaultKind{ir.FaultIndexOutOfRange}
	case *ssa.Lookup:
		if _, ok := v.X.Type().Underlying().(*types.Map); !ok {
			return []ir.FaultKind{ir.FaultIndexOutOfRange}
		}
	case *ssa.MapUpdate:
		return []ir.FaultKind{ir.FaultNilDereference}
	case *ssa.TypeAssert:
		if !v.CommaOk {
			return []ir.FaultKind{ir.FaultTypeAssertion}
		}
	case *ssa.BinOp:
		if (v.Op == token.QUO || v.Op == token.REM) && isInteger(v.Y.Type()) {
			return []ir.FaultKind{ir.FaultDivideByZero}
		}
		if (v.Op == token.SHL || v.Op == token.SHR) && isSigned(v.Y.Type()) {
			if _, ok := v.Y.(*ssa.Const); !ok {
				return []ir.FaultKind{ir.FaultNegativeShift}
			}
		}
	case *ssa.MakeSlice, *ssa.MakeChan:
		return []ir.FaultKind{ir.FaultNegativeSize}
	case *ssa.Send:
		return []ir.FaultKind{ir.FaultClosedChannel}
	case *ssa.Panic:
		return []ir.FaultKind{ir.FaultPanic}
	case *ssa.Call:
		common := v.Common()
		if builtin, ok := common.Value.(*ssa.Builtin); ok {
			if builtin.Name() == "close" {
				return []ir.FaultKind{ir.FaultClosedChannel}
			}
			return nil
		}
		if common.IsInvoke() || common.StaticCallee() == nil {
			return []ir.FaultKind{ir.FaultNilDereference}
		}
	case *ssa.Defer:
		// the method value is evaluated by the defer statement, a nil function value only panics in RunDefers
		if v.Call.IsInvoke() {
			return []ir.FaultKind{ir.FaultNilDereference}
		}
	case *ssa.Go:
		if _, ok := v.Call.Value.(*ssa.Builtin); !ok && (v.Call.IsInvoke() || v.Call.StaticCallee() == nil) {
			return []ir.FaultKind{ir.FaultNilDereference}
		}
	}
	return nil
}

// MayFault returns true if instr may raise a panic itself
func MayFault(instr ssa.Instruction) bool {
	return len(Faults(instr)) > 0
}

func isPointer(t types.Type) bool {
	_, ok := t.Underlying().(*types.Pointer)
	return ok
}

func isInteger(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0
}

func isSigned(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0 && b.Info()&types.IsUnsigned == 0
}

// translate returns the nullness view of instr
func (vs *Values) translate(instr ssa.Instruction) *Instruction {
	def := ir.NoValue
	if v, ok := instr.(ssa.Value); ok {
		def = vs.number(v)
	}
	var i *ir.Instr
	switch v := instr.(type) {
	case *ssa.FieldAddr:
		i = ir.GetField(def, vs.number(v.X))
	case *ssa.UnOp:
		if v.Op == token.MUL {
			i = ir.GetField(def, vs.number(v.X))
		}
	case *ssa.Store:
		i = ir.PutField(vs.number(v.Addr))
	case *ssa.IndexAddr:
		if isPointer(v.X.Type()) {
			i = ir.ArrayLoad(def, vs.number(v.X))
		}
	case *ssa.MapUpdate:
		i = ir.NewInstr(ir.ArrayWrite, vs.number(v.Map), ir.NoValue, ir.FaultNilDereference)
	case *ssa.Call:
		i = vs.translateCall(v.Common(), def)
	case *ssa.RunDefers:
		i = ir.InvokeStatic(ir.NoValue)
	case *ssa.Alloc, *ssa.MakeMap, *ssa.MakeChan, *ssa.MakeSlice, *ssa.MakeClosure, *ssa.MakeInterface:
		i = ir.Alloc(def)
	case *ssa.If:
		i = vs.translateIf(v)
	}
	if i == nil {
		i = ir.NewInstr(ir.Other, ir.NoValue, def)
	}
	return &Instruction{
		Instr: i.WithFaults(Faults(instr)...).WithText(render(instr)),
		instr: instr,
	}
}

func (vs *Values) translateCall(common *ssa.CallCommon, def int) *ir.Instr {
	if _, ok := common.Value.(*ssa.Builtin); ok {
		return nil
	}
	if common.IsInvoke() || common.StaticCallee() == nil {
		return ir.Invoke(def, vs.number(common.Value))
	}
	return ir.InvokeStatic(def)
}

// translateIf returns a conditional branch when the condition compares a value with nil
func (vs *Values) translateIf(v *ssa.If) *ir.Instr {
	cond, ok := v.Cond.(*ssa.BinOp)
	if !ok || (cond.Op != token.EQL && cond.Op != token.NEQ) {
		return nil
	}
	if !isNil(cond.X) && !isNil(cond.Y) {
		return nil
	}
	op := ir.OpEq
	if cond.Op == token.NEQ {
		op = ir.OpNe
	}
	return ir.If(vs.number(cond.X), op, vs.number(cond.Y))
}

func isNil(v ssa.Value) bool {
	c, ok := v.(*ssa.Const)
	return ok && c.IsNil()
}

func render(instr ssa.Instruction) string {
	if v, ok := instr.(ssa.Value); ok && v.Name() != "" {
		return fmt.Sprintf("%s = %s", v.Name(), instr)
	}
	return instr.String()
}
