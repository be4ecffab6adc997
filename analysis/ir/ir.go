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

// Package ir defines the instruction, phi and symbol-table contracts the nullness analysis consumes, along with
// simple concrete implementations of each that frontends and tests can build graphs with.
package ir

import (
	"fmt"
	"strings"
)

// NoValue is the value number returned by accessors when an instruction has no such operand.
const NoValue = -1

// Category classifies an instruction by its effect on nullness knowledge.
type Category int

const (
	// Other is any instruction without bearing on nullness: arithmetic, casts, returns, jumps, switches...
	Other Category = iota
	// FieldRead reads a field of the object Ref
	FieldRead
	// FieldWrite writes a field of the object Ref
	FieldWrite
	// ArrayRead reads an element of the array Ref
	ArrayRead
	// ArrayWrite writes an element of the array Ref
	ArrayWrite
	// ArrayLength reads the length of the array Ref
	ArrayLength
	// MonitorEnter acquires the monitor of Ref
	MonitorEnter
	// DispatchCall is a call dispatched on the receiver Ref
	DispatchCall
	// StaticCall is a call with a statically known callee
	StaticCall
	// New allocates a fresh object into Def
	New
	// ConditionalBranch is a two-way branch on the comparison returned by Branch
	ConditionalBranch
)

var categoryNames = [...]string{
	Other:             "other",
	FieldRead:         "field-read",
	FieldWrite:        "field-write",
	ArrayRead:         "array-read",
	ArrayWrite:        "array-write",
	ArrayLength:       "array-length",
	MonitorEnter:      "monitor-enter",
	DispatchCall:      "dispatch-call",
	StaticCall:        "static-call",
	New:               "new",
	ConditionalBranch: "conditional-branch",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// IsCall returns true for both dispatched and static calls
func (c Category) IsCall() bool {
	return c == DispatchCall || c == StaticCall
}

// IsHeapAccess returns true for the field and array categories, where a fault proves the reference was null
func (c Category) IsHeapAccess() bool {
	switch c {
	case FieldRead, FieldWrite, ArrayRead, ArrayWrite, ArrayLength:
		return true
	default:
		return false
	}
}

// Operator is the comparison operator of a conditional branch
type Operator int

const (
	OpEq Operator = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op Operator) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Instruction is the view of an instruction the nullness analysis needs.
type Instruction interface {
	// Category returns the effect category of the instruction
	Category() Category

	// Ref returns the value number of the reference whose nullness decides whether the instruction faults on a
	// nil dereference: the object of a field or array access, the monitor, or the receiver of a dispatched call.
	// It returns NoValue when there is no such operand.
	Ref() int

	// Def returns the value number defined by the instruction, or NoValue
	Def() int

	// Branch returns the two operands and the operator of a conditional branch. The taken successor is the one
	// reached when the comparison holds.
	Branch() (x int, y int, op Operator)

	// Faults returns the kinds of faults the instruction declares it may raise. Faults raised inside the callee of
	// a call are not included.
	Faults() []FaultKind

	String() string
}

// Phi is an SSA join at the entry of a block
type Phi interface {
	Def() int
	Sources() []int
}

// SymbolTable answers questions about compile-time constants.
type SymbolTable interface {
	// IsConstant returns true when the value number denotes a compile-time constant
	IsConstant(v int) bool
	// IsNullConstant returns true when the value number denotes the null literal
	IsNullConstant(v int) bool
}

// Instr is a plain implementation of Instruction.
type Instr struct {
	category Category
	ref      int
	def      int
	x, y     int
	op       Operator
	faults   []FaultKind
	text     string
}

var _ Instruction = (*Instr)(nil)

func (i *Instr) Category() Category                  { return i.category }
func (i *Instr) Ref() int                            { return i.ref }
func (i *Instr) Def() int                            { return i.def }
func (i *Instr) Branch() (x int, y int, op Operator) { return i.x, i.y, i.op }
func (i *Instr) Faults() []FaultKind                 { return i.faults }

func (i *Instr) String() string {
	if i.text != "" {
		return i.text
	}
	var b strings.Builder
	if i.def != NoValue {
		fmt.Fprintf(&b, "v%d = ", i.def)
	}
	b.WriteString(i.category.String())
	switch {
	case i.category == ConditionalBranch:
		fmt.Fprintf(&b, " v%d %s v%d", i.x, i.op, i.y)
	case i.ref != NoValue:
		fmt.Fprintf(&b, " v%d", i.ref)
	}
	return b.String()
}

// WithFaults replaces the declared faults of the instruction and returns it
func (i *Instr) WithFaults(faults ...FaultKind) *Instr {
	i.faults = faults
	return i
}

// WithText sets the string representation of the instruction and returns it
func (i *Instr) WithText(text string) *Instr {
	i.text = text
	return i
}

func newInstr(c Category, ref, def int, faults ...FaultKind) *Instr {
	return &Instr{category: c, ref: ref, def: def, x: NoValue, y: NoValue, faults: faults}
}

// NewInstr returns an instruction of category c with reference ref and definition def. Use NoValue for absent
// operands.
func NewInstr(c Category, ref, def int, faults ...FaultKind) *Instr {
	return newInstr(c, ref, def, faults...)
}

// GetField returns def = ref.f
func GetField(def, ref int) *Instr {
	return newInstr(FieldRead, ref, def, FaultNilDereference)
}

// PutField returns ref.f = ...
func PutField(ref int) *Instr {
	return newInstr(FieldWrite, ref, NoValue, FaultNilDereference)
}

// ArrayLoad returns def = ref[i]
func ArrayLoad(def, ref int) *Instr {
	return newInstr(ArrayRead, ref, def, FaultNilDereference, FaultIndexOutOfRange)
}

// ArrayStore returns ref[i] = ...
func ArrayStore(ref int) *Instr {
	return newInstr(ArrayWrite, ref, NoValue, FaultNilDereference, FaultIndexOutOfRange)
}

// ArrayLen returns def = len(ref)
func ArrayLen(def, ref int) *Instr {
	return newInstr(ArrayLength, ref, def, FaultNilDereference)
}

// Lock returns monitorenter ref
func Lock(ref int) *Instr {
	return newInstr(MonitorEnter, ref, NoValue, FaultNilDereference, FaultMonitorState)
}

// Invoke returns def = receiver.m(...). def may be NoValue.
func Invoke(def, receiver int) *Instr {
	return newInstr(DispatchCall, receiver, def, FaultNilDereference)
}

// InvokeStatic returns def = f(...). def may be NoValue.
func InvokeStatic(def int) *Instr {
	return newInstr(StaticCall, NoValue, def)
}

// Alloc returns def = new T
func Alloc(def int) *Instr {
	return newInstr(New, NoValue, def)
}

// If returns a conditional branch on x op y
func If(x int, op Operator, y int) *Instr {
	i := newInstr(ConditionalBranch, NoValue, NoValue)
	i.x, i.y, i.op = x, y, op
	return i
}

// Nop returns an instruction of category Other with the given text
func Nop(text string, faults ...FaultKind) *Instr {
	return newInstr(Other, NoValue, NoValue, faults...).WithText(text)
}

// PhiInstr is a plain implementation of Phi
type PhiInstr struct {
	def     int
	sources []int
}

// NewPhi returns def = phi(sources...)
func NewPhi(def int, sources ...int) *PhiInstr {
	return &PhiInstr{def: def, sources: sources}
}

func (p *PhiInstr) Def() int       { return p.def }
func (p *PhiInstr) Sources() []int { return p.sources }
func (p *PhiInstr) String() string {
	parts := make([]string, len(p.sources))
	for i, s := range p.sources {
		parts[i] = fmt.Sprintf("v%d", s)
	}
	return fmt.Sprintf("v%d = phi(%s)", p.def, strings.Join(parts, ", "))
}
