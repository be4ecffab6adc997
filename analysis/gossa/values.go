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
	"golang.org/x/tools/go/ssa"
)

// Values is the value numbering of a function. Value numbers start at 1.
type Values struct {
	numbers map[ssa.Value]int
	values  []ssa.Value
	symbols *ir.Symbols
}

func newValues() *Values {
	return &Values{
		numbers: map[ssa.Value]int{},
		values:  []ssa.Value{nil},
		symbols: ir.NewSymbols(),
	}
}

// numberValues numbers the parameters, the free variables and then every operand and value defined by an
// instruction of fn, in block order.
func numberValues(fn *ssa.Function) *Values {
	vs := newValues()
	for _, p := range fn.Params {
		vs.add(p)
	}
	for _, fv := range fn.FreeVars {
		vs.add(fv)
	}
	var rands []*ssa.Value
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			rands = instr.Operands(rands[:0])
			for _, rand := range rands {
				if rand != nil && *rand != nil {
					vs.add(*rand)
				}
			}
			if v, ok := instr.(ssa.Value); ok {
				vs.add(v)
			}
		}
	}
	return vs
}

func (vs *Values) add(v ssa.Value) int {
	if n, ok := vs.numbers[v]; ok {
		return n
	}
	n := len(vs.values)
	vs.numbers[v] = n
	vs.values = append(vs.values, v)
	switch v := v.(type) {
	case *ssa.Const:
		if v.IsNil() {
			vs.symbols.AddNull(n)
		} else {
			vs.symbols.AddConstant(n)
		}
	case *ssa.Function, *ssa.Global, *ssa.Builtin:
		vs.symbols.AddConstant(n)
	case *ssa.FieldAddr, *ssa.IndexAddr:
		// an address computed without faulting is never nil
		vs.symbols.AddConstant(n)
	}
	return n
}

// Number returns the value number of v
func (vs *Values) Number(v ssa.Value) (int, bool) {
	n, ok := vs.numbers[v]
	return n, ok
}

// number returns the value number of v, or ir.NoValue
func (vs *Values) number(v ssa.Value) int {
	if n, ok := vs.numbers[v]; ok {
		return n
	}
	return ir.NoValue
}

// Value returns the value numbered n, or nil
func (vs *Values) Value(n int) ssa.Value {
	if n <= 0 || n >= len(vs.values) {
		return nil
	}
	return vs.values[n]
}

// Len returns the largest value number
func (vs *Values) Len() int {
	return len(vs.values) - 1
}

// Symbols returns the symbol table of the constants
func (vs *Values) Symbols() *ir.Symbols {
	return vs.symbols
}
