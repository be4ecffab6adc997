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

package maypanic

import (
	"golang.org/x/tools/go/ssa"
)

// DoesRecover returns true if f calls the recover builtin.
func DoesRecover(f *ssa.Function) bool {
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			call, ok := instr.(*ssa.Call)
			if !ok || call.Call.IsInvoke() {
				continue
			}
			if builtin, ok := call.Call.Value.(*ssa.Builtin); ok && builtin.Name() == "recover" {
				return true
			}
		}
	}
	return false
}

// deferredFunction returns the function called by the defer statement, when it is known statically
func deferredFunction(d *ssa.Defer) *ssa.Function {
	if d.Call.IsInvoke() {
		return nil
	}
	switch value := d.Call.Value.(type) {
	case *ssa.Function:
		return value
	case *ssa.MakeClosure:
		if fn, ok := value.Fn.(*ssa.Function); ok {
			return fn
		}
	}
	return nil
}

// DeferredRecovers returns the defer statements of f whose deferred function calls recover, in block order.
func DeferredRecovers(f *ssa.Function) []*ssa.Defer {
	var defers []*ssa.Defer
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if d, ok := instr.(*ssa.Defer); ok {
				if fn := deferredFunction(d); fn != nil && DoesRecover(fn) {
					defers = append(defers, d)
				}
			}
		}
	}
	return defers
}

// Covers returns true if the defer statement d has been executed whenever the instruction at index i of block b
// executes.
func Covers(d *ssa.Defer, b *ssa.BasicBlock, i int) bool {
	db := d.Block()
	if db != b {
		return db.Dominates(b)
	}
	for j := 0; j < i && j < len(b.Instrs); j++ {
		if b.Instrs[j] == d {
			return true
		}
	}
	return false
}
