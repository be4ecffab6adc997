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

	"github.com/awslabs/ar-go-nullness/analysis/cfg"
	"github.com/awslabs/ar-go-nullness/analysis/nullness"
	"golang.org/x/tools/go/ssa"
)

// Result is the outcome of the nullness analysis of one function
type Result struct {
	// Name is the qualified name of the function
	Name string `json:"function"`
	// Position is the source position of the function, if known
	Position string `json:"position,omitempty"`
	// Exploded is true if the analysis ran on the one-instruction-per-node graph
	Exploded bool `json:"exploded"`
	// Nodes is the number of nodes of the analyzed graph
	Nodes int `json:"nodes"`
	// Deleted is the number of edges deleted
	Deleted int `json:"deleted"`
	// DeletedEdges lists the deleted edges as "src->dst (kind)"
	DeletedEdges []string `json:"deleted-edges,omitempty"`
	// Unreachable lists the nodes that are not reachable from the entry anymore
	Unreachable []string `json:"unreachable,omitempty"`
	// HasExceptions is true if some node still has an exceptional successor
	HasExceptions bool `json:"has-exceptions"`
	// Stats are the counters of the solver
	Stats nullness.Stats `json:"-"`

	function *Function
	state    func(Position) (*nullness.Vector, bool)
}

// Function returns the translated function
func (r *Result) Function() *Function {
	return r.function
}

// NeverNil returns true if v is provably not nil when instr executes. It returns false when v or instr do not
// belong to the analyzed function.
func (r *Result) NeverNil(v ssa.Value, instr ssa.Instruction) bool {
	n, ok := r.function.values.Number(v)
	if !ok {
		return false
	}
	symbols := r.function.values.symbols
	if symbols.IsConstant(n) {
		return !symbols.IsNullConstant(n)
	}
	state, ok := r.StateAt(instr)
	return ok && state.Get(n).IsNeverNull()
}

// StateAt returns the state of all the values of the function when instr executes
func (r *Result) StateAt(instr ssa.Instruction) (*nullness.Vector, bool) {
	pos, ok := r.function.Position(instr)
	if !ok {
		return nil, false
	}
	return r.state(pos)
}

func (r *Result) String() string {
	return fmt.Sprintf("%s: %d deleted edges, %d unreachable nodes", r.Name, r.Deleted, len(r.Unreachable))
}

// newResult collects the result of a computed analysis. locate returns the node of the analyzed graph at which
// the instruction at a position executes.
func newResult[N cfg.Node](f *Function, a *nullness.Analysis[N], count int, exploded bool,
	locate func(Position) (N, bool)) *Result {
	g := a.Graph()
	r := &Result{
		Name:          f.fn.String(),
		Exploded:      exploded,
		Nodes:         len(g.Nodes()),
		Deleted:       count,
		HasExceptions: a.HasExceptions(),
		Stats:         a.Stats(),
		function:      f,
	}
	if f.fn.Prog != nil && f.fn.Pos().IsValid() {
		r.Position = f.fn.Prog.Fset.Position(f.fn.Pos()).String()
	}
	for _, e := range a.DeletedEdges().Edges() {
		r.DeletedEdges = append(r.DeletedEdges, fmt.Sprintf("%v->%v (%s)", g.Node(e.From), g.Node(e.To), e.Kind))
	}
	for _, n := range a.PrunedCFG().Unreachable() {
		r.Unreachable = append(r.Unreachable, fmt.Sprint(n))
	}
	r.state = func(p Position) (*nullness.Vector, bool) {
		n, ok := locate(p)
		if !ok {
			return nil, false
		}
		return a.StateAt(n), true
	}
	return r
}
