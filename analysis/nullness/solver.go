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
	"context"
	"fmt"

	"github.com/awslabs/ar-go-nullness/analysis/config"
	"github.com/cockroachdb/errors"
)

// Problem is a forward dataflow problem over a flow graph
type Problem struct {
	// Entry is the state at the entry node before any incoming edge is met into it
	Entry *Vector

	// Constants is used to create all the other vectors
	Constants *Constants

	// NodeTransfer returns the function applied at the entry of node n, and false if it is the identity
	NodeTransfer func(n int) (Transfer, bool)

	// EdgeTransfer returns the function applied along e
	EdgeTransfer func(e FlowEdge) Transfer
}

// Stats are counters of a solver run
type Stats struct {
	// Passes is the number of passes over the flow graph
	Passes int
	// Evaluations is the number of transfer functions applied
	Evaluations int
	// Updates is the number of times a cell changed
	Updates int
	// SideEffects is the number of evaluations where a function's own effect changed a state
	SideEffects int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d passes, %d evaluations, %d updates", s.Passes, s.Evaluations, s.Updates)
}

// CancelError is returned when a solver is cancelled through its context
type CancelError struct {
	// Pass is the pass during which the solver was cancelled
	Pass  int
	cause error
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("nullness analysis cancelled during pass %d: %v", e.Pass, e.cause)
}

// Unwrap returns the error of the context
func (e *CancelError) Unwrap() error {
	return e.cause
}

// IsCancel returns true if err is or wraps a *CancelError
func IsCancel(err error) bool {
	var c *CancelError
	return errors.As(err, &c)
}

// Solver computes the fixpoint of a Problem. It keeps one vector per node for the state at the node's entry,
// before and after the node transfer, and one vector per edge.
type Solver struct {
	fg        *FlowGraph
	problem   Problem
	logger    *config.LogGroup
	in        []*Vector
	out       []*Vector
	edges     []*Vector
	nodeFns   []Transfer
	edgeFns   []Transfer
	stats     Stats
	solved    bool
	cancelled *CancelError
}

// NewSolver returns a solver of problem over fg
func NewSolver(fg *FlowGraph, problem Problem, logger *config.LogGroup) *Solver {
	if logger == nil {
		logger = config.NewErrorLogGroup()
	}
	s := &Solver{
		fg:      fg,
		problem: problem,
		logger:  logger,
		in:      make([]*Vector, fg.Order()),
		out:     make([]*Vector, fg.Order()),
		edges:   make([]*Vector, len(fg.Edges())),
		nodeFns: make([]Transfer, fg.Order()),
		edgeFns: make([]Transfer, len(fg.Edges())),
	}
	for n := 0; n < fg.Order(); n++ {
		if n == fg.Entry() {
			s.in[n] = problem.Entry.Clone()
		} else {
			s.in[n] = NewVector(problem.Constants)
		}
		s.out[n] = NewVector(problem.Constants)
		if f, ok := problem.NodeTransfer(n); ok {
			s.nodeFns[n] = f
		}
	}
	for i, e := range fg.Edges() {
		s.edges[i] = NewVector(problem.Constants)
		s.edgeFns[i] = problem.EdgeTransfer(e)
	}
	return s
}

// Solve iterates over the flow graph in topological order until no vector changes. The context is checked before
// every node; when it is done, Solve returns a *CancelError and the solver cannot be used anymore.
func (s *Solver) Solve(ctx context.Context) error {
	if s.cancelled != nil {
		return s.cancelled
	}
	if s.solved {
		return nil
	}
	// one pass reaches the fixpoint on an acyclic graph, the second one checks it
	maxPasses := s.fg.Order() + 2
	for {
		s.stats.Passes++
		if s.stats.Passes > maxPasses {
			panic(errors.AssertionFailedf("no fixpoint after %d passes", maxPasses))
		}
		changed := false
		for _, n := range s.fg.TopologicalOrder() {
			if err := ctx.Err(); err != nil {
				s.cancelled = &CancelError{Pass: s.stats.Passes, cause: err}
				return s.cancelled
			}
			if s.visit(n) {
				changed = true
			}
		}
		s.logger.Tracef("pass %d: changed=%v", s.stats.Passes, changed)
		if !changed {
			break
		}
	}
	s.solved = true
	return nil
}

func (s *Solver) visit(n int) bool {
	changed := false
	in := s.in[n]
	for _, i := range s.fg.In(n) {
		if in.MeetInto(s.edges[i]) {
			s.stats.Updates++
			changed = true
		}
	}
	if s.apply(s.nodeFns[n], s.out[n], in) {
		changed = true
	}
	for _, i := range s.fg.Out(n) {
		if s.apply(s.edgeFns[i], s.edges[i], s.out[n]) {
			changed = true
		}
	}
	return changed
}

func (s *Solver) apply(f Transfer, lhs, rhs *Vector) bool {
	var out Outcome
	if f == nil {
		if lhs.CopyFrom(rhs) {
			out = Changed
		}
	} else {
		s.stats.Evaluations++
		out = f.Apply(lhs, rhs)
	}
	if out&SideEffect != 0 {
		s.stats.SideEffects++
	}
	if out.IsChanged() {
		s.stats.Updates++
		return true
	}
	return false
}

// NodeState returns the state at the entry of node n, after its node transfer
func (s *Solver) NodeState(n int) *Vector {
	return s.out[n]
}

// EdgeState returns the state flowing along the edge of index i in the flow graph
func (s *Solver) EdgeState(i int) *Vector {
	return s.edges[i]
}

// Stats returns the counters of the solver
func (s *Solver) Stats() Stats {
	return s.stats
}
