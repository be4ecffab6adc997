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
	"github.com/awslabs/ar-go-nullness/analysis/cfg"
	"github.com/awslabs/ar-go-nullness/analysis/config"
	"github.com/awslabs/ar-go-nullness/analysis/ir"
	mapset "github.com/deckarep/golang-set/v2"
)

// FaultOracle decides whether a call may fault inside its callee
type FaultOracle interface {
	MayThrow(call ir.Instruction) bool
}

// OracleFunc is a function implementing FaultOracle
type OracleFunc func(call ir.Instruction) bool

// MayThrow calls f
func (f OracleFunc) MayThrow(call ir.Instruction) bool {
	return f(call)
}

var (
	// AlwaysThrows assumes every call may fault
	AlwaysThrows FaultOracle = OracleFunc(func(ir.Instruction) bool { return true })

	// NeverThrows assumes no callee ever faults
	NeverThrows FaultOracle = OracleFunc(func(ir.Instruction) bool { return false })
)

// scanner finds the edges made infeasible by the solved states
type scanner[N cfg.Node] struct {
	g       cfg.Graph[N]
	oracle  FaultOracle
	ignore  mapset.Set[ir.FaultKind]
	state   func(n N) *Vector
	deleted *DeletedEdges
	logger  *config.LogGroup
}

// faults returns the faults instr may raise, including the faults of the callee of a call
func (s *scanner[N]) faults(instr ir.Instruction) mapset.Set[ir.FaultKind] {
	set := mapset.NewThreadUnsafeSet[ir.FaultKind](instr.Faults()...)
	if instr.Category().IsCall() && s.oracle.MayThrow(instr) {
		set.Add(ir.FaultAny)
	}
	return set.Difference(s.ignore)
}

func (s *scanner[N]) deleteAll(kind EdgeKind, n N, succs []N) {
	for _, succ := range succs {
		if s.deleted.Delete(kind, n.Number(), succ.Number()) {
			s.logger.Tracef("deleted %s edge %d -> %d", kind, n.Number(), succ.Number())
		}
	}
}

// scan records the infeasible edges of g in s.deleted and returns the total number of deleted edges
func (s *scanner[N]) scan() int {
	for _, n := range s.g.Nodes() {
		instr := s.g.Relevant(n)
		exceptional := s.g.ExceptionalSuccs(n)
		if instr == nil || len(exceptional) == 0 {
			continue
		}
		faults := s.faults(instr)
		switch {
		case faults.Cardinality() == 0:
			s.deleteAll(Exceptional, n, exceptional)
		case faults.Cardinality() == 1 && faults.Contains(ir.FaultNilDereference) && instr.Ref() > 0:
			state := s.state(n).Get(instr.Ref())
			if state.IsNeverNull() {
				s.deleteAll(Exceptional, n, exceptional)
			} else if state.IsAlwaysNull() {
				s.deleteAll(Normal, n, s.g.NormalSuccs(n))
			}
		}
	}
	s.collapseCatchAll()
	return s.deleted.Len()
}

// collapseCatchAll deletes the exceptional edge to the exit of every node that also has an exceptional edge to a
// handler catching all faults
func (s *scanner[N]) collapseCatchAll() {
	exit := s.g.Exit()
	for _, n := range s.g.Nodes() {
		toExit, toHandler := false, false
		for _, succ := range s.g.ExceptionalSuccs(n) {
			if succ == exit {
				toExit = true
			} else if s.g.CatchesAll(succ) {
				toHandler = true
			}
		}
		if toExit && toHandler && s.deleted.Delete(Exceptional, n.Number(), exit.Number()) {
			s.logger.Tracef("deleted exceptional edge %d -> exit, caught by handler", n.Number())
		}
	}
}
