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
	"sync"

	"github.com/awslabs/ar-go-nullness/internal/graphutil"
	"golang.org/x/tools/go/ssa"
)

// Summaries computes, bottom-up over the static call graph, whether a function may let a panic escape to its
// caller. Summaries are computed on demand and memoized; a Summaries is safe for concurrent use.
//
// The summary is an over-approximation: functions without a body, calls through interfaces and function values,
// and instructions for which mayFault returns true all count as possible panics. Mutually recursive functions
// share the summary of their strongly connected component.
type Summaries struct {
	mu        sync.Mutex
	mayFault  func(ssa.Instruction) bool
	summaries map[*ssa.Function]bool
}

// NewSummaries returns an empty set of summaries. mayFault decides whether an instruction other than a call to a
// non-builtin function may panic.
func NewSummaries(mayFault func(ssa.Instruction) bool) *Summaries {
	return &Summaries{
		mayFault:  mayFault,
		summaries: map[*ssa.Function]bool{},
	}
}

// MayPanic returns true if a call to f may panic
func (s *Summaries) MayPanic(f *ssa.Function) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.summaries[f]; ok {
		return res
	}
	s.summarize(f)
	return s.summaries[f]
}

// Len returns the number of functions summarized so far
func (s *Summaries) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.summaries)
}

// summarize computes the summaries of root and every function it reaches through static calls that has no
// summary yet. The components are returned callees first, so each component only depends on summaries that are
// already computed.
func (s *Summaries) summarize(root *ssa.Function) {
	successors := func(f *ssa.Function) []*ssa.Function {
		if _, done := s.summaries[f]; done {
			return nil
		}
		return StaticCallees(f)
	}
	for _, scc := range graphutil.StronglyConnectedComponents([]*ssa.Function{root}, successors) {
		if _, done := s.summaries[scc[0]]; done {
			continue
		}
		members := make(map[*ssa.Function]bool, len(scc))
		for _, f := range scc {
			members[f] = true
		}
		panics := false
		for _, f := range scc {
			if s.panicsLocally(f, members) {
				panics = true
				break
			}
		}
		for _, f := range scc {
			s.summaries[f] = panics && !catchesAll(f, s.mayFault)
		}
	}
}

// panicsLocally returns true if f may panic, ignoring the calls to members of its own component
func (s *Summaries) panicsLocally(f *ssa.Function, members map[*ssa.Function]bool) bool {
	if len(f.Blocks) == 0 {
		return true
	}
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			var common *ssa.CallCommon
			switch v := instr.(type) {
			case *ssa.Call:
				common = v.Common()
			case *ssa.Defer:
				common = v.Common()
			case *ssa.Go:
				// panics in the new goroutine do not reach the caller, evaluating its function may
				if s.mayFault(instr) {
					return true
				}
				continue
			case *ssa.RunDefers:
				// deferred calls are summarized at their defer statement
				continue
			default:
				if s.mayFault(instr) {
					return true
				}
				continue
			}
			if _, ok := common.Value.(*ssa.Builtin); ok {
				if s.mayFault(instr) {
					return true
				}
				continue
			}
			callee := common.StaticCallee()
			if callee == nil {
				return true
			}
			if !members[callee] && s.summaries[callee] {
				return true
			}
		}
	}
	return false
}

// catchesAll returns true when f recovers from every panic raised in its body: a deferred recover is registered
// in the entry block before any instruction that may panic.
func catchesAll(f *ssa.Function, mayFault func(ssa.Instruction) bool) bool {
	if len(f.Blocks) == 0 {
		return false
	}
	recovers := DeferredRecovers(f)
	for _, instr := range f.Blocks[0].Instrs {
		if d, ok := instr.(*ssa.Defer); ok {
			for _, r := range recovers {
				if r == d {
					return true
				}
			}
		}
		if _, ok := instr.(ssa.CallInstruction); ok || mayFault(instr) {
			return false
		}
	}
	return false
}

// StaticCallees returns the functions called statically by f, in order of first call. Calls in go statements
// are not included.
func StaticCallees(f *ssa.Function) []*ssa.Function {
	var callees []*ssa.Function
	seen := map[*ssa.Function]bool{}
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			var common *ssa.CallCommon
			switch v := instr.(type) {
			case *ssa.Call:
				common = v.Common()
			case *ssa.Defer:
				common = v.Common()
			default:
				continue
			}
			if callee := common.StaticCallee(); callee != nil && !seen[callee] {
				seen[callee] = true
				callees = append(callees, callee)
			}
		}
	}
	return callees
}
