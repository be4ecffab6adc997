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
	"github.com/awslabs/ar-go-nullness/analysis/config"
	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"github.com/awslabs/ar-go-nullness/analysis/maypanic"
	"github.com/awslabs/ar-go-nullness/analysis/nullness"
	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/ssa"
)

// ErrNoBody is returned when building a function that has no SSA body
var ErrNoBody = errors.New("function has no body")

// BuildOptions controls the translation of a function
type BuildOptions struct {
	// IgnoreRecover makes deferred calls to recover invisible: faults always propagate to the exit
	IgnoreRecover bool

	// Logger receives debugging messages. May be nil.
	Logger *config.LogGroup
}

// Position is the location of an SSA instruction in the block graph
type Position struct {
	Block *cfg.Block
	Index int
}

// Function is a Go function translated for the nullness analysis
type Function struct {
	fn        *ssa.Function
	graph     *cfg.BlockGraph
	values    *Values
	positions map[ssa.Instruction]Position
	recovers  bool
}

// SSA returns the SSA function
func (f *Function) SSA() *ssa.Function { return f.fn }

// Graph returns the block graph of the function
func (f *Function) Graph() *cfg.BlockGraph { return f.graph }

// Values returns the value numbering of the function
func (f *Function) Values() *Values { return f.values }

// Symbols returns the symbol table of the function
func (f *Function) Symbols() ir.SymbolTable { return f.values.symbols }

// Recovers returns true if the faults of the function can be caught by its recover block
func (f *Function) Recovers() bool { return f.recovers }

// Position returns the block of the graph containing instr, and the index of instr in the block
func (f *Function) Position(instr ssa.Instruction) (Position, bool) {
	p, ok := f.positions[instr]
	return p, ok
}

// NumParams returns the number of parameters of the function, including the receiver
func (f *Function) NumParams() int {
	return len(f.fn.Params)
}

// IsMethod returns true if the first parameter of the function is a receiver
func (f *Function) IsMethod() bool {
	return f.fn.Signature.Recv() != nil && len(f.fn.Params) > 0
}

// Seed returns the initial state of the parameters. Go methods may be called on nil receivers: the receiver is
// only assumed not to be nil when trustReceivers is set.
func (f *Function) Seed(trustReceivers bool) *nullness.Seed {
	return nullness.DefaultSeed(f.NumParams(), !(trustReceivers && f.IsMethod()))
}

func (f *Function) String() string {
	return f.fn.String()
}

// Build translates fn into a block graph.
//
// The graph starts with an empty entry block, followed by the blocks of fn, split after every instruction that
// has a nullness effect or may fault. Faulting instructions and calls have exceptional edges to the exit block
// and, if a deferred function recovers from panics and its defer statement always executes before the
// instruction, to the recover block of fn, which catches all faults.
func Build(fn *ssa.Function, opts BuildOptions) (*Function, error) {
	if fn == nil || len(fn.Blocks) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoBody, fn)
	}
	logger := opts.Logger
	if logger == nil {
		logger = config.NewErrorLogGroup()
	}
	f := &Function{
		fn:        fn,
		values:    numberValues(fn),
		positions: map[ssa.Instruction]Position{},
	}
	var defers []*ssa.Defer
	if !opts.IgnoreRecover && fn.Recover != nil {
		defers = maypanic.DeferredRecovers(fn)
	}
	f.recovers = len(defers) > 0

	b := cfg.NewBuilder()
	entry := b.Block("entry")
	exit := b.Exit()

	// split every SSA block into segments
	segments := make([][]*cfg.Block, len(fn.Blocks))
	var faulting []segmentEnd
	for _, blk := range fn.Blocks {
		seg := b.Block(fmt.Sprintf("b%d", blk.Index))
		segments[blk.Index] = []*cfg.Block{seg}
		var phis []ir.Phi
		for i, instr := range blk.Instrs {
			switch v := instr.(type) {
			case *ssa.Phi:
				phis = append(phis, f.translatePhi(v))
				continue
			case *ssa.DebugRef:
				continue
			}
			in := f.values.translate(instr)
			f.positions[instr] = Position{Block: seg, Index: len(seg.Instrs())}
			b.Append(seg, in)
			if in.mayFault() {
				faulting = append(faulting, segmentEnd{seg: seg, blk: blk, index: i})
			}
			if i < len(blk.Instrs)-1 && endsSegment(in) {
				next := b.Block(fmt.Sprintf("b%d.%d", blk.Index, len(segments[blk.Index])))
				b.Normal(seg, next)
				segments[blk.Index] = append(segments[blk.Index], next)
				seg = next
			}
		}
		b.Phi(segments[blk.Index][0], phis...)
	}
	head := func(blk *ssa.BasicBlock) *cfg.Block { return segments[blk.Index][0] }

	b.Normal(entry, head(fn.Blocks[0]))
	for _, blk := range fn.Blocks {
		tail := segments[blk.Index][len(segments[blk.Index])-1]
		last, _ := tail.Last().(*Instruction)
		if last == nil {
			b.Normal(tail, exit)
			continue
		}
		switch last.SSA().(type) {
		case *ssa.If:
			if last.Category() == ir.ConditionalBranch {
				b.Branch(tail, head(blk.Succs[0]), head(blk.Succs[1]))
			} else {
				b.Normal(tail, head(blk.Succs[0]), head(blk.Succs[1]))
			}
		case *ssa.Return:
			b.Normal(tail, exit)
		case *ssa.Panic:
		default:
			if len(blk.Succs) == 0 {
				logger.Debugf("block %d of %s ends with %s and has no successor", blk.Index, fn, last)
				b.Normal(tail, exit)
			}
			for _, succ := range blk.Succs {
				b.Normal(tail, head(succ))
			}
		}
	}

	var handler *cfg.Block
	if f.recovers {
		handler = head(fn.Recover)
		b.CatchAll(handler)
	}
	for _, end := range faulting {
		b.Exceptional(end.seg, exit)
		if handler != nil && end.recovered(defers) {
			b.Exceptional(end.seg, handler)
		}
	}

	b.Values(f.values.Len())
	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build the graph of %s: %w", fn, err)
	}
	f.graph = g
	if logger.LogsTrace() {
		logger.Tracef("graph of %s:\n%s", fn, g)
	}
	return f, nil
}

func (f *Function) translatePhi(phi *ssa.Phi) ir.Phi {
	sources := make([]int, 0, len(phi.Edges))
	for _, e := range phi.Edges {
		sources = append(sources, f.values.number(e))
	}
	return ir.NewPhi(f.values.number(phi), sources...)
}

// endsSegment returns true if the instruction must be the last of its block in the graph
func endsSegment(in *Instruction) bool {
	return in.Category() != ir.Other || len(in.Faults()) > 0
}

// mayFault returns true if the instruction needs exceptional successors
func (i *Instruction) mayFault() bool {
	return len(i.Faults()) > 0 || i.Category().IsCall()
}

// segmentEnd is a segment ending with the instruction at index of the SSA block blk
type segmentEnd struct {
	seg   *cfg.Block
	blk   *ssa.BasicBlock
	index int
}

// recovered returns true if one of the defers is always executed before the end of the segment
func (e segmentEnd) recovered(defers []*ssa.Defer) bool {
	for _, d := range defers {
		if maypanic.Covers(d, e.blk, e.index) {
			return true
		}
	}
	return false
}
