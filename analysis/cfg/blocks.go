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

package cfg

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"golang.org/x/exp/slices"
)

// Block is a basic block. Only the last instruction of a block can change which successor is taken; frontends
// must end blocks after each instruction that may fault or that has a nullness-relevant effect.
type Block struct {
	number      int
	label       string
	instrs      []ir.Instruction
	phis        []ir.Phi
	normal      []*Block
	exceptional []*Block
	taken       *Block
	notTaken    *Block
	catchAll    bool
}

// Number returns the index of the block in its graph
func (b *Block) Number() int { return b.number }

// Label returns the label of the block
func (b *Block) Label() string { return b.label }

// Instrs returns the instructions of the block
func (b *Block) Instrs() []ir.Instruction { return b.instrs }

// Last returns the last instruction of the block, or nil if the block is empty
func (b *Block) Last() ir.Instruction {
	if len(b.instrs) == 0 {
		return nil
	}
	return b.instrs[len(b.instrs)-1]
}

func (b *Block) String() string {
	if b.label != "" {
		return b.label
	}
	return fmt.Sprintf("b%d", b.number)
}

// BlockGraph is an ordinary basic-block control-flow graph. It implements Graph[*Block].
// BlockGraphs are immutable once built.
type BlockGraph struct {
	blocks   []*Block
	entry    *Block
	exit     *Block
	maxValue int
}

var _ Graph[*Block] = (*BlockGraph)(nil)

func (g *BlockGraph) Nodes() []*Block                    { return g.blocks }
func (g *BlockGraph) Node(i int) *Block                  { return g.blocks[i] }
func (g *BlockGraph) Entry() *Block                      { return g.entry }
func (g *BlockGraph) Exit() *Block                       { return g.exit }
func (g *BlockGraph) NormalSuccs(b *Block) []*Block      { return b.normal }
func (g *BlockGraph) ExceptionalSuccs(b *Block) []*Block { return b.exceptional }
func (g *BlockGraph) Relevant(b *Block) ir.Instruction   { return b.Last() }
func (g *BlockGraph) Phis(b *Block) []ir.Phi             { return b.phis }
func (g *BlockGraph) CatchesAll(b *Block) bool           { return b.catchAll }
func (g *BlockGraph) MaxValueNumber() int                { return g.maxValue }

func (g *BlockGraph) BranchTargets(b *Block) (*Block, *Block, bool) {
	return b.taken, b.notTaken, b.taken != nil
}

// String prints the graph, one block per line followed by its instructions
func (g *BlockGraph) String() string {
	var sb strings.Builder
	for _, b := range g.blocks {
		fmt.Fprintf(&sb, "%s:", b)
		if b == g.entry {
			sb.WriteString(" (entry)")
		}
		if b == g.exit {
			sb.WriteString(" (exit)")
		}
		if b.catchAll {
			sb.WriteString(" (catch-all)")
		}
		sb.WriteString("\n")
		for _, phi := range b.phis {
			fmt.Fprintf(&sb, "\t%v\n", phi)
		}
		for _, instr := range b.instrs {
			fmt.Fprintf(&sb, "\t%s\n", instr)
		}
		if len(b.normal) > 0 {
			fmt.Fprintf(&sb, "\t-> %s\n", blockNames(b.normal))
		}
		if len(b.exceptional) > 0 {
			fmt.Fprintf(&sb, "\t=> %s\n", blockNames(b.exceptional))
		}
	}
	return sb.String()
}

func blockNames(blocks []*Block) string {
	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = b.String()
	}
	return strings.Join(names, ", ")
}

// Builder builds BlockGraphs. The first block created is the entry unless SetEntry is called.
type Builder struct {
	blocks   []*Block
	entry    *Block
	exit     *Block
	maxValue int
	err      error
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Block adds a new block labelled label with the given instructions
func (b *Builder) Block(label string, instrs ...ir.Instruction) *Block {
	blk := &Block{number: len(b.blocks), label: label, instrs: instrs}
	b.blocks = append(b.blocks, blk)
	if b.entry == nil {
		b.entry = blk
	}
	return blk
}

// Exit returns the exit block, creating it on first use
func (b *Builder) Exit() *Block {
	if b.exit == nil {
		b.exit = b.Block("exit")
	}
	return b.exit
}

// SetEntry sets the entry block
func (b *Builder) SetEntry(blk *Block) *Builder {
	b.entry = blk
	return b
}

// Append appends instructions to blk
func (b *Builder) Append(blk *Block, instrs ...ir.Instruction) *Builder {
	blk.instrs = append(blk.instrs, instrs...)
	return b
}

// Phi adds phi instructions at the entry of blk
func (b *Builder) Phi(blk *Block, phis ...ir.Phi) *Builder {
	blk.phis = append(blk.phis, phis...)
	return b
}

// Normal adds normal edges from src to each of dsts. Duplicate edges are ignored.
func (b *Builder) Normal(src *Block, dsts ...*Block) *Builder {
	for _, dst := range dsts {
		if !slices.Contains(src.normal, dst) {
			src.normal = append(src.normal, dst)
		}
	}
	return b
}

// Exceptional adds exceptional edges from src to each of dsts. Duplicate edges are ignored.
func (b *Builder) Exceptional(src *Block, dsts ...*Block) *Builder {
	for _, dst := range dsts {
		if !slices.Contains(src.exceptional, dst) {
			src.exceptional = append(src.exceptional, dst)
		}
	}
	return b
}

// Branch records the two targets of the conditional branch ending src, and adds the normal edges to them
func (b *Builder) Branch(src *Block, taken *Block, notTaken *Block) *Builder {
	if src.taken != nil {
		b.fail(fmt.Errorf("block %s already has branch targets", src))
		return b
	}
	src.taken = taken
	src.notTaken = notTaken
	return b.Normal(src, taken, notTaken)
}

// CatchAll marks blk as a handler that catches every fault
func (b *Builder) CatchAll(blk *Block) *Builder {
	blk.catchAll = true
	return b
}

// Values raises the maximum value number of the graph to at least n. Value numbers appearing in instructions and
// phis are accounted for automatically.
func (b *Builder) Values(n int) *Builder {
	if n > b.maxValue {
		b.maxValue = n
	}
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build validates and returns the graph. The exit block is created if it does not exist yet.
func (b *Builder) Build() (*BlockGraph, error) {
	if b.err != nil {
		return nil, b.err
	}
	exit := b.Exit()
	if len(exit.normal) > 0 || len(exit.exceptional) > 0 {
		return nil, fmt.Errorf("exit block %s has successors", exit)
	}
	maxValue := b.maxValue
	for _, blk := range b.blocks {
		if blk.taken != nil {
			last := blk.Last()
			if last == nil || last.Category() != ir.ConditionalBranch {
				return nil, fmt.Errorf("block %s has branch targets but does not end with a conditional branch", blk)
			}
		}
		for _, phi := range blk.phis {
			maxValue = maxOf(maxValue, phi.Def())
			for _, s := range phi.Sources() {
				maxValue = maxOf(maxValue, s)
			}
		}
		for _, instr := range blk.instrs {
			maxValue = maxOf(maxValue, instr.Ref(), instr.Def())
			if instr.Category() == ir.ConditionalBranch {
				x, y, _ := instr.Branch()
				maxValue = maxOf(maxValue, x, y)
			}
		}
	}
	return &BlockGraph{
		blocks:   b.blocks,
		entry:    b.entry,
		exit:     exit,
		maxValue: maxValue,
	}, nil
}

func maxOf(x int, ys ...int) int {
	for _, y := range ys {
		if y > x {
			x = y
		}
	}
	return x
}
