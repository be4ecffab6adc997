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
)

// ExplodedNode is a node of an ExplodedGraph. It holds at most one instruction of its originating block.
type ExplodedNode struct {
	number      int
	block       *Block
	index       int
	instr       ir.Instruction
	phis        []ir.Phi
	normal      []*ExplodedNode
	exceptional []*ExplodedNode
	taken       *ExplodedNode
	notTaken    *ExplodedNode
	catchAll    bool
}

// Number returns the index of the node in its graph
func (n *ExplodedNode) Number() int { return n.number }

// Block returns the basic block the node was exploded from
func (n *ExplodedNode) Block() *Block { return n.block }

// Index returns the index of the node's instruction in its block, or -1 if the node holds no instruction
func (n *ExplodedNode) Index() int { return n.index }

// Instr returns the instruction of the node, or nil
func (n *ExplodedNode) Instr() ir.Instruction { return n.instr }

func (n *ExplodedNode) String() string {
	if n.index < 0 {
		return fmt.Sprintf("%s[-]", n.block)
	}
	return fmt.Sprintf("%s[%d]", n.block, n.index)
}

// ExplodedGraph is a control-flow graph with one node per instruction. It implements Graph[*ExplodedNode].
type ExplodedGraph struct {
	nodes    []*ExplodedNode
	entry    *ExplodedNode
	exit     *ExplodedNode
	maxValue int
	original *BlockGraph
}

var _ Graph[*ExplodedNode] = (*ExplodedGraph)(nil)

func (g *ExplodedGraph) Nodes() []*ExplodedNode   { return g.nodes }
func (g *ExplodedGraph) Node(i int) *ExplodedNode { return g.nodes[i] }
func (g *ExplodedGraph) Entry() *ExplodedNode     { return g.entry }
func (g *ExplodedGraph) Exit() *ExplodedNode      { return g.exit }
func (g *ExplodedGraph) MaxValueNumber() int      { return g.maxValue }

func (g *ExplodedGraph) NormalSuccs(n *ExplodedNode) []*ExplodedNode { return n.normal }

func (g *ExplodedGraph) ExceptionalSuccs(n *ExplodedNode) []*ExplodedNode { return n.exceptional }

func (g *ExplodedGraph) Relevant(n *ExplodedNode) ir.Instruction { return n.instr }

func (g *ExplodedGraph) Phis(n *ExplodedNode) []ir.Phi { return n.phis }

func (g *ExplodedGraph) CatchesAll(n *ExplodedNode) bool { return n.catchAll }

func (g *ExplodedGraph) BranchTargets(n *ExplodedNode) (*ExplodedNode, *ExplodedNode, bool) {
	return n.taken, n.notTaken, n.taken != nil
}

// Original returns the basic-block graph g was exploded from
func (g *ExplodedGraph) Original() *BlockGraph { return g.original }

func (g *ExplodedGraph) String() string {
	var sb strings.Builder
	for _, n := range g.nodes {
		fmt.Fprintf(&sb, "%d %s", n.number, n)
		if n.instr != nil {
			fmt.Fprintf(&sb, " %s", n.instr)
		}
		if len(n.normal) > 0 {
			fmt.Fprintf(&sb, " -> %s", nodeNumbers(n.normal))
		}
		if len(n.exceptional) > 0 {
			fmt.Fprintf(&sb, " => %s", nodeNumbers(n.exceptional))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func nodeNumbers(nodes []*ExplodedNode) string {
	s := make([]string, len(nodes))
	for i, n := range nodes {
		s[i] = fmt.Sprint(n.number)
	}
	return strings.Join(s, ",")
}

// Explode returns the exploded view of g. Every instruction of g becomes its own node, and empty blocks become a
// single node without instruction. Phis and the catch-all flag of a block are carried by its first node. The
// exceptional edges of a block leave from its last node, and from any other node whose instruction declares faults
// or is a call.
func Explode(g *BlockGraph) *ExplodedGraph {
	eg := &ExplodedGraph{maxValue: g.maxValue, original: g}
	first := make([]*ExplodedNode, len(g.blocks))
	last := make([]*ExplodedNode, len(g.blocks))

	newNode := func(b *Block, index int, instr ir.Instruction) *ExplodedNode {
		n := &ExplodedNode{number: len(eg.nodes), block: b, index: index, instr: instr}
		eg.nodes = append(eg.nodes, n)
		return n
	}

	for _, b := range g.blocks {
		if len(b.instrs) == 0 {
			n := newNode(b, -1, nil)
			first[b.number], last[b.number] = n, n
		} else {
			var prev *ExplodedNode
			for i, instr := range b.instrs {
				n := newNode(b, i, instr)
				if prev == nil {
					first[b.number] = n
				} else {
					prev.normal = append(prev.normal, n)
				}
				prev = n
			}
			last[b.number] = prev
		}
		first[b.number].phis = b.phis
		first[b.number].catchAll = b.catchAll
	}

	heads := func(blocks []*Block) []*ExplodedNode {
		res := make([]*ExplodedNode, len(blocks))
		for i, b := range blocks {
			res[i] = first[b.number]
		}
		return res
	}

	for _, b := range g.blocks {
		exc := heads(b.exceptional)
		tail := last[b.number]
		tail.normal = heads(b.normal)
		tail.exceptional = exc
		if b.taken != nil {
			tail.taken = first[b.taken.number]
			tail.notTaken = first[b.notTaken.number]
		}
		if len(exc) == 0 {
			continue
		}
		for n := first[b.number]; n != tail; n = n.normal[0] {
			if len(n.instr.Faults()) > 0 || n.instr.Category().IsCall() {
				n.exceptional = exc
			}
		}
	}

	eg.entry = first[g.entry.number]
	eg.exit = last[g.exit.number]
	return eg
}
