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

// Package cfg defines the control-flow graph contract of the nullness analysis and provides two implementations:
// an ordinary basic-block graph, and an "exploded" graph with one instruction per node.
//
// Both graphs distinguish normal successors from exceptional successors. A node carries at most one relevant
// instruction (the one whose outcome decides which successor is taken) and zero or more phi instructions at its
// entry.
package cfg

import (
	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"golang.org/x/exp/slices"
)

// Node is a numbered node of a control-flow graph. Numbers are dense, starting at 0.
type Node interface {
	comparable
	Number() int
}

// Graph is the capability the nullness analysis needs from a control-flow graph.
type Graph[N Node] interface {
	// Nodes returns all the nodes, such that Nodes()[i].Number() == i
	Nodes() []N

	// Node returns the node numbered i
	Node(i int) N

	// Entry returns the entry node
	Entry() N

	// Exit returns the exit node. The exit node has no successors.
	Exit() N

	// NormalSuccs returns the successors of n reached when its relevant instruction completes normally
	NormalSuccs(n N) []N

	// ExceptionalSuccs returns the successors of n reached when its relevant instruction faults
	ExceptionalSuccs(n N) []N

	// Relevant returns the instruction terminating n, or nil. It is the only instruction of n the analysis
	// transfers: earlier instructions of a block are ignored, so graphs built for the analysis end a block at each
	// instruction that can fault or branch.
	Relevant(n N) ir.Instruction

	// Phis returns the phi instructions at the entry of n
	Phis(n N) []ir.Phi

	// BranchTargets returns the successors of a conditional branch, with ok set to false if n does not end with a
	// conditional branch
	BranchTargets(n N) (taken N, notTaken N, ok bool)

	// CatchesAll returns true when n is a handler catching every fault
	CatchesAll(n N) bool

	// MaxValueNumber returns the largest value number used in the procedure
	MaxValueNumber() int
}

// IsEmpty returns true when no node of g carries a relevant instruction or a phi
func IsEmpty[N Node](g Graph[N]) bool {
	for _, n := range g.Nodes() {
		if g.Relevant(n) != nil || len(g.Phis(n)) > 0 {
			return false
		}
	}
	return true
}

// HasNormalEdge returns true when dst is a normal successor of src
func HasNormalEdge[N Node](g Graph[N], src, dst N) bool {
	return slices.Contains(g.NormalSuccs(src), dst)
}

// HasExceptionalEdge returns true when dst is an exceptional successor of src
func HasExceptionalEdge[N Node](g Graph[N], src, dst N) bool {
	return slices.Contains(g.ExceptionalSuccs(src), dst)
}

// NumEdges returns the number of normal and exceptional edges of g
func NumEdges[N Node](g Graph[N]) (normal int, exceptional int) {
	for _, n := range g.Nodes() {
		normal += len(g.NormalSuccs(n))
		exceptional += len(g.ExceptionalSuccs(n))
	}
	return normal, exceptional
}
