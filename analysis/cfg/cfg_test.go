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
	"strings"
	"testing"

	"github.com/awslabs/ar-go-nullness/analysis/ir"
)

// diamond builds
//
//	b0: v1 = v0.f ; if v1 == v2
//	b1: v0.g = ...
//	b2: nop
//	exit
//
// with a catch-all handler h receiving the faults of b0 and b1.
func diamond(t *testing.T) (*BlockGraph, map[string]*Block) {
	b := NewBuilder()
	b0 := b.Block("b0", ir.GetField(1, 0), ir.If(1, ir.OpEq, 2))
	b1 := b.Block("b1", ir.PutField(0))
	b2 := b.Block("b2")
	h := b.Block("h", ir.Nop("recover"))
	exit := b.Exit()
	b.Branch(b0, b1, b2).
		Exceptional(b0, h).
		Normal(b1, exit).
		Exceptional(b1, h).
		Normal(b2, exit).
		Normal(h, exit).
		CatchAll(h)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	return g, map[string]*Block{"b0": b0, "b1": b1, "b2": b2, "h": h, "exit": exit}
}

func TestBuilder(t *testing.T) {
	g, blocks := diamond(t)
	if g.Entry() != blocks["b0"] {
		t.Errorf("entry should be b0, got %s", g.Entry())
	}
	if g.Exit() != blocks["exit"] {
		t.Errorf("exit should be the exit block, got %s", g.Exit())
	}
	for i, n := range g.Nodes() {
		if n.Number() != i || g.Node(i) != n {
			t.Errorf("node %s is not numbered %d", n, i)
		}
	}
	if g.MaxValueNumber() != 2 {
		t.Errorf("max value number should be 2, got %d", g.MaxValueNumber())
	}
	taken, notTaken, ok := g.BranchTargets(blocks["b0"])
	if !ok || taken != blocks["b1"] || notTaken != blocks["b2"] {
		t.Errorf("unexpected branch targets %v %v %v", taken, notTaken, ok)
	}
	if _, _, ok := g.BranchTargets(blocks["b1"]); ok {
		t.Errorf("b1 should not have branch targets")
	}
	if !HasNormalEdge[*Block](g, blocks["b0"], blocks["b1"]) || !HasNormalEdge[*Block](g, blocks["b0"], blocks["b2"]) {
		t.Errorf("branch should add normal edges")
	}
	if !HasExceptionalEdge[*Block](g, blocks["b1"], blocks["h"]) {
		t.Errorf("missing exceptional edge b1 => h")
	}
	if !g.CatchesAll(blocks["h"]) || g.CatchesAll(blocks["b0"]) {
		t.Errorf("only h catches all")
	}
	if g.Relevant(blocks["b0"]).Category() != ir.ConditionalBranch {
		t.Errorf("relevant instruction of b0 should be the branch")
	}
	if g.Relevant(blocks["b2"]) != nil {
		t.Errorf("empty block should not have a relevant instruction")
	}
	normal, exceptional := NumEdges[*Block](g)
	if normal != 5 || exceptional != 2 {
		t.Errorf("expected 5 normal and 2 exceptional edges, got %d and %d", normal, exceptional)
	}
	if IsEmpty[*Block](g) {
		t.Errorf("graph is not empty")
	}
	if s := g.String(); !strings.Contains(s, "b0: (entry)") || !strings.Contains(s, "h: (catch-all)") {
		t.Errorf("unexpected graph string:\n%s", s)
	}
}

func TestBuilderDuplicateEdges(t *testing.T) {
	b := NewBuilder()
	b0 := b.Block("b0")
	exit := b.Exit()
	b.Normal(b0, exit).Normal(b0, exit).Exceptional(b0, exit).Exceptional(b0, exit)
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	normal, exceptional := NumEdges[*Block](g)
	if normal != 1 || exceptional != 1 {
		t.Errorf("duplicate edges should be ignored, got %d normal and %d exceptional", normal, exceptional)
	}
	if !IsEmpty[*Block](g) {
		t.Errorf("graph without instructions should be empty")
	}
}

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
	}{
		{"exit-with-successor", func(b *Builder) {
			b0 := b.Block("b0")
			b.Normal(b.Exit(), b0)
		}},
		{"branch-without-if", func(b *Builder) {
			b0 := b.Block("b0", ir.Nop("x"))
			b1 := b.Block("b1")
			b.Branch(b0, b1, b.Exit())
		}},
		{"branch-twice", func(b *Builder) {
			b0 := b.Block("b0", ir.If(0, ir.OpEq, 1))
			b1 := b.Block("b1")
			b.Branch(b0, b1, b.Exit())
			b.Branch(b0, b.Exit(), b1)
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := NewBuilder()
			test.build(b)
			if _, err := b.Build(); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestExplode(t *testing.T) {
	g, blocks := diamond(t)
	eg := Explode(g)
	// b0 has two instructions, the others one node each
	if len(eg.Nodes()) != 6 {
		t.Fatalf("expected 6 nodes, got %d:\n%s", len(eg.Nodes()), eg)
	}
	if eg.Original() != g {
		t.Errorf("original graph not recorded")
	}
	for i, n := range eg.Nodes() {
		if n.Number() != i || eg.Node(i) != n {
			t.Errorf("node %s is not numbered %d", n, i)
		}
	}
	entry := eg.Entry()
	if entry.Block() != blocks["b0"] || entry.Index() != 0 {
		t.Fatalf("entry should be the first instruction of b0, got %s", entry)
	}
	if eg.Relevant(entry).Category() != ir.FieldRead {
		t.Errorf("entry should hold the field read")
	}
	// the field read faults, so it keeps the exceptional edge of its block
	if len(eg.ExceptionalSuccs(entry)) != 1 || eg.ExceptionalSuccs(entry)[0].Block() != blocks["h"] {
		t.Errorf("field read should have an exceptional edge to h")
	}
	if _, _, ok := eg.BranchTargets(entry); ok {
		t.Errorf("field read is not a branch")
	}
	branch := eg.NormalSuccs(entry)[0]
	if branch.Index() != 1 || eg.Relevant(branch).Category() != ir.ConditionalBranch {
		t.Fatalf("second node of b0 should be the branch, got %s", branch)
	}
	taken, notTaken, ok := eg.BranchTargets(branch)
	if !ok || taken.Block() != blocks["b1"] || notTaken.Block() != blocks["b2"] {
		t.Errorf("unexpected branch targets %v %v", taken, notTaken)
	}
	if eg.Exit().Block() != blocks["exit"] || len(eg.NormalSuccs(eg.Exit())) != 0 {
		t.Errorf("exit should be the node of the exit block")
	}
	var handler *ExplodedNode
	for _, n := range eg.Nodes() {
		if n.Block() == blocks["h"] {
			handler = n
		}
	}
	if handler == nil || !eg.CatchesAll(handler) {
		t.Errorf("handler node should catch all")
	}
	if eg.MaxValueNumber() != g.MaxValueNumber() {
		t.Errorf("max value number should be preserved")
	}
}

func TestExplodePhisOnFirstNode(t *testing.T) {
	b := NewBuilder()
	b0 := b.Block("b0", ir.Alloc(0))
	b1 := b.Block("b1", ir.GetField(2, 1), ir.Invoke(3, 2), ir.Nop("ret"))
	h := b.Block("h")
	exit := b.Exit()
	b.Normal(b0, b1).Normal(b1, exit).Exceptional(b1, h).Normal(h, exit).Phi(b1, ir.NewPhi(1, 0))
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	eg := Explode(g)
	var nodes []*ExplodedNode
	for _, n := range eg.Nodes() {
		if n.Block() == b1 {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes for b1, got %d", len(nodes))
	}
	if len(eg.Phis(nodes[0])) != 1 || len(eg.Phis(nodes[1])) != 0 {
		t.Errorf("phis should be carried by the first node only")
	}
	// field read faults, call may fault, nop is last and carries the block's edges
	for i, n := range nodes {
		if len(eg.ExceptionalSuccs(n)) != 1 {
			t.Errorf("node %d of b1 should have an exceptional successor", i)
		}
	}
	if eg.MaxValueNumber() != 3 {
		t.Errorf("max value number should be 3, got %d", eg.MaxValueNumber())
	}
}
