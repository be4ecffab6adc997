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
	"fmt"

	"github.com/awslabs/ar-go-nullness/analysis/cfg"
	"github.com/awslabs/ar-go-nullness/internal/graphutil"
	"github.com/cockroachdb/errors"
	"github.com/yourbasic/graph"
)

// EdgeKind distinguishes normal edges from exceptional edges
type EdgeKind uint8

const (
	// Normal edges are followed when the instruction of their source completes
	Normal EdgeKind = iota
	// Exceptional edges are followed when the instruction of their source faults
	Exceptional
)

func (k EdgeKind) String() string {
	if k == Exceptional {
		return "exceptional"
	}
	return "normal"
}

// FlowEdge is an edge of the flow graph. To differs from Original when the edge was a back edge of the
// control-flow graph and has been redirected to the exit node.
type FlowEdge struct {
	From     int
	To       int
	Original int
	Kind     EdgeKind
}

// Redirected returns true if the edge was redirected to the exit node
func (e FlowEdge) Redirected() bool {
	return e.To != e.Original
}

func (e FlowEdge) String() string {
	if e.Redirected() {
		return fmt.Sprintf("%d->%d (%s, was ->%d)", e.From, e.To, e.Kind, e.Original)
	}
	return fmt.Sprintf("%d->%d (%s)", e.From, e.To, e.Kind)
}

// FlowGraph is the acyclic graph the solver runs on. Its nodes are the node numbers of a control-flow graph; its
// edges are the edges of the control-flow graph, except for back edges that are redirected to the exit node.
type FlowGraph struct {
	order     int
	entry     int
	exit      int
	edges     []FlowEdge
	in        [][]int
	out       [][]int
	backEdges []graphutil.Edge
	topo      []int
	mutable   *graph.Mutable
}

// BuildFlowGraph returns the flow graph of g. g is not modified.
func BuildFlowGraph[N cfg.Node](g cfg.Graph[N]) *FlowGraph {
	nodes := g.Nodes()
	n := len(nodes)
	fg := &FlowGraph{
		order: n,
		entry: g.Entry().Number(),
		exit:  g.Exit().Number(),
		in:    make([][]int, n),
		out:   make([][]int, n),
	}

	adj := graphutil.NewAdjacency(n)
	for _, node := range nodes {
		for _, s := range g.NormalSuccs(node) {
			adj.AddEdge(node.Number(), s.Number())
		}
		for _, s := range g.ExceptionalSuccs(node) {
			adj.AddEdge(node.Number(), s.Number())
		}
	}
	fg.backEdges = graphutil.BackEdges(n, fg.entry, adj.Succs)
	isBack := make(map[graphutil.Edge]bool, len(fg.backEdges))
	for _, e := range fg.backEdges {
		isBack[e] = true
	}

	fg.mutable = graph.Copy(adj)
	for _, e := range fg.backEdges {
		fg.mutable.Delete(int(e.F), int(e.T))
		fg.mutable.Add(int(e.F), fg.exit)
	}

	addEdges := func(src int, succs []N, kind EdgeKind) {
		for _, s := range succs {
			e := FlowEdge{From: src, To: s.Number(), Original: s.Number(), Kind: kind}
			if isBack[graphutil.Edge{F: graphutil.Node(src), T: graphutil.Node(e.To)}] {
				e.To = fg.exit
			}
			fg.out[e.From] = append(fg.out[e.From], len(fg.edges))
			fg.in[e.To] = append(fg.in[e.To], len(fg.edges))
			fg.edges = append(fg.edges, e)
		}
	}
	for _, node := range nodes {
		addEdges(node.Number(), g.NormalSuccs(node), Normal)
		addEdges(node.Number(), g.ExceptionalSuccs(node), Exceptional)
	}

	topo, ok := graph.TopSort(fg.mutable)
	if !ok {
		panic(errors.AssertionFailedf("flow graph still has cycles after redirecting %d back edges",
			len(fg.backEdges)))
	}
	fg.topo = topo
	return fg
}

// Order returns the number of nodes
func (fg *FlowGraph) Order() int { return fg.order }

// Entry returns the number of the entry node
func (fg *FlowGraph) Entry() int { return fg.entry }

// Exit returns the number of the exit node
func (fg *FlowGraph) Exit() int { return fg.exit }

// TopologicalOrder returns the nodes in an order where every edge goes forward
func (fg *FlowGraph) TopologicalOrder() []int { return fg.topo }

// Edges returns all the edges
func (fg *FlowGraph) Edges() []FlowEdge { return fg.edges }

// In returns the indexes in Edges of the edges entering n
func (fg *FlowGraph) In(n int) []int { return fg.in[n] }

// Out returns the indexes in Edges of the edges leaving n
func (fg *FlowGraph) Out(n int) []int { return fg.out[n] }

// BackEdges returns the back edges of the original graph
func (fg *FlowGraph) BackEdges() []graphutil.Edge { return fg.backEdges }

// Redirected returns the edges that were redirected to the exit node
func (fg *FlowGraph) Redirected() []FlowEdge {
	var res []FlowEdge
	for _, e := range fg.edges {
		if e.Redirected() {
			res = append(res, e)
		}
	}
	return res
}

// Graph returns the flow graph as a yourbasic graph, where parallel edges of different kinds are merged
func (fg *FlowGraph) Graph() graph.Iterator { return fg.mutable }
