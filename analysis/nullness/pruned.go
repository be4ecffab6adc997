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
	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"github.com/awslabs/ar-go-nullness/internal/graphutil"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// Pruned is a control-flow graph filtered by a set of deleted edges. It has all the nodes of the original graph,
// including the ones that are no longer reachable from the entry; Reachable lists the nodes that still are.
type Pruned[N cfg.Node] struct {
	g           cfg.Graph[N]
	normal      [][]N
	exceptional [][]N
	adj         *graphutil.Adjacency
}

var _ cfg.Graph[*cfg.Block] = (*Pruned[*cfg.Block])(nil)

// Prune returns the view of g without the edges in deleted
func Prune[N cfg.Node](g cfg.Graph[N], deleted *DeletedEdges) *Pruned[N] {
	nodes := g.Nodes()
	p := &Pruned[N]{
		g:           g,
		normal:      make([][]N, len(nodes)),
		exceptional: make([][]N, len(nodes)),
		adj:         graphutil.NewAdjacency(len(nodes)),
	}
	keep := func(kind EdgeKind, n N, succs []N) []N {
		var kept []N
		for _, s := range succs {
			if !deleted.Has(kind, n.Number(), s.Number()) {
				kept = append(kept, s)
				p.adj.AddEdge(n.Number(), s.Number())
			}
		}
		return kept
	}
	for _, n := range nodes {
		p.normal[n.Number()] = keep(Normal, n, g.NormalSuccs(n))
		p.exceptional[n.Number()] = keep(Exceptional, n, g.ExceptionalSuccs(n))
	}
	return p
}

func (p *Pruned[N]) Nodes() []N { return p.g.Nodes() }

func (p *Pruned[N]) Node(i int) N { return p.g.Node(i) }

func (p *Pruned[N]) Entry() N { return p.g.Entry() }

func (p *Pruned[N]) Exit() N { return p.g.Exit() }

func (p *Pruned[N]) NormalSuccs(n N) []N { return p.normal[n.Number()] }

func (p *Pruned[N]) ExceptionalSuccs(n N) []N { return p.exceptional[n.Number()] }

func (p *Pruned[N]) Relevant(n N) ir.Instruction { return p.g.Relevant(n) }

func (p *Pruned[N]) Phis(n N) []ir.Phi { return p.g.Phis(n) }

func (p *Pruned[N]) CatchesAll(n N) bool { return p.g.CatchesAll(n) }

func (p *Pruned[N]) MaxValueNumber() int { return p.g.MaxValueNumber() }

// BranchTargets returns the targets of the original graph when both branch edges are kept
func (p *Pruned[N]) BranchTargets(n N) (N, N, bool) {
	taken, notTaken, ok := p.g.BranchTargets(n)
	if !ok || !cfg.HasNormalEdge[N](p, n, taken) || !cfg.HasNormalEdge[N](p, n, notTaken) {
		var zero N
		return zero, zero, false
	}
	return taken, notTaken, true
}

// Original returns the graph that was pruned
func (p *Pruned[N]) Original() cfg.Graph[N] { return p.g }

// Directed returns the pruned graph as a gonum graph whose node IDs are the node numbers
func (p *Pruned[N]) Directed() graph.Directed { return p.adj }

// Reachable returns the nodes reachable from the entry, in increasing order of their numbers
func (p *Pruned[N]) Reachable() []N {
	reached := make([]bool, len(p.g.Nodes()))
	bfs := traverse.BreadthFirst{Visit: func(n graph.Node) { reached[n.ID()] = true }}
	bfs.Walk(p.adj, p.adj.Node(int64(p.Entry().Number())), nil)
	var res []N
	for i, ok := range reached {
		if ok {
			res = append(res, p.g.Node(i))
		}
	}
	return res
}

// Unreachable returns the nodes that are not reachable from the entry, in increasing order of their numbers
func (p *Pruned[N]) Unreachable() []N {
	reachable := p.Reachable()
	var res []N
	j := 0
	for _, n := range p.g.Nodes() {
		if j < len(reachable) && reachable[j] == n {
			j++
			continue
		}
		res = append(res, n)
	}
	return res
}

// HasExceptions returns true if some node still has an exceptional successor
func (p *Pruned[N]) HasExceptions() bool {
	for _, succs := range p.exceptional {
		if len(succs) > 0 {
			return true
		}
	}
	return false
}
