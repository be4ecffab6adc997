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
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

// DeletedEdge is an edge of a control-flow graph, identified by the numbers of its nodes and its kind
type DeletedEdge struct {
	From int
	To   int
	Kind EdgeKind
}

// DeletedEdges is the set of edges the analysis proved infeasible, kept as one graph per edge kind over the node
// numbers of the analyzed control-flow graph.
type DeletedEdges struct {
	normal      *graph.Mutable
	exceptional *graph.Mutable
	count       int
}

// NewDeletedEdges returns an empty set of deleted edges over n nodes
func NewDeletedEdges(n int) *DeletedEdges {
	return &DeletedEdges{
		normal:      graph.New(n),
		exceptional: graph.New(n),
	}
}

func (d *DeletedEdges) graph(kind EdgeKind) *graph.Mutable {
	if kind == Exceptional {
		return d.exceptional
	}
	return d.normal
}

// Delete records the deletion of an edge, and returns false if it was already deleted
func (d *DeletedEdges) Delete(kind EdgeKind, from, to int) bool {
	g := d.graph(kind)
	if g.Edge(from, to) {
		return false
	}
	g.Add(from, to)
	d.count++
	return true
}

// Has returns true if the edge has been deleted
func (d *DeletedEdges) Has(kind EdgeKind, from, to int) bool {
	return d.graph(kind).Edge(from, to)
}

// Len returns the number of deleted edges
func (d *DeletedEdges) Len() int {
	return d.count
}

// Edges returns the deleted edges, ordered by source, kind and destination
func (d *DeletedEdges) Edges() []DeletedEdge {
	var res []DeletedEdge
	for v := 0; v < d.normal.Order(); v++ {
		for _, kind := range []EdgeKind{Normal, Exceptional} {
			var dsts []int
			d.graph(kind).Visit(v, func(w int, _ int64) bool {
				dsts = append(dsts, w)
				return false
			})
			slices.Sort(dsts)
			for _, w := range dsts {
				res = append(res, DeletedEdge{From: v, To: w, Kind: kind})
			}
		}
	}
	return res
}

// Graph returns the deleted edges of one kind as a yourbasic graph
func (d *DeletedEdges) Graph(kind EdgeKind) graph.Iterator {
	return d.graph(kind)
}
