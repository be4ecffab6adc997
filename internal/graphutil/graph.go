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

package graphutil

import (
	yb "github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
)

// Adjacency is a directed graph over the nodes 0..n-1 stored as successor and predecessor lists. It implements
// the methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Directed, so that the algorithms of both
// libraries can be run on control-flow graphs once their nodes are numbered.
type Adjacency struct {
	succs [][]int
	preds [][]int
}

var (
	_ yb.Iterator    = (*Adjacency)(nil)
	_ graph.Directed = (*Adjacency)(nil)
)

// NewAdjacency returns a graph with n nodes and no edges
func NewAdjacency(n int) *Adjacency {
	return &Adjacency{
		succs: make([][]int, n),
		preds: make([][]int, n),
	}
}

// FromIterator returns the adjacency of any yourbasic graph
func FromIterator(g yb.Iterator) *Adjacency {
	a := NewAdjacency(g.Order())
	for v := 0; v < g.Order(); v++ {
		g.Visit(v, func(w int, _ int64) bool {
			a.AddEdge(v, w)
			return false
		})
	}
	return a
}

// AddEdge adds the edge x -> y if it is not already present
func (a *Adjacency) AddEdge(x, y int) {
	if slices.Contains(a.succs[x], y) {
		return
	}
	a.succs[x] = append(a.succs[x], y)
	a.preds[y] = append(a.preds[y], x)
}

// Succs returns the successors of v
func (a *Adjacency) Succs(v int) []int {
	return a.succs[v]
}

// Order implements the order of the graph.Iterator interface
func (a *Adjacency) Order() int {
	return len(a.succs)
}

// Visit implements the graph.Iterator interface
func (a *Adjacency) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range a.succs[v] {
		if do(w, 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

func (a *Adjacency) has(id int64) bool {
	return id >= 0 && id < int64(len(a.succs))
}

// Node implements the Graph interface
func (a *Adjacency) Node(id int64) graph.Node {
	if !a.has(id) {
		return nil
	}
	return Node(id)
}

// Nodes returns the set of nodes in the graph
func (a *Adjacency) Nodes() graph.Nodes {
	ids := make([]int, len(a.succs))
	for i := range ids {
		ids[i] = i
	}
	return newNodeSet(ids)
}

// From returns the set of nodes reachable from the id by one edge
func (a *Adjacency) From(id int64) graph.Nodes {
	if !a.has(id) {
		return newNodeSet(nil)
	}
	return newNodeSet(a.succs[id])
}

// To returns the set of nodes that reach the id by one edge
func (a *Adjacency) To(id int64) graph.Nodes {
	if !a.has(id) {
		return newNodeSet(nil)
	}
	return newNodeSet(a.preds[id])
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (a *Adjacency) HasEdgeBetween(xid, yid int64) bool {
	return a.HasEdgeFromTo(xid, yid) || a.HasEdgeFromTo(yid, xid)
}

// HasEdgeFromTo returns whether the directed edge uid -> vid exists
func (a *Adjacency) HasEdgeFromTo(uid, vid int64) bool {
	if !a.has(uid) || !a.has(vid) {
		return false
	}
	return slices.Contains(a.succs[uid], int(vid))
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (a *Adjacency) Edge(uid, vid int64) graph.Edge {
	if a.HasEdgeFromTo(uid, vid) {
		return Edge{F: Node(uid), T: Node(vid)}
	}
	return nil
}

// *************** Nodes implementation **********************

// Node is an integer node that implements the graph.Node interface
type Node int64

// ID returns the id of the node
func (n Node) ID() int64 {
	return int64(n)
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// ids is the set of node ids in the iterator
	ids []int

	// cur is the current index of the iterator. The current node is ids[cur]
	// invariant: -1 <= cur < len(ids)
	cur int
}

func newNodeSet(ids []int) *NodeSet {
	return &NodeSet{ids: ids, cur: -1}
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the iterator before its first node
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set, or nil if the iterator has not started
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return Node(ns.ids[ns.cur])
}

// *************** Edge implementation **********************

// Edge implements the graph.Edge interface
type Edge struct {
	F Node
	T Node
}

// From returns the origin of the edge
func (e Edge) From() graph.Node {
	return e.F
}

// To returns the destination of the edge
func (e Edge) To() graph.Node {
	return e.T
}

// ReversedEdge returns a new value representing the reversed edge
func (e Edge) ReversedEdge() graph.Edge {
	return Edge{F: e.T, T: e.F}
}
