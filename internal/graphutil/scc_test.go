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
	"math/rand"
	"sort"
	"testing"

	yb "github.com/yourbasic/graph"
)

type intGraph map[int][]int

// Returns a closure which gives the successors of a node
func succFunc(m intGraph) func(int) []int {
	return func(k int) []int { return m[k] }
}

// randomGraph returns a graph of size nodes with up to three random successors per node
func randomGraph(size int, seed int64) intGraph {
	m := intGraph{}
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < size; i++ {
		m[i] = []int{}
		for j := 0; j < 3; j++ {
			if r.Float32() < 0.7 {
				m[i] = append(m[i], r.Intn(size))
			}
		}
	}
	return m
}

// reaches returns true if y is reachable from x
func reaches(m intGraph, x, y int) bool {
	visited := map[int]bool{x: true}
	todo := []int{x}
	for len(todo) > 0 {
		n := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		for _, s := range m[n] {
			if !visited[s] {
				visited[s] = true
				todo = append(todo, s)
			}
		}
	}
	return visited[y]
}

// canonical sorts the nodes of each component and the components by their smallest node
func canonical(sccs [][]int) [][]int {
	res := make([][]int, len(sccs))
	for i, scc := range sccs {
		res[i] = append([]int(nil), scc...)
		sort.Ints(res[i])
	}
	sort.Slice(res, func(i, j int) bool { return res[i][0] < res[j][0] })
	return res
}

func adjacencyOf(m intGraph) *Adjacency {
	a := NewAdjacency(len(m))
	for n, succs := range m {
		for _, s := range succs {
			a.AddEdge(n, s)
		}
	}
	return a
}

func checkOrder(t *testing.T, m intGraph, sccs [][]int) {
	t.Helper()
	position := map[int]int{}
	for i, scc := range sccs {
		for _, n := range scc {
			position[n] = i
		}
	}
	for n, succs := range m {
		for _, s := range succs {
			if position[s] > position[n] {
				t.Fatalf("component of %d comes after its predecessor %d in %v", s, n, sccs)
			}
		}
	}
}

func TestSCCSmallGraphs(t *testing.T) {
	tests := []struct {
		name     string
		graph    intGraph
		expected [][]int
	}{
		{"single", intGraph{0: {}}, [][]int{{0}}},
		{"self-loop", intGraph{0: {0}}, [][]int{{0}}},
		{"chain", intGraph{0: {1}, 1: {2}, 2: {}}, [][]int{{2}, {1}, {0}}},
		{"mutual-recursion", intGraph{0: {1}, 1: {2}, 2: {1, 3}, 3: {}}, [][]int{{3}, {1, 2}, {0}}},
		{"two-roots", intGraph{0: {2}, 1: {2}, 2: {}}, [][]int{{2}, {0}, {1}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sccs := StronglyConnectedComponents([]int{0, 1, 2, 3}[:len(test.graph)], succFunc(test.graph))
			for _, scc := range sccs {
				sort.Ints(scc)
			}
			if len(sccs) != len(test.expected) {
				t.Fatalf("expected %v, got %v", test.expected, sccs)
			}
			for i := range sccs {
				if len(sccs[i]) != len(test.expected[i]) {
					t.Fatalf("expected %v, got %v", test.expected, sccs)
				}
				for j := range sccs[i] {
					if sccs[i][j] != test.expected[i][j] {
						t.Fatalf("expected %v, got %v", test.expected, sccs)
					}
				}
			}
		})
	}
}

func TestSCCRandomGraphs(t *testing.T) {
	for i := 0; i < 100; i++ {
		m := randomGraph(5+i%40, 68348438+int64(i))
		nodes := make([]int, len(m))
		for n := range nodes {
			nodes[n] = n
		}
		sccs := StronglyConnectedComponents(nodes, succFunc(m))
		checkOrder(t, m, sccs)

		got := canonical(sccs)
		expected := canonical(yb.StrongComponents(adjacencyOf(m)))
		if len(got) != len(expected) {
			t.Fatalf("graph %v: expected components %v, got %v", m, expected, got)
		}
		for k := range got {
			if len(got[k]) != len(expected[k]) || got[k][0] != expected[k][0] {
				t.Fatalf("graph %v: expected components %v, got %v", m, expected, got)
			}
		}
	}
}

func TestSCCDeepChain(t *testing.T) {
	const depth = 200000
	succs := func(n int) []int {
		if n+1 < depth {
			return []int{n + 1}
		}
		return []int{0}
	}
	sccs := StronglyConnectedComponents([]int{0}, succs)
	if len(sccs) != 1 || len(sccs[0]) != depth {
		t.Fatalf("expected a single component of %d nodes, got %d components", depth, len(sccs))
	}
}
