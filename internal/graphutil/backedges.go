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

import "github.com/willf/bitset"

// BackEdges returns the edges x -> y of the graph with nodes 0..n-1 such that y is on the current path of a
// depth-first traversal when x is visited. The traversal starts at root, and is then restarted from every node left
// unvisited in increasing order, so that every cycle of the graph contains at least one of the returned edges.
// Edges are returned in the order they are discovered.
func BackEdges(n int, root int, successors func(int) []int) []Edge {
	visited := bitset.New(uint(n))
	onStack := bitset.New(uint(n))
	var backEdges []Edge

	type frame struct {
		node int
		next int
	}

	dfs := func(start int) {
		stack := []frame{{node: start}}
		visited.Set(uint(start))
		onStack.Set(uint(start))
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := successors(top.node)
			if top.next >= len(succs) {
				onStack.Clear(uint(top.node))
				stack = stack[:len(stack)-1]
				continue
			}
			w := succs[top.next]
			top.next++
			switch {
			case onStack.Test(uint(w)):
				backEdges = append(backEdges, Edge{F: Node(top.node), T: Node(w)})
			case !visited.Test(uint(w)):
				visited.Set(uint(w))
				onStack.Set(uint(w))
				stack = append(stack, frame{node: w})
			}
		}
	}

	if n == 0 {
		return nil
	}
	dfs(root)
	for v := 0; v < n; v++ {
		if !visited.Test(uint(v)) {
			dfs(v)
		}
	}
	return backEdges
}
