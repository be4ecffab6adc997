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

// StronglyConnectedComponents returns the strongly connected components of the graph given by nodes and
// successors, using Tarjan's algorithm. Components come in reverse topological order: every component reachable
// from another one comes before it, so bottom-up summaries can be computed by visiting the result in order.
// The order of the nodes inside a component is arbitrary.
// The traversal keeps its own stack, so long call chains do not grow the goroutine stack.
func StronglyConnectedComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	type frame struct {
		node  T
		succs []T
		next  int
	}
	var (
		sccs    [][]T
		stack   []T
		onStack = map[T]bool{}
		index   = map[T]int{}
		low     = map[T]int{}
	)
	enter := func(v T) frame {
		index[v] = len(index)
		low[v] = index[v]
		stack = append(stack, v)
		onStack[v] = true
		return frame{node: v, succs: successors(v)}
	}

	for _, root := range nodes {
		if _, seen := index[root]; seen {
			continue
		}
		frames := []frame{enter(root)}
		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			if top.next < len(top.succs) {
				w := top.succs[top.next]
				top.next++
				if _, seen := index[w]; !seen {
					frames = append(frames, enter(w))
				} else if onStack[w] && index[w] < low[top.node] {
					low[top.node] = index[w]
				}
				continue
			}

			v := top.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
			if low[v] != index[v] {
				continue
			}
			var scc []T
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}
	return sccs
}
