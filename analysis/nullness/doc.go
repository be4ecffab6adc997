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

/*
Package nullness implements an intraprocedural analysis of the nullness of values, and uses its results to remove
infeasible edges from control-flow graphs.

Every value number of a procedure is given a [State] at the entry of every node of its control-flow graph. The
states are computed by a forward [Solver] over a [FlowGraph]: the control-flow graph where back edges are redirected
to the exit node. The merge of states at phis is not distributive, and the solver is only sound when the graph is
acyclic, hence the redirection. Loop-carried facts are lost, the result is sound and the solver terminates.

Transfer functions are attached to edges by [Classify]: a field access that completes proves its reference is not
nil, a field access that faults proves it is nil, a comparison against nil refines the compared value on each
branch, and so on.

Once the states are known, nodes whose instruction can only fault by dereferencing nil lose their exceptional edges
when the dereferenced value is never nil, and their normal edges when it is always nil. Nodes that cannot fault lose
their exceptional edges, and the exceptional edge to the exit of a node that also reaches a catch-all handler is
removed. The remaining graph is available as a [Pruned] view.

The [Analysis] type is generic over the node type of the graph, and can be used with both [cfg.BlockGraph] and
[cfg.ExplodedGraph]:

	a := nullness.NewBasicBlockAnalysis(g, nullness.Options{Symbols: symbols, NumParams: 2})
	n, err := a.Compute(ctx)
	if err != nil {
		return err // cancelled
	}
	pruned := a.PrunedCFG()
*/
package nullness
