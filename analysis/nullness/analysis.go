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
	"context"

	"github.com/awslabs/ar-go-nullness/analysis/cfg"
	"github.com/awslabs/ar-go-nullness/analysis/config"
	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
)

// Options configure an Analysis
type Options struct {
	// Symbols identifies the constants of the procedure. It is required.
	Symbols ir.SymbolTable

	// Oracle decides whether calls may fault. If nil, every call may fault.
	Oracle FaultOracle

	// Ignore lists the fault kinds that are never considered possible
	Ignore []ir.FaultKind

	// Seed is the initial state of the parameters. If nil, DefaultSeed(NumParams, Static) is used.
	Seed *Seed

	// Static is true for procedures without receiver
	Static bool

	// NumParams is the number of parameters of the procedure, including the receiver
	NumParams int

	// Logger receives the messages of the analysis. If nil, only errors are logged.
	Logger *config.LogGroup
}

// Analysis is the nullness analysis of one procedure, over a control-flow graph whose nodes have type N.
// An Analysis is not safe for concurrent use.
type Analysis[N cfg.Node] struct {
	g         cfg.Graph[N]
	symbols   ir.SymbolTable
	oracle    FaultOracle
	ignore    mapset.Set[ir.FaultKind]
	seed      *Seed
	logger    *config.LogGroup
	constants *Constants
	empty     bool

	classes []Classification
	flow    *FlowGraph
	solver  *Solver
	deleted *DeletedEdges
	pruned  *Pruned[N]
	count   int
	done    bool
	err     error
}

// New returns the analysis of g
func New[N cfg.Node](g cfg.Graph[N], opts Options) *Analysis[N] {
	if opts.Symbols == nil {
		panic(errors.AssertionFailedf("nullness analysis requires a symbol table"))
	}
	a := &Analysis[N]{
		g:       g,
		symbols: opts.Symbols,
		oracle:  opts.Oracle,
		ignore:  mapset.NewThreadUnsafeSet[ir.FaultKind](opts.Ignore...),
		seed:    opts.Seed,
		logger:  opts.Logger,
		empty:   cfg.IsEmpty(g),
	}
	if a.oracle == nil {
		a.oracle = AlwaysThrows
	}
	if a.seed == nil {
		a.seed = DefaultSeed(opts.NumParams, opts.Static)
	}
	if a.logger == nil {
		a.logger = config.NewErrorLogGroup()
	}
	// an empty body may declare no value numbers while its parameters are still seeded
	size := g.MaxValueNumber()
	if opts.NumParams > size {
		size = opts.NumParams
	}
	if m := a.seed.Max(); m > size {
		size = m
	}
	a.constants = NewConstants(size, opts.Symbols)
	return a
}

// NewBasicBlockAnalysis returns the analysis of a basic-block graph
func NewBasicBlockAnalysis(g *cfg.BlockGraph, opts Options) *Analysis[*cfg.Block] {
	return New[*cfg.Block](g, opts)
}

// NewExplodedAnalysis returns the analysis of an exploded graph
func NewExplodedAnalysis(g *cfg.ExplodedGraph, opts Options) *Analysis[*cfg.ExplodedNode] {
	return New[*cfg.ExplodedNode](g, opts)
}

// entryVector returns the state at the entry of the procedure
func (a *Analysis[N]) entryVector() *Vector {
	v := NewVector(a.constants)
	a.seed.Apply(v)
	return v
}

// Compute runs the analysis and returns the number of edges deleted from the graph. After a successful run, the
// following calls return the same count without recomputing. If ctx is done before the fixpoint is reached, Compute
// returns a *CancelError, and so do all the following calls.
func (a *Analysis[N]) Compute(ctx context.Context) (int, error) {
	if a.done {
		return a.count, nil
	}
	if a.err != nil {
		return 0, a.err
	}
	a.deleted = NewDeletedEdges(len(a.g.Nodes()))
	if a.empty {
		a.logger.Debugf("empty procedure, nothing to compute")
		a.pruned = Prune(a.g, a.deleted)
		a.done = true
		return 0, nil
	}

	a.flow = BuildFlowGraph(a.g)
	if redirected := a.flow.Redirected(); len(redirected) > 0 {
		a.logger.Debugf("redirected %d back edges to the exit node", len(redirected))
	}

	a.classes = make([]Classification, len(a.g.Nodes()))
	for _, n := range a.g.Nodes() {
		a.classes[n.Number()] = Classify(a.g.Relevant(n), a.symbols)
	}

	a.solver = NewSolver(a.flow, Problem{
		Entry:     a.entryVector(),
		Constants: a.constants,
		NodeTransfer: func(n int) (Transfer, bool) {
			return nodeTransfer(a.g.Phis(a.g.Node(n)))
		},
		EdgeTransfer: a.edgeTransfer,
	}, a.logger)
	if err := a.solver.Solve(ctx); err != nil {
		a.err = err
		return 0, err
	}
	a.logger.Tracef("solved: %s", a.solver.Stats())

	s := &scanner[N]{
		g:       a.g,
		oracle:  a.oracle,
		ignore:  a.ignore,
		state:   func(n N) *Vector { return a.solver.NodeState(n.Number()) },
		deleted: a.deleted,
		logger:  a.logger,
	}
	a.count = s.scan()
	a.pruned = Prune(a.g, a.deleted)
	a.done = true
	a.logger.Debugf("deleted %d edges", a.count)
	return a.count, nil
}

// edgeTransfer selects the transfer function of an edge according to the instruction of its source
func (a *Analysis[N]) edgeTransfer(e FlowEdge) Transfer {
	src := a.g.Node(e.From)
	dst := a.g.Node(e.Original)
	c := a.classes[e.From]
	if !c.Nontrivial {
		return Identity()
	}
	if a.g.Relevant(src).Category() == ir.ConditionalBranch {
		taken, notTaken, ok := a.g.BranchTargets(src)
		switch {
		case e.Kind == Exceptional, !ok, taken == notTaken:
			return Identity()
		case dst == taken:
			return c.First
		case dst == notTaken:
			return c.Second
		default:
			panic(errors.AssertionFailedf("node %d is not a target of the branch of node %d", e.Original, e.From))
		}
	}
	if e.Kind == Normal {
		if !cfg.HasNormalEdge(a.g, src, dst) {
			panic(errors.AssertionFailedf("node %d is not a normal successor of node %d", e.Original, e.From))
		}
		return c.First
	}
	if !cfg.HasExceptionalEdge(a.g, src, dst) {
		panic(errors.AssertionFailedf("node %d is not an exceptional successor of node %d", e.Original, e.From))
	}
	return c.Second
}

func (a *Analysis[N]) mustBeComputed(query string) {
	if !a.done {
		panic(errors.AssertionFailedf("%s called before a successful Compute", query))
	}
}

// PrunedCFG returns the graph without the deleted edges
func (a *Analysis[N]) PrunedCFG() *Pruned[N] {
	a.mustBeComputed("PrunedCFG")
	return a.pruned
}

// HasExceptions returns true if some node of the pruned graph still has an exceptional successor
func (a *Analysis[N]) HasExceptions() bool {
	a.mustBeComputed("HasExceptions")
	return a.pruned.HasExceptions()
}

// StateAt returns a copy of the state at the entry of n, after its phis. For an empty procedure, it returns the
// seeded entry state, even if Compute has not been called.
func (a *Analysis[N]) StateAt(n N) *Vector {
	if a.empty {
		return a.entryVector()
	}
	a.mustBeComputed("StateAt")
	return a.solver.NodeState(n.Number()).Clone()
}

// DeletedEdges returns the edges deleted by the analysis
func (a *Analysis[N]) DeletedEdges() *DeletedEdges {
	a.mustBeComputed("DeletedEdges")
	return a.deleted
}

// FlowGraph returns the acyclic flow graph the solver ran on. It is nil for an empty procedure.
func (a *Analysis[N]) FlowGraph() *FlowGraph {
	a.mustBeComputed("FlowGraph")
	return a.flow
}

// Stats returns the statistics of the solver
func (a *Analysis[N]) Stats() Stats {
	a.mustBeComputed("Stats")
	if a.solver == nil {
		return Stats{}
	}
	return a.solver.Stats()
}

// Graph returns the analyzed graph
func (a *Analysis[N]) Graph() cfg.Graph[N] {
	return a.g
}
