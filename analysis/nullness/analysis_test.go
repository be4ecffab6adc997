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
	"errors"
	"math/rand"
	"testing"

	"github.com/awslabs/ar-go-nullness/analysis/cfg"
	"github.com/awslabs/ar-go-nullness/analysis/ir"
)

func build(t *testing.T, b *cfg.Builder) *cfg.BlockGraph {
	t.Helper()
	g, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	return g
}

func compute[N cfg.Node](t *testing.T, a *Analysis[N]) int {
	t.Helper()
	n, err := a.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	return n
}

// b0: x = new T; goto b1
// b1: x.f = 1; return
func TestAllocThenStore(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.Alloc(1))
	b1 := b.Block("b1", ir.PutField(1))
	exit := b.Exit()
	b.Normal(b0, b1).Normal(b1, exit).Exceptional(b1, exit)
	g := build(t, b)

	a := NewBasicBlockAnalysis(g, Options{Symbols: ir.NewSymbols(), Static: true})
	if n := compute(t, a); n != 1 {
		t.Errorf("expected 1 deleted edge, got %d", n)
	}
	if s := a.StateAt(b1).Get(1); s != NotNull {
		t.Errorf("x should be not null in b1, got %s", s)
	}
	if !a.DeletedEdges().Has(Exceptional, b1.Number(), exit.Number()) {
		t.Errorf("exceptional edge b1 => exit should be deleted")
	}
	pruned := a.PrunedCFG()
	if len(pruned.ExceptionalSuccs(b1)) != 0 || len(pruned.NormalSuccs(b1)) != 1 {
		t.Errorf("unexpected successors of b1 in the pruned graph")
	}
	if a.HasExceptions() {
		t.Errorf("no exceptional edge should remain")
	}
	if len(pruned.Nodes()) != len(g.Nodes()) {
		t.Errorf("pruned graph should keep all nodes")
	}
}

// b0: if p == nil goto b1 else goto b2
// b1: return
// b2: p.f = 1; return
func TestNilCheck(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.If(1, ir.OpEq, 4))
	b1 := b.Block("b1", ir.Nop("return"))
	b2 := b.Block("b2", ir.PutField(1))
	exit := b.Exit()
	b.Branch(b0, b1, b2).Normal(b1, exit).Normal(b2, exit).Exceptional(b2, exit)
	g := build(t, b)

	a := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: true, NumParams: 1})
	if n := compute(t, a); n != 1 {
		t.Errorf("expected 1 deleted edge, got %d", n)
	}
	if s := a.StateAt(b2).Get(1); s != NotNull {
		t.Errorf("p should be not null in b2, got %s", s)
	}
	if s := a.StateAt(b1).Get(1); s != Null {
		t.Errorf("p should be null in b1, got %s", s)
	}
	if s := a.StateAt(b0).Get(1); s != Unknown {
		t.Errorf("p should be unknown in b0, got %s", s)
	}
	if s := a.StateAt(exit).Get(1); s != Both {
		t.Errorf("p should be both at exit, got %s", s)
	}
	if !a.DeletedEdges().Has(Exceptional, b2.Number(), exit.Number()) {
		t.Errorf("exceptional edge b2 => exit should be deleted")
	}
}

// b0: goto b1
// b1: if p != nil goto b1 else goto b2
// b2: return
func TestLoop(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.Nop("goto"))
	b1 := b.Block("b1", ir.If(1, ir.OpNe, 4))
	b2 := b.Block("b2", ir.Nop("return"))
	exit := b.Exit()
	b.Normal(b0, b1).Branch(b1, b1, b2).Normal(b2, exit)
	g := build(t, b)

	a := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: true, NumParams: 1})
	compute(t, a)
	fg := a.FlowGraph()
	if len(fg.BackEdges()) != 1 || int(fg.BackEdges()[0].F) != b1.Number() || int(fg.BackEdges()[0].T) != b1.Number() {
		t.Fatalf("expected back edge b1 -> b1, got %v", fg.BackEdges())
	}
	redirected := fg.Redirected()
	if len(redirected) != 1 || redirected[0].To != exit.Number() || redirected[0].Original != b1.Number() {
		t.Fatalf("expected b1 -> b1 to be redirected to the exit, got %v", redirected)
	}
	if s := a.StateAt(b1).Get(1); s != Unknown {
		t.Errorf("loop-carried facts should be dropped, got %s", s)
	}
	if s := a.StateAt(b2).Get(1); s != Null {
		t.Errorf("p should be null in b2, got %s", s)
	}
	if s := a.StateAt(exit).Get(1); s != Both {
		t.Errorf("p should be both at exit, got %s", s)
	}
	if a.Stats().Passes > 2 {
		t.Errorf("expected at most 2 passes, got %d", a.Stats().Passes)
	}
	// the caller's graph is not modified
	if !cfg.HasNormalEdge[*cfg.Block](g, b1, b1) {
		t.Errorf("original graph should keep its back edge")
	}
}

func TestEmptyBody(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0")
	b.Normal(b0, b.Exit()).Values(2)
	g := build(t, b)

	a := NewBasicBlockAnalysis(g, Options{Symbols: ir.NewSymbols(), NumParams: 2})
	v := a.StateAt(b0)
	if v.Get(1) != NotNull || v.Get(2) != Unknown {
		t.Errorf("expected the seeded vector, got %s", v)
	}
	if a.solver != nil || a.done {
		t.Errorf("StateAt should not compute anything on an empty body")
	}
	if n := compute(t, a); n != 0 {
		t.Errorf("expected no deleted edge, got %d", n)
	}
	if a.solver != nil {
		t.Errorf("the solver should not run on an empty body")
	}
	if a.PrunedCFG().Original() != cfg.Graph[*cfg.Block](g) || a.HasExceptions() {
		t.Errorf("pruned graph should be the input graph")
	}
}

func TestEmptyBodyWithoutValues(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0")
	b.Normal(b0, b.Exit())
	g := build(t, b)

	a := NewBasicBlockAnalysis(g, Options{Symbols: ir.NewSymbols(), NumParams: 2})
	v := a.StateAt(b0)
	if v.Len() < 2 || v.Get(1) != NotNull || v.Get(2) != Unknown {
		t.Errorf("expected the seeded vector, got %s", v)
	}
	if n := compute(t, a); n != 0 {
		t.Errorf("expected no deleted edge, got %d", n)
	}

	seed := NewSeed().Set(4, Null)
	a = NewBasicBlockAnalysis(g, Options{Symbols: ir.NewSymbols(), Seed: seed})
	if s := a.StateAt(b0).Get(4); s != Null {
		t.Errorf("expected v4 to be seeded null, got %s", s)
	}
}

func TestCatchAllCollapse(t *testing.T) {
	for _, seed := range []State{Unknown, Null, NotNull} {
		b := cfg.NewBuilder()
		b0 := b.Block("b0", ir.Invoke(2, 1))
		b1 := b.Block("b1", ir.Nop("return"))
		h := b.Block("h", ir.Nop("recover"))
		exit := b.Exit()
		b.Normal(b0, b1).Exceptional(b0, exit, h).Normal(b1, exit).Normal(h, exit).CatchAll(h)
		g := build(t, b)

		a := NewBasicBlockAnalysis(g, Options{
			Symbols:   testSymbols(),
			Seed:      NewSeed().Set(1, seed),
			NumParams: 1,
		})
		compute(t, a)
		deleted := a.DeletedEdges()
		if !deleted.Has(Exceptional, b0.Number(), exit.Number()) {
			t.Errorf("seed %s: exceptional edge to exit should be deleted", seed)
		}
		if deleted.Has(Exceptional, b0.Number(), h.Number()) {
			t.Errorf("seed %s: exceptional edge to handler should be kept", seed)
		}
		if !a.HasExceptions() {
			t.Errorf("seed %s: the handler edge remains", seed)
		}
	}
}

// Deletions of single-instruction procedures b0: instr; b1: return, where the reference v1 has the seeded state
func TestEdgeDeletionSoundness(t *testing.T) {
	tests := []struct {
		name        string
		instr       ir.Instruction
		ignore      []ir.FaultKind
		oracle      FaultOracle
		seed        State
		normal      bool
		exceptional bool
	}{
		{"read-not-null", ir.GetField(2, 1), nil, nil, NotNull, true, false},
		{"read-null", ir.GetField(2, 1), nil, nil, Null, false, true},
		{"read-unknown", ir.GetField(2, 1), nil, nil, Unknown, true, true},
		{"read-both", ir.GetField(2, 1), nil, nil, Both, true, true},
		{"store-not-null", ir.PutField(1), nil, nil, NotNull, true, false},
		{"len-null", ir.ArrayLen(2, 1), nil, nil, Null, false, true},
		{"array-bounds", ir.ArrayLoad(2, 1), nil, nil, NotNull, true, true},
		{"array-ignored-bounds", ir.ArrayLoad(2, 1), []ir.FaultKind{ir.FaultIndexOutOfRange}, nil, NotNull,
			true, false},
		{"lock", ir.Lock(1), nil, nil, NotNull, true, true},
		{"lock-ignored-state", ir.Lock(1), []ir.FaultKind{ir.FaultMonitorState}, nil, NotNull, true, false},
		{"call-may-throw", ir.Invoke(2, 1), nil, nil, NotNull, true, true},
		{"call-never-throws", ir.Invoke(2, 1), nil, NeverThrows, NotNull, true, false},
		{"call-never-throws-null", ir.Invoke(2, 1), nil, NeverThrows, Null, false, true},
		{"static-call-never-throws", ir.InvokeStatic(2), nil, NeverThrows, Unknown, true, false},
		{"static-call-ignored", ir.InvokeStatic(2), []ir.FaultKind{ir.FaultAny}, nil, Unknown, true, false},
		{"no-faults", ir.Nop("add"), nil, nil, Unknown, true, false},
		{"panic", ir.Nop("panic", ir.FaultPanic), nil, nil, NotNull, true, true},
		{"ignored-nil", ir.GetField(2, 1), []ir.FaultKind{ir.FaultNilDereference}, nil, Unknown, true, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := cfg.NewBuilder()
			b0 := b.Block("b0", test.instr)
			b1 := b.Block("b1", ir.Nop("return"))
			exit := b.Exit()
			b.Normal(b0, b1).Exceptional(b0, exit).Normal(b1, exit).Values(2)
			g := build(t, b)
			a := NewBasicBlockAnalysis(g, Options{
				Symbols:   testSymbols(),
				Oracle:    test.oracle,
				Ignore:    test.ignore,
				Seed:      NewSeed().Set(1, test.seed),
				NumParams: 1,
			})
			compute(t, a)
			p := a.PrunedCFG()
			if normal := len(p.NormalSuccs(b0)) == 1; normal != test.normal {
				t.Errorf("normal edge kept: %v, expected %v", normal, test.normal)
			}
			if exceptional := len(p.ExceptionalSuccs(b0)) == 1; exceptional != test.exceptional {
				t.Errorf("exceptional edge kept: %v, expected %v", exceptional, test.exceptional)
			}
			expectedCount := 0
			if !test.normal {
				expectedCount++
			}
			if !test.exceptional {
				expectedCount++
			}
			if a.DeletedEdges().Len() != expectedCount {
				t.Errorf("expected %d deleted edges, got %d", expectedCount, a.DeletedEdges().Len())
			}
			if test.seed == Null && !test.normal && len(p.Reachable()) != 2 {
				t.Errorf("only b0 and the exit should be reachable, got %v", p.Reachable())
			}
		})
	}
}

// b0: v2 = p.f (faults to h); b1: v2.g = ...; h: p.f = ...
func TestFaultPathProvesNull(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.GetField(2, 1))
	b1 := b.Block("b1", ir.PutField(2))
	h := b.Block("h", ir.PutField(1))
	exit := b.Exit()
	b.Normal(b0, b1).Exceptional(b0, h).
		Normal(b1, exit).Exceptional(b1, exit).
		Normal(h, exit).Exceptional(h, exit)
	g := build(t, b)
	a := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: true, NumParams: 1})
	compute(t, a)
	if s := a.StateAt(h).Get(1); s != Null {
		t.Errorf("p should be null in the handler, got %s", s)
	}
	if s := a.StateAt(b1).Get(1); s != NotNull {
		t.Errorf("p should be not null after the read, got %s", s)
	}
	// the store in h always dereferences nil: its normal edge goes away
	if !a.DeletedEdges().Has(Normal, h.Number(), exit.Number()) {
		t.Errorf("normal edge of h should be deleted")
	}
	if a.DeletedEdges().Has(Exceptional, b1.Number(), exit.Number()) {
		t.Errorf("v2 is unknown, the exceptional edge of b1 should be kept")
	}
}

// Both branches assign non-null values to the sources of a phi
func TestPhi(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.If(1, ir.OpEq, 4))
	b1 := b.Block("b1", ir.Alloc(2))
	b2 := b.Block("b2", ir.Alloc(3))
	b3 := b.Block("b3", ir.PutField(6))
	exit := b.Exit()
	b.Branch(b0, b1, b2).Normal(b1, b3).Normal(b2, b3).
		Phi(b3, ir.NewPhi(6, 2, 3)).
		Normal(b3, exit).Exceptional(b3, exit)
	g := build(t, b)
	a := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: true, NumParams: 1})
	if n := compute(t, a); n != 1 {
		t.Errorf("expected 1 deleted edge, got %d", n)
	}
	if s := a.StateAt(b3).Get(6); s != NotNull {
		t.Errorf("phi should be not null, got %s", s)
	}
	if s := a.StateAt(b3).Get(1); s != Both {
		t.Errorf("p should be both at the join, got %s", s)
	}
	if !a.DeletedEdges().Has(Exceptional, b3.Number(), exit.Number()) {
		t.Errorf("exceptional edge of b3 should be deleted")
	}
}

// The phi is reset before its sources are merged: a value that is null on one path and not null on the other
// is both at the join, even when the phi picks the non-null value on each path
func TestPhiAfterJoin(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.If(1, ir.OpEq, 4))
	b1 := b.Block("b1", ir.Alloc(2))
	b2 := b.Block("b2", ir.Nop("goto"))
	b3 := b.Block("b3", ir.PutField(6))
	exit := b.Exit()
	b.Branch(b0, b1, b2).Normal(b1, b3).Normal(b2, b3).
		Phi(b3, ir.NewPhi(6, 2, 1)).
		Normal(b3, exit).Exceptional(b3, exit)
	g := build(t, b)
	a := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: true, NumParams: 1})
	if n := compute(t, a); n != 0 {
		t.Errorf("expected no deleted edge, got %d", n)
	}
	if s := a.StateAt(b3).Get(6); s != Both {
		t.Errorf("phi should be both, got %s", s)
	}
}

func TestComputeIdempotent(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.Alloc(1))
	b1 := b.Block("b1", ir.PutField(1))
	b.Normal(b0, b1).Normal(b1, b.Exit()).Exceptional(b1, b.Exit())
	g := build(t, b)
	a := NewBasicBlockAnalysis(g, Options{Symbols: ir.NewSymbols(), Static: true})
	n1 := compute(t, a)
	stats := a.Stats()
	n2 := compute(t, a)
	if n1 != n2 || a.Stats() != stats {
		t.Errorf("second Compute should not recompute: %d %d %v %v", n1, n2, stats, a.Stats())
	}
	other := NewBasicBlockAnalysis(g, Options{Symbols: ir.NewSymbols(), Static: true})
	if compute(t, other) != n1 || !other.StateAt(b1).Equal(a.StateAt(b1)) {
		t.Errorf("a fresh analysis should give the same results")
	}
}

func TestCancel(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.GetField(2, 1))
	b.Normal(b0, b.Exit()).Exceptional(b0, b.Exit())
	g := build(t, b)
	a := NewBasicBlockAnalysis(g, Options{Symbols: ir.NewSymbols(), NumParams: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := a.Compute(ctx)
	if err == nil || n != 0 {
		t.Fatalf("expected cancellation, got %d, %v", n, err)
	}
	if !IsCancel(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error %v", err)
	}
	if _, err2 := a.Compute(context.Background()); err2 != err {
		t.Errorf("Compute after cancellation should return the same error, got %v", err2)
	}
	expectPanic(t, "pruned graph after cancel", func() { a.PrunedCFG() })
	expectPanic(t, "state after cancel", func() { a.StateAt(b0) })
}

func TestQueriesBeforeCompute(t *testing.T) {
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.GetField(2, 1))
	b.Normal(b0, b.Exit())
	a := NewBasicBlockAnalysis(build(t, b), Options{Symbols: ir.NewSymbols(), NumParams: 1})
	expectPanic(t, "PrunedCFG", func() { a.PrunedCFG() })
	expectPanic(t, "HasExceptions", func() { a.HasExceptions() })
	expectPanic(t, "StateAt", func() { a.StateAt(b0) })
	expectPanic(t, "DeletedEdges", func() { a.DeletedEdges() })
	expectPanic(t, "missing symbols", func() { New[*cfg.Block](build(t, cfg.NewBuilder()), Options{}) })
}

func TestExploded(t *testing.T) {
	// b0: v2 = p.f; v3 = p.g; return
	b := cfg.NewBuilder()
	b0 := b.Block("b0", ir.GetField(2, 1), ir.GetField(3, 1), ir.Nop("return"))
	exit := b.Exit()
	b.Normal(b0, exit).Exceptional(b0, exit)
	g := build(t, b)

	eg := cfg.Explode(g)
	a := NewExplodedAnalysis(eg, Options{Symbols: testSymbols(), Static: true, NumParams: 1})
	// the second read and the return cannot fault
	if n := compute(t, a); n != 2 {
		t.Errorf("expected 2 deleted edges, got %d:\n%s", n, eg)
	}
	nodes := eg.Nodes()
	if s := a.StateAt(nodes[1]).Get(1); s != NotNull {
		t.Errorf("p should be not null after the first read, got %s", s)
	}
	if s := a.StateAt(nodes[0]).Get(1); s != Unknown {
		t.Errorf("p should be unknown before the first read, got %s", s)
	}
	if len(a.PrunedCFG().ExceptionalSuccs(nodes[0])) != 1 {
		t.Errorf("the first read may still fault")
	}

	// the basic-block analysis only looks at the last instruction
	ba := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: true, NumParams: 1})
	if n := compute(t, ba); n != 1 {
		t.Errorf("expected 1 deleted edge in the block graph, got %d", n)
	}
	// the reads before the return are ignored: their fault edge is deleted and p is not refined
	if ba.HasExceptions() {
		t.Errorf("the block graph should have no exceptional edge left")
	}
	if s := ba.StateAt(g.Exit()).Get(1); s != Unknown {
		t.Errorf("p should stay unknown in the block graph, got %s", s)
	}
}

func randomGraph(r *rand.Rand, size int) *cfg.BlockGraph {
	b := cfg.NewBuilder()
	blocks := make([]*cfg.Block, size)
	def := 6
	for i := range blocks {
		var instr ir.Instruction
		switch r.Intn(7) {
		case 0:
			instr = ir.GetField(def, 1+r.Intn(3))
		case 1:
			instr = ir.Alloc(def)
		case 2:
			instr = ir.Invoke(def, 1+r.Intn(3))
		case 3:
			instr = ir.If(1+r.Intn(3), ir.Operator(r.Intn(2)), 4)
		case 4:
			instr = ir.PutField(1 + r.Intn(3))
		case 5:
			instr = ir.If(1+r.Intn(3), ir.OpLt, 5)
		default:
			instr = ir.Nop("nop")
		}
		def++
		blocks[i] = b.Block("", instr)
		if r.Intn(3) == 0 {
			b.Phi(blocks[i], ir.NewPhi(def, 1+r.Intn(3), 1+r.Intn(3), 4))
			def++
		}
	}
	exit := b.Exit()
	b.Values(def)
	target := func() *cfg.Block {
		if k := r.Intn(size + 1); k < size {
			return blocks[k]
		}
		return exit
	}
	for _, blk := range blocks {
		if blk.Last().Category() == ir.ConditionalBranch {
			b.Branch(blk, target(), target())
		} else {
			b.Normal(blk, target())
		}
		if r.Intn(2) == 0 {
			b.Exceptional(blk, exit)
		}
		if r.Intn(4) == 0 {
			b.Exceptional(blk, target())
		}
	}
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

func TestRandomGraphs(t *testing.T) {
	r := rand.New(rand.NewSource(123098))
	for i := 0; i < 200; i++ {
		g := randomGraph(r, 2+r.Intn(12))
		for _, static := range []bool{true, false} {
			a := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: static, NumParams: 3})
			n := compute(t, a)
			normal, exceptional := cfg.NumEdges[*cfg.Block](g)
			stats := a.Stats()
			if stats.Passes > 2 {
				t.Fatalf("expected at most 2 passes, got %d\n%s", stats.Passes, g)
			}
			if stats.Updates > 4*(normal+exceptional+len(g.Nodes())) {
				t.Fatalf("too many updates %d\n%s", stats.Updates, g)
			}
			if n != a.DeletedEdges().Len() || n > normal+exceptional {
				t.Fatalf("inconsistent deletion count %d\n%s", n, g)
			}
			pruned := a.PrunedCFG()
			pn, pe := cfg.NumEdges[*cfg.Block](pruned)
			if pn+pe+n != normal+exceptional {
				t.Fatalf("pruned graph has %d edges, expected %d", pn+pe, normal+exceptional-n)
			}
			for _, blk := range g.Nodes() {
				v := a.StateAt(blk)
				if v.Get(4) != Null || v.Get(5) != NotNull {
					t.Fatalf("constants changed in %s: %s", blk, v)
				}
			}
			again := NewBasicBlockAnalysis(g, Options{Symbols: testSymbols(), Static: static, NumParams: 3})
			if compute(t, again) != n {
				t.Fatalf("analysis is not deterministic\n%s", g)
			}
			for _, blk := range g.Nodes() {
				if !again.StateAt(blk).Equal(a.StateAt(blk)) {
					t.Fatalf("states differ in %s\n%s", blk, g)
				}
			}
			ea := NewExplodedAnalysis(cfg.Explode(g), Options{Symbols: testSymbols(), Static: static, NumParams: 3})
			if _, err := ea.Compute(context.Background()); err != nil {
				t.Fatalf("exploded analysis failed: %v", err)
			}
		}
	}
}
