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

package gossa

import (
	"context"
	"fmt"
	"sync"

	"github.com/awslabs/ar-go-nullness/analysis/cfg"
	"github.com/awslabs/ar-go-nullness/analysis/config"
	"github.com/awslabs/ar-go-nullness/analysis/maypanic"
	"github.com/awslabs/ar-go-nullness/analysis/nullness"
	"github.com/awslabs/ar-go-nullness/internal/formatutil"
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/tools/go/ssa"
)

// Driver runs the nullness analysis on Go functions. It is safe for concurrent use.
type Driver struct {
	config    *config.Config
	logger    *config.LogGroup
	summaries *maypanic.Summaries
	cache     *lru.Cache
}

// NewDriver returns a driver configured by c. If logger is nil, a logger is created from c.
func NewDriver(c *config.Config, logger *config.LogGroup) (*Driver, error) {
	if c == nil {
		c = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewLogGroup(c)
	}
	size := c.Nullness.CacheSize
	if size <= 0 {
		size = config.DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &Driver{
		config:    c,
		logger:    logger,
		summaries: PanicSummaries(),
		cache:     cache,
	}, nil
}

// Summaries returns the may-panic summaries computed so far
func (d *Driver) Summaries() *maypanic.Summaries {
	return d.summaries
}

func (d *Driver) oracle() nullness.FaultOracle {
	if d.config.Nullness.SummarizeCalls {
		return NewSummaryOracle(d.summaries)
	}
	return nullness.AlwaysThrows
}

// Analyze runs the analysis on fn. Results are cached by function.
func (d *Driver) Analyze(ctx context.Context, fn *ssa.Function) (*Result, error) {
	if cached, ok := d.cache.Get(fn); ok {
		return cached.(*Result), nil
	}
	f, err := Build(fn, BuildOptions{Logger: d.logger})
	if err != nil {
		return nil, err
	}
	if timeout := d.config.FunctionTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	opts := nullness.Options{
		Symbols:   f.Symbols(),
		Oracle:    d.oracle(),
		Ignore:    d.config.IgnoredFaults(),
		Seed:      f.Seed(d.config.Nullness.TrustReceivers),
		NumParams: f.NumParams(),
		Static:    !f.IsMethod(),
		Logger:    d.logger,
	}
	var res *Result
	if d.config.Nullness.Exploded {
		res, err = analyzeExploded(ctx, f, opts)
	} else {
		res, err = analyzeBlocks(ctx, f, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("analysis of %s failed: %w", fn, err)
	}
	if d.logger.LogsDebug() {
		d.logger.Debugf("%s", formatutil.SanitizeRepr(res))
		for _, e := range res.DeletedEdges {
			d.logger.Debugf("  deleted %s", e)
		}
	}
	d.cache.Add(fn, res)
	return res, nil
}

func analyzeBlocks(ctx context.Context, f *Function, opts nullness.Options) (*Result, error) {
	a := nullness.NewBasicBlockAnalysis(f.graph, opts)
	count, err := a.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return newResult(f, a, count, false, func(p Position) (*cfg.Block, bool) {
		return p.Block, true
	}), nil
}

func analyzeExploded(ctx context.Context, f *Function, opts nullness.Options) (*Result, error) {
	g := cfg.Explode(f.graph)
	type key struct{ block, index int }
	nodes := make(map[key]*cfg.ExplodedNode, len(g.Nodes()))
	for _, n := range g.Nodes() {
		nodes[key{n.Block().Number(), n.Index()}] = n
	}
	a := nullness.NewExplodedAnalysis(g, opts)
	count, err := a.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return newResult(f, a, count, true, func(p Position) (*cfg.ExplodedNode, bool) {
		n, ok := nodes[key{p.Block.Number(), p.Index}]
		return n, ok
	}), nil
}

// AnalyzeAll runs the analysis on every function of fns in parallel. The i-th result is the result of fns[i], or
// nil if its analysis failed; the returned error combines all the failures. Functions without a body are skipped
// without error.
func (d *Driver) AnalyzeAll(ctx context.Context, fns []*ssa.Function) ([]*Result, error) {
	pool, err := ants.NewPool(d.config.NumWorkers())
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]*Result, len(fns))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = errors.CombineErrors(failed, err)
	}
	for i, fn := range fns {
		if ctx.Err() != nil {
			fail(ctx.Err())
			break
		}
		i, fn := i, fn
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			res, err := d.Analyze(ctx, fn)
			if errors.Is(err, ErrNoBody) {
				return
			}
			if err != nil {
				d.logger.Warnf("%v", err)
				fail(err)
				return
			}
			results[i] = res
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("failed to submit %s: %w", fn, err))
		}
	}
	wg.Wait()

	done := 0
	for _, r := range results {
		if r != nil {
			done++
		}
	}
	d.logger.Infof("analyzed %d functions out of %d", done, len(fns))
	return results, failed
}
