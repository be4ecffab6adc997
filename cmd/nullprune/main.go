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

// nullprune reports the control-flow edges that a nullness analysis proves infeasible in the functions of a program.
package main

import (
	"context"
	"flag"
	"fmt"
	"go/build"
	"os"
	"os/signal"

	"github.com/awslabs/ar-go-nullness/analysis"
	"github.com/awslabs/ar-go-nullness/analysis/config"
	"github.com/awslabs/ar-go-nullness/analysis/gossa"
	"github.com/awslabs/ar-go-nullness/internal/formatutil"
	"golang.org/x/tools/go/buildutil"
	"golang.org/x/tools/go/ssa"
)

var (
	configPath   = ""
	jsonFlag     = false
	explodedFlag = false
	verboseFlag  = false
	mode         = ssa.InstantiateGenerics
)

func init() {
	flag.StringVar(&configPath, "config", "", "config file path for the analysis")
	flag.BoolVar(&jsonFlag, "json", false, "output results as JSON")
	flag.BoolVar(&explodedFlag, "exploded", false, "analyze one instruction per node instead of basic blocks")
	flag.BoolVar(&verboseFlag, "verbose", false, "print the deleted edges of every function, implied by a debug log level")
	flag.Var(&mode, "build", ssa.BuilderModeDoc)
	flag.Var((*buildutil.TagsFlag)(&build.Default.BuildTags), "tags", buildutil.TagsFlagDoc)
}

const usage = `Find the control-flow edges that can never be taken because of null checks.

Usage:
  nullprune [options] package...
  nullprune [options] source.go

Use the -help flag to display the options.

Examples:
% nullprune -config config.yaml ./...
% nullprune -json hello.go
`

func main() {
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "nullprune: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	c := config.NewDefault()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		c = loaded
	}
	if explodedFlag {
		c.Nullness.Exploded = true
	}
	logger := config.NewLogGroup(c)

	logger.Infof("%s", formatutil.Faint.Sprint("Reading sources"))
	program, err := analysis.LoadProgram(nil, "", mode, flag.Args())
	if err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}

	fns := program.Functions(c.MatchPkgFilter)
	logger.Infof("%s", formatutil.Faint.Sprintf("Analyzing %d functions", len(fns)))

	driver, err := gossa.NewDriver(c, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, analysisErr := driver.AnalyzeAll(ctx, fns)

	if jsonFlag {
		if err := writeJSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		writeTable(os.Stdout, results, verboseFlag || c.Verbose())
	}
	return analysisErr
}
