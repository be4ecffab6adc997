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

package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the default loading mode in the analyses. We load all possible information.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedExportFile |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram represents a loaded program.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program
	// Packages is the list of the packages that were requested.
	Packages []*packages.Package
	// Directives is a map from the directive's position in the program to the relevant directive comment.
	Directives Directives
}

// LoadProgram loads a program on platform "platform" using the buildmode provided and the args.
// To understand how to specify the args, look at the documentation of packages.Load.
func LoadProgram(config *packages.Config,
	platform string,
	buildmode ssa.BuilderMode,
	args []string) (LoadedProgram, error) {

	if config == nil {
		config = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}

	if platform != "" {
		config.Env = append(os.Environ(), fmt.Sprintf("GOOS=%s", platform))
	}

	// load, parse and type check the given packages
	initialPackages, err := packages.Load(config, args...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}

	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages")
	}

	if packages.PrintErrors(initialPackages) > 0 {
		return LoadedProgram{}, fmt.Errorf("errors found, exiting")
	}

	// Construct SSA for all the packages we have loaded
	program, ssaPackages := ssautil.AllPackages(initialPackages, buildmode)

	for i, p := range ssaPackages {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("cannot build SSA for package %s", initialPackages[i])
		}
	}

	// Build SSA for entire program
	program.Build()

	return LoadedProgram{
		Program:    program,
		Packages:   initialPackages,
		Directives: findDirectives(initialPackages, program.Fset),
	}, nil
}

// Functions returns the functions of the program that have a body, belong to a package whose path matches
// filter, and are not marked with an ignore directive. Functions are sorted by name.
func (p LoadedProgram) Functions(filter func(pkgPath string) bool) []*ssa.Function {
	var res []*ssa.Function
	for fn := range ssautil.AllFunctions(p.Program) {
		if len(fn.Blocks) == 0 || fn.Pkg == nil || fn.Synthetic != "" {
			continue
		}
		if filter != nil && !filter(fn.Pkg.Pkg.Path()) {
			continue
		}
		if p.Directives.Ignores(p.Program.Fset, fn.Pos()) {
			continue
		}
		res = append(res, fn)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].String() < res[j].String()
	})
	return res
}

// Directives represents a map of directive position to directive.
type Directives map[DirectivePos]Directive

// Ignores returns true if an ignore directive is on the line of pos or on the line before it
func (d Directives) Ignores(fset *token.FileSet, pos token.Pos) bool {
	if !pos.IsValid() {
		return false
	}
	p := NewDirectivePos(fset.Position(pos))
	for _, line := range []int{p.Line, p.Line - 1} {
		if dir, ok := d[DirectivePos{Filename: p.Filename, Line: line}]; ok && dir.Kind == DirectiveIgnore {
			return true
		}
	}
	return false
}

// Directive represents an instruction to the tool in the source code being analyzed.
// It is a comment in the form: `//nullprune:x`, where x is a valid DirectiveKind.
type Directive struct {
	Kind    DirectiveKind
	Comment *ast.Comment
}

// DirectivePos represents the position of a directive within a program.
type DirectivePos struct {
	Filename string
	Line     int
}

// NewDirectivePos creates a DirectivePos from a token.Position.
func NewDirectivePos(pos token.Position) DirectivePos {
	return DirectivePos{
		Filename: pos.Filename,
		Line:     pos.Line,
	}
}

// DirectiveKind represents the kind of directive.
type DirectiveKind string

const (
	// DirectiveIgnore marks a function that should not be analyzed.
	DirectiveIgnore DirectiveKind = "ignore"
)

// NewDirective returns the directive for c and true if c is a valid
// directive comment.
func NewDirective(c *ast.Comment) (Directive, bool) {
	_, after, found := strings.Cut(c.Text, "nullprune:")
	if !found {
		return Directive{}, false
	}

	switch k := DirectiveKind(strings.TrimSpace(after)); k {
	case DirectiveIgnore:
		return Directive{Kind: k, Comment: c}, true
	default:
		return Directive{}, false
	}
}

// findDirectives returns all the directives in the syntax of pkgs.
func findDirectives(pkgs []*packages.Package, fset *token.FileSet) Directives {
	res := make(Directives)
	for _, pkg := range pkgs {
		for _, f := range pkg.Syntax {
			for _, group := range f.Comments {
				for _, c := range group.List {
					pos := fset.Position(c.Pos())
					if !pos.IsValid() {
						continue
					}
					if d, ok := NewDirective(c); ok {
						res[NewDirectivePos(pos)] = d
					}
				}
			}
		}
	}
	return res
}
