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

// Package analysistest contains helpers to build SSA programs from Go source in tests.
package analysistest

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// BuildSSA parses and type-checks the single-file package src and returns its SSA form. The test fails if src
// does not compile.
func BuildSSA(t *testing.T, src string) *ssa.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("failed to parse source: %v", err)
	}
	pkg := types.NewPackage(f.Name.Name, f.Name.Name)
	conf := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(conf, fset, pkg, []*ast.File{f}, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatalf("failed to build SSA: %v", err)
	}
	return ssaPkg
}

// Func returns the package-level function name of pkg. The test fails if there is none.
func Func(t *testing.T, pkg *ssa.Package, name string) *ssa.Function {
	t.Helper()
	fn := pkg.Func(name)
	if fn == nil {
		t.Fatalf("no function %s in package %s", name, pkg.Pkg.Path())
	}
	return fn
}

// Method returns the method name of the pointer type *typ of pkg. The test fails if there is none.
func Method(t *testing.T, pkg *ssa.Package, typ string, name string) *ssa.Function {
	t.Helper()
	member := pkg.Type(typ)
	if member == nil {
		t.Fatalf("no type %s in package %s", typ, pkg.Pkg.Path())
	}
	fn := pkg.Prog.LookupMethod(types.NewPointer(member.Type()), pkg.Pkg, name)
	if fn == nil {
		t.Fatalf("no method %s on *%s", name, typ)
	}
	return fn
}

// Functions returns the package-level functions of pkg that have a body, and their anonymous functions
func Functions(pkg *ssa.Package) []*ssa.Function {
	var res []*ssa.Function
	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if len(fn.Blocks) == 0 {
			return
		}
		res = append(res, fn)
		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}
	for _, member := range pkg.Members {
		if fn, ok := member.(*ssa.Function); ok {
			add(fn)
		}
	}
	return res
}

// Find returns the first instruction of fn for which pred returns true, or nil
func Find(fn *ssa.Function, pred func(ssa.Instruction) bool) ssa.Instruction {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if pred(instr) {
				return instr
			}
		}
	}
	return nil
}
