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

package maypanic

import (
	"testing"

	"github.com/awslabs/ar-go-nullness/internal/analysistest"
	"golang.org/x/tools/go/ssa"
)

const src = `package p

func a() { b() }

func b() { c() }

func c() {}

func even(n int) bool {
	if n == 0 {
		return true
	}
	return odd(n - 1)
}

func odd(n int) bool {
	if n == 0 {
		return false
	}
	if n > 100 {
		panic("too deep")
	}
	return even(n - 1)
}

func callsEven() bool { return even(3) }

func handler() {
	recover()
}

func recovers() {
	defer handler()
	odd(1000)
}

func late() {
	odd(1000)
	defer handler()
}

func closure() {
	x := 1
	defer func() {
		x++
		recover()
	}()
	odd(x)
}

func dynamic(f func()) { f() }

func spawn() { go odd(1000) }
`

func isPanic(instr ssa.Instruction) bool {
	_, ok := instr.(*ssa.Panic)
	return ok
}

func TestDoesRecover(t *testing.T) {
	pkg := analysistest.BuildSSA(t, src)
	for name, expected := range map[string]bool{"handler": true, "recovers": false, "c": false} {
		if DoesRecover(analysistest.Func(t, pkg, name)) != expected {
			t.Errorf("DoesRecover(%s) should be %v", name, expected)
		}
	}
}

func TestDeferredRecovers(t *testing.T) {
	pkg := analysistest.BuildSSA(t, src)
	for name, expected := range map[string]int{"recovers": 1, "late": 1, "closure": 1, "a": 0} {
		if n := len(DeferredRecovers(analysistest.Func(t, pkg, name))); n != expected {
			t.Errorf("%s should have %d deferred recovers, got %d", name, expected, n)
		}
	}

	fn := analysistest.Func(t, pkg, "late")
	d := DeferredRecovers(fn)[0]
	b := d.Block()
	index := -1
	for i, instr := range b.Instrs {
		if instr == d {
			index = i
		}
	}
	if Covers(d, b, index) {
		t.Errorf("a defer does not cover itself")
	}
	if !Covers(d, b, index+1) {
		t.Errorf("a defer covers the next instructions of its block")
	}
	if Covers(d, b, 0) {
		t.Errorf("a defer does not cover the instructions before it")
	}
}

func TestStaticCallees(t *testing.T) {
	pkg := analysistest.BuildSSA(t, src)
	callees := StaticCallees(analysistest.Func(t, pkg, "a"))
	if len(callees) != 1 || callees[0] != analysistest.Func(t, pkg, "b") {
		t.Errorf("a should only call b, got %v", callees)
	}
	if len(StaticCallees(analysistest.Func(t, pkg, "dynamic"))) != 0 {
		t.Errorf("dynamic has no static callee")
	}
	if len(StaticCallees(analysistest.Func(t, pkg, "spawn"))) != 0 {
		t.Errorf("go statements are not calls")
	}
	if callees := StaticCallees(analysistest.Func(t, pkg, "recovers")); len(callees) != 2 {
		t.Errorf("deferred calls are calls, got %v", callees)
	}
}

func TestSummaries(t *testing.T) {
	pkg := analysistest.BuildSSA(t, src)
	s := NewSummaries(isPanic)
	expected := map[string]bool{
		"a":         false,
		"b":         false,
		"c":         false,
		"even":      true,
		"odd":       true,
		"callsEven": true,
		"handler":   false,
		"recovers":  false,
		"late":      true,
		"closure":   false,
		"dynamic":   true,
		"spawn":     false,
	}
	for name, mayPanic := range expected {
		if s.MayPanic(analysistest.Func(t, pkg, name)) != mayPanic {
			t.Errorf("MayPanic(%s) should be %v", name, mayPanic)
		}
	}
	// a is summarized with its callees
	s = NewSummaries(isPanic)
	s.MayPanic(analysistest.Func(t, pkg, "a"))
	if s.Len() != 3 {
		t.Errorf("expected 3 summaries after summarizing a, got %d", s.Len())
	}
}
