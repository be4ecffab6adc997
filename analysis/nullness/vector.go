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
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"github.com/cockroachdb/errors"
	"github.com/willf/bitset"
)

// Constants records which value numbers of a procedure are compile-time constants, and which of those are the null
// constant. It is built once per analysis and shared by all the vectors of the analysis.
type Constants struct {
	max      int
	constant *bitset.BitSet
	null     *bitset.BitSet
}

// NewConstants returns the constants mask of the value numbers 1..maxValue according to symbols
func NewConstants(maxValue int, symbols ir.SymbolTable) *Constants {
	c := &Constants{
		max:      maxValue,
		constant: bitset.New(uint(maxValue + 1)),
		null:     bitset.New(uint(maxValue + 1)),
	}
	for v := 1; v <= maxValue; v++ {
		if symbols.IsConstant(v) {
			c.constant.Set(uint(v))
			if symbols.IsNullConstant(v) {
				c.null.Set(uint(v))
			}
		}
	}
	return c
}

// Max returns the largest value number
func (c *Constants) Max() int {
	return c.max
}

// IsConstant returns true if v is a constant
func (c *Constants) IsConstant(v int) bool {
	return v > 0 && v <= c.max && c.constant.Test(uint(v))
}

// Count returns the number of constants
func (c *Constants) Count() int {
	return int(c.constant.Count())
}

func (c *Constants) state(v int) State {
	if c.null.Test(uint(v)) {
		return Null
	}
	return NotNull
}

// Vector holds one State per value number. Index 0 is unused, value numbers start at 1.
// The states of constants are fixed when the vector is created and never change.
type Vector struct {
	states    []State
	constants *Constants
}

// NewVector returns a vector where constants have their fixed state and every other value is Unknown
func NewVector(c *Constants) *Vector {
	v := &Vector{
		states:    make([]State, c.max+1),
		constants: c,
	}
	for i, ok := c.constant.NextSet(0); ok; i, ok = c.constant.NextSet(i + 1) {
		v.states[i] = c.state(int(i))
	}
	return v
}

func (v *Vector) check(n int) {
	if n < 1 || n >= len(v.states) {
		panic(errors.AssertionFailedf("value number %d out of range [1, %d]", n, len(v.states)-1))
	}
}

// Get returns the state of the value number n
func (v *Vector) Get(n int) State {
	v.check(n)
	return v.states[n]
}

// Set sets the state of the value number n, and returns true if the vector changed. Setting the state of a
// constant has no effect.
func (v *Vector) Set(n int, s State) bool {
	v.check(n)
	if v.constants.constant.Test(uint(n)) || v.states[n] == s {
		return false
	}
	v.states[n] = s
	return true
}

// Len returns the number of value numbers in the vector
func (v *Vector) Len() int {
	return len(v.states) - 1
}

// MeetInto meets every state of other into v, and returns true if v changed
func (v *Vector) MeetInto(other *Vector) bool {
	v.compatible(other)
	changed := false
	for i := 1; i < len(v.states); i++ {
		s, c := Meet(v.states[i], other.states[i])
		if c {
			v.states[i] = s
			changed = true
		}
	}
	return changed
}

// CopyFrom copies the states of other into v, and returns true if v changed
func (v *Vector) CopyFrom(other *Vector) bool {
	return v.copyExcept(other, ir.NoValue)
}

// copyExcept copies all states except the one of skip
func (v *Vector) copyExcept(other *Vector, skip int) bool {
	if v == other {
		return false
	}
	v.compatible(other)
	changed := false
	for i := 1; i < len(v.states); i++ {
		if i != skip && v.states[i] != other.states[i] {
			v.states[i] = other.states[i]
			changed = true
		}
	}
	return changed
}

// Equal returns true if v and other hold the same states
func (v *Vector) Equal(other *Vector) bool {
	if len(v.states) != len(other.states) {
		return false
	}
	for i := 1; i < len(v.states); i++ {
		if v.states[i] != other.states[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of v
func (v *Vector) Clone() *Vector {
	states := make([]State, len(v.states))
	copy(states, v.states)
	return &Vector{states: states, constants: v.constants}
}

func (v *Vector) compatible(other *Vector) {
	if len(v.states) != len(other.states) {
		panic(errors.AssertionFailedf("vectors of different lengths %d and %d", v.Len(), other.Len()))
	}
}

// String returns the states of the values that are not Unknown
func (v *Vector) String() string {
	var parts []string
	for i := 1; i < len(v.states); i++ {
		if v.states[i] != Unknown {
			parts = append(parts, fmt.Sprintf("v%d:%s", i, v.states[i]))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
