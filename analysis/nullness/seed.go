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

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Seed holds the initial states of the formal parameters of a procedure.
//
// A state can only be tightened consistently: Unknown can become any state, Null and NotNull can only stay the same
// or become Both. Any other update is a contract violation and panics.
type Seed struct {
	states map[int]State
}

// NewSeed returns an empty seed
func NewSeed() *Seed {
	return &Seed{states: map[int]State{}}
}

// DefaultSeed returns the seed of a procedure with numParams parameters, numbered 1..numParams. When the procedure
// is not static, parameter 1 is its receiver and is not null; all the other parameters are Unknown.
func DefaultSeed(numParams int, static bool) *Seed {
	s := NewSeed()
	for v := 1; v <= numParams; v++ {
		s.Set(v, Unknown)
	}
	if !static && numParams > 0 {
		s.Set(1, NotNull)
	}
	return s
}

// Set sets the initial state of the value number v
func (s *Seed) Set(v int, state State) *Seed {
	if v < 1 {
		panic(errors.AssertionFailedf("invalid parameter value number %d", v))
	}
	old, ok := s.states[v]
	if ok && old != Unknown && old != state && state != Both {
		panic(errors.AssertionFailedf("cannot change seed of v%d from %s to %s", v, old, state))
	}
	s.states[v] = state
	return s
}

// Get returns the initial state of v, Unknown if it has none
func (s *Seed) Get(v int) State {
	return s.states[v]
}

// Values returns the value numbers of the seed, in increasing order
func (s *Seed) Values() []int {
	keys := maps.Keys(s.states)
	slices.Sort(keys)
	return keys
}

// Max returns the largest value number of the seed, or 0 if the seed is empty
func (s *Seed) Max() int {
	m := 0
	for v := range s.states {
		if v > m {
			m = v
		}
	}
	return m
}

// Apply writes the seed into vec. Unknown states are skipped, and value numbers larger than the vector are only
// accepted when their state is Unknown.
func (s *Seed) Apply(vec *Vector) {
	for _, v := range s.Values() {
		if state := s.states[v]; state != Unknown {
			vec.Set(v, state)
		}
	}
}

func (s *Seed) String() string {
	var parts []string
	for _, v := range s.Values() {
		parts = append(parts, fmt.Sprintf("v%d:%s", v, s.states[v]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
