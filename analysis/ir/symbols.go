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

package ir

// Symbols is a SymbolTable backed by a map from value numbers to whether the constant is null.
type Symbols struct {
	constants map[int]bool
}

var _ SymbolTable = (*Symbols)(nil)

// NewSymbols returns an empty symbol table
func NewSymbols() *Symbols {
	return &Symbols{constants: map[int]bool{}}
}

// AddConstant records that v is a non-null constant
func (s *Symbols) AddConstant(v int) *Symbols {
	s.constants[v] = false
	return s
}

// AddNull records that v is the null constant
func (s *Symbols) AddNull(v int) *Symbols {
	s.constants[v] = true
	return s
}

// IsConstant implements SymbolTable
func (s *Symbols) IsConstant(v int) bool {
	_, ok := s.constants[v]
	return ok
}

// IsNullConstant implements SymbolTable
func (s *Symbols) IsNullConstant(v int) bool {
	return s.constants[v]
}

// Len returns the number of constants in the table
func (s *Symbols) Len() int {
	return len(s.constants)
}
