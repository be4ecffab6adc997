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

import (
	"fmt"
	"strings"
)

// FaultKind names a kind of fault (exception, panic) an instruction may raise.
type FaultKind string

const (
	// FaultNilDereference is raised when a null reference is dereferenced
	FaultNilDereference FaultKind = "nil-dereference"
	// FaultIndexOutOfRange is raised by out-of-bounds indexing and slicing
	FaultIndexOutOfRange FaultKind = "index-out-of-range"
	// FaultTypeAssertion is raised by failed casts and type assertions
	FaultTypeAssertion FaultKind = "type-assertion"
	// FaultDivideByZero is raised by integer division by zero
	FaultDivideByZero FaultKind = "divide-by-zero"
	// FaultNegativeSize is raised by allocations with a negative size
	FaultNegativeSize FaultKind = "negative-size"
	// FaultNegativeShift is raised by shifts by a negative count
	FaultNegativeShift FaultKind = "negative-shift"
	// FaultMonitorState is raised by illegal monitor operations
	FaultMonitorState FaultKind = "monitor-state"
	// FaultClosedChannel is raised by operations on closed or nil channels that panic
	FaultClosedChannel FaultKind = "closed-channel"
	// FaultPanic is an explicit throw or panic
	FaultPanic FaultKind = "panic"
	// FaultAny stands for any fault raised inside the callee of a call
	FaultAny FaultKind = "any"
)

// AllFaultKinds lists every known fault kind
var AllFaultKinds = []FaultKind{
	FaultNilDereference,
	FaultIndexOutOfRange,
	FaultTypeAssertion,
	FaultDivideByZero,
	FaultNegativeSize,
	FaultNegativeShift,
	FaultMonitorState,
	FaultClosedChannel,
	FaultPanic,
	FaultAny,
}

// ParseFaultKind returns the fault kind named s. Names are case-insensitive.
func ParseFaultKind(s string) (FaultKind, error) {
	name := FaultKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range AllFaultKinds {
		if k == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown fault kind %q", s)
}
