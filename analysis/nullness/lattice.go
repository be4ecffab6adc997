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

import "fmt"

// State is the abstract nullness of one value at one program point.
//
// Unknown is the bottom element. Null and NotNull are incomparable, and Both is above both of them.
type State uint8

const (
	// Unknown means nothing is known about the value yet
	Unknown State = iota
	// Null means the value is nil on every path reaching the program point
	Null
	// NotNull means the value is not nil on every path reaching the program point
	NotNull
	// Both means the value may be nil or not nil
	Both
)

// Meet returns the meet of a and b, and whether the result differs from a.
func Meet(a, b State) (State, bool) {
	switch {
	case a == b, b == Unknown:
		return a, false
	case a == Unknown:
		return b, true
	default:
		return Both, a != Both
	}
}

// IsNeverNull returns true if the value is provably not nil
func (s State) IsNeverNull() bool {
	return s == NotNull
}

// IsAlwaysNull returns true if the value is provably nil
func (s State) IsAlwaysNull() bool {
	return s == Null
}

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Null:
		return "null"
	case NotNull:
		return "not-null"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}
