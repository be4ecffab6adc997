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

// Package gossa runs the nullness analysis on Go functions in SSA form.
//
// Build translates an *ssa.Function into a cfg.BlockGraph: every SSA value gets a value number (parameters first,
// then free variables, then the other values in instruction order), and each SSA block is split so that every
// instruction that may fault, or that has a bearing on nullness, ends its block. Faulting instructions get
// exceptional edges to the exit and, when a deferred function recovers, to the recover block of the function.
//
// The Driver analyzes functions in parallel, deciding whether calls may panic with bottom-up summaries of the
// static call graph, and caches the results.
package gossa
