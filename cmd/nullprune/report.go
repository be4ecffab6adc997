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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/awslabs/ar-go-nullness/analysis/gossa"
	"github.com/awslabs/ar-go-nullness/internal/formatutil"
	"github.com/olekukonko/tablewriter"
)

// writeJSON prints the results that are not nil as a JSON array
func writeJSON(w io.Writer, results []*gossa.Result) error {
	done := make([]*gossa.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			done = append(done, r)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(done); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// writeTable prints one row per function with at least one deleted edge, followed by the totals. If details is
// true, the deleted edges and unreachable nodes of each function are listed after the table.
func writeTable(w io.Writer, results []*gossa.Result, details bool) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Function", "Nodes", "Deleted", "Unreachable", "Exceptions"})

	var analyzed, pruned, deleted, unreachable int
	for _, r := range results {
		if r == nil {
			continue
		}
		analyzed++
		if r.Deleted == 0 {
			continue
		}
		pruned++
		deleted += r.Deleted
		unreachable += len(r.Unreachable)
		table.Append([]string{
			formatutil.Sanitize(r.Name),
			strconv.Itoa(r.Nodes),
			strconv.Itoa(r.Deleted),
			strconv.Itoa(len(r.Unreachable)),
			strconv.FormatBool(r.HasExceptions),
		})
	}
	table.SetFooter([]string{"Total", "", strconv.Itoa(deleted), strconv.Itoa(unreachable), ""})
	table.Render()

	if details {
		for _, r := range results {
			if r == nil || r.Deleted == 0 {
				continue
			}
			fmt.Fprintf(w, "%s\n", formatutil.Bold.Sprint(formatutil.Sanitize(r.Name)))
			for _, e := range r.DeletedEdges {
				fmt.Fprintf(w, "  deleted     %s\n", formatutil.Sanitize(e))
			}
			for _, n := range r.Unreachable {
				fmt.Fprintf(w, "  unreachable %s\n", formatutil.Sanitize(n))
			}
		}
	}

	fmt.Fprintf(w, "%s functions analyzed, %s with deleted edges, %s edges deleted\n",
		formatutil.Cyan.Sprint(analyzed), formatutil.Count(pruned), formatutil.Count(deleted))
}
