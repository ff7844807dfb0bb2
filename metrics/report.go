// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"fmt"
	"io"
)

// PrintRunning writes a running-metrics table: per-request and per-step
// counts, failure percentages, and requests/s. No percentile table (that
// is termination-only, per spec.md §4.4).
func PrintRunning(w io.Writer, snap Snapshot) {
	printTable(w, snap, false)
}

// PrintFinal writes the final summary table including percentiles.
func PrintFinal(w io.Writer, snap Snapshot) {
	printTable(w, snap, true)
}

func printTable(w io.Writer, snap Snapshot, withPercentiles bool) {
	fmt.Fprintf(w, "=== Requests (elapsed %.0fs, users %d) ===\n", snap.ElapsedSeconds, snap.UsersLaunched)
	var totalCount, totalFail, totalSum int64
	var aggHist Histogram = Histogram{}
	var aggMin, aggMax int64
	for _, r := range snap.Requests {
		reqPerSec := perSecond(r.Count, snap.ElapsedSeconds)
		failPct := percentOf(r.Fail, r.Count)
		fmt.Fprintf(w, "%-6s %-30s count=%d fail=%.1f%% req/s=%d\n", r.Method, r.Name, r.Count, failPct, reqPerSec)
		totalCount += r.Count
		totalFail += r.Fail
		totalSum += r.Sum
		aggHist = mergeHistograms(aggHist, r.Histogram)
		if aggMin == 0 || (r.Min != 0 && r.Min < aggMin) {
			aggMin = r.Min
		}
		if r.Max > aggMax {
			aggMax = r.Max
		}
	}
	if len(snap.Requests) > 1 {
		fmt.Fprintf(w, "%-6s %-30s count=%d fail=%.1f%% req/s=%d\n", "", "Aggregated", totalCount, percentOf(totalFail, totalCount), perSecond(totalCount, snap.ElapsedSeconds))
	}

	fmt.Fprintf(w, "=== Steps ===\n")
	for _, s := range snap.Steps {
		failPct := percentOf(s.Fail, s.Count)
		fmt.Fprintf(w, "scenario=%d step=%d %-30s count=%d fail=%.1f%%\n", s.Scenario, s.Step, s.Name, s.Count, failPct)
	}

	if withPercentiles && len(snap.Requests) > 0 {
		fmt.Fprintf(w, "=== Percentiles (ms) ===\n")
		for _, r := range snap.Requests {
			row := computePercentiles(r.Histogram, r.Min, r.Max)
			fmt.Fprintf(w, "%-6s %-30s p50=%d p75=%d p98=%d p99=%d p999=%d p9999=%d\n",
				r.Method, r.Name, row.P50, row.P75, row.P98, row.P99, row.P999, row.P9999)
		}
		if len(snap.Requests) > 1 {
			row := computePercentiles(aggHist, aggMin, aggMax)
			fmt.Fprintf(w, "%-6s %-30s p50=%d p75=%d p98=%d p99=%d p999=%d p9999=%d\n",
				"", "Aggregated", row.P50, row.P75, row.P98, row.P99, row.P999, row.P9999)
		}
	}
}

func perSecond(count int64, elapsed float64) int64 {
	if elapsed <= 0 {
		return 0
	}
	return int64(float64(count) / elapsed)
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
