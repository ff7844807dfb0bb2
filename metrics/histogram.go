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

import "sort"

// roundBucket rounds a raw millisecond sample to a compact histogram key,
// per spec.md §4.4's table: no rounding below 100ms, nearest 10 up to
// 500ms, nearest 100 up to 1000ms, nearest 1000 above that.
func roundBucket(ms int64) int64 {
	switch {
	case ms <= 100:
		return ms
	case ms <= 500:
		return roundNearest(ms, 10)
	case ms <= 1000:
		return roundNearest(ms, 100)
	default:
		return roundNearest(ms, 1000)
	}
}

func roundNearest(v, unit int64) int64 {
	return ((v + unit/2) / unit) * unit
}

// Histogram is a rounded-bucket-key -> count map.
type Histogram map[int64]int64

func (h Histogram) add(ms int64) {
	h[roundBucket(ms)]++
}

// sum returns the total count across all buckets.
func (h Histogram) sum() int64 {
	var total int64
	for _, c := range h {
		total += c
	}
	return total
}

// sortedKeys returns the histogram's keys in ascending order.
func (h Histogram) sortedKeys() []int64 {
	keys := make([]int64, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// percentile computes the p-th percentile (0 < p <= 1) from the histogram,
// clamped to [min, max]. Returns 0 if the histogram is empty.
func percentile(h Histogram, p float64, min, max int64) int64 {
	total := h.sum()
	if total == 0 {
		return 0
	}
	target := int64(float64(total)*p + 0.5)
	if target < 1 {
		target = 1
	}
	var running int64
	for _, key := range h.sortedKeys() {
		running += h[key]
		if running >= target {
			return clamp(key, min, max)
		}
	}
	return clamp(max, min, max)
}

func clamp(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Percentiles are the standard set computed for each summary at
// termination, per spec.md §4.4.
var Percentiles = []float64{.5, .75, .98, .99, .999, .9999}

// merge combines two histograms, returning a new one.
func mergeHistograms(a, b Histogram) Histogram {
	out := make(Histogram, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}
