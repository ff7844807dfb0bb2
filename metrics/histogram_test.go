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

import "testing"

func TestRoundBucket(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{0, 0},
		{42, 42},
		{100, 100},
		{101, 100},
		{104, 100},
		{105, 110},
		{500, 500},
		{501, 500},
		{549, 500},
		{551, 600},
		{1000, 1000},
		{1001, 1000},
		{1499, 1000},
		{1501, 2000},
	}
	for _, c := range cases {
		if got := roundBucket(c.in); got != c.want {
			t.Errorf("roundBucket(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestHistogramPercentile(t *testing.T) {
	h := Histogram{}
	for i := 1; i <= 100; i++ {
		h.add(int64(i))
	}
	if got := percentile(h, .5, 1, 100); got < 45 || got > 55 {
		t.Errorf("p50 = %d, want near 50", got)
	}
	if got := percentile(h, .99, 1, 100); got < 95 {
		t.Errorf("p99 = %d, want near 99-100", got)
	}
	if got := percentile(h, 1.0, 1, 100); got != 100 {
		t.Errorf("p100-ish = %d, want 100", got)
	}
}

func TestPercentileEmptyHistogram(t *testing.T) {
	h := Histogram{}
	if got := percentile(h, .5, 0, 0); got != 0 {
		t.Errorf("percentile of empty histogram = %d, want 0", got)
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(5, 10, 20); got != 10 {
		t.Errorf("clamp below min = %d, want 10", got)
	}
	if got := clamp(25, 10, 20); got != 20 {
		t.Errorf("clamp above max = %d, want 20", got)
	}
	if got := clamp(15, 10, 20); got != 15 {
		t.Errorf("clamp in range = %d, want 15", got)
	}
}

func TestMergeHistograms(t *testing.T) {
	a := Histogram{10: 3, 20: 1}
	b := Histogram{10: 2, 30: 5}
	merged := mergeHistograms(a, b)
	if merged[10] != 5 || merged[20] != 1 || merged[30] != 5 {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	// originals untouched
	if a[10] != 3 || b[10] != 2 {
		t.Fatalf("merge mutated an input histogram")
	}
}
