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

func TestRequestSummaryRecord(t *testing.T) {
	s := newRequestSummary("GET", "/index")
	s.record(&RequestSample{ResponseMS: 50, Success: true, StatusCode: 200}, true)
	s.record(&RequestSample{ResponseMS: 150, Success: false, StatusCode: 500}, true)

	if s.Count != 2 {
		t.Fatalf("Count = %d, want 2", s.Count)
	}
	if s.Success+s.Fail != s.Count {
		t.Fatalf("Success+Fail (%d+%d) != Count (%d)", s.Success, s.Fail, s.Count)
	}
	if s.Min != 50 || s.Max != 150 {
		t.Fatalf("Min/Max = %d/%d, want 50/150", s.Min, s.Max)
	}
	if s.StatusCodes[200] != 1 || s.StatusCodes[500] != 1 {
		t.Fatalf("unexpected status codes: %+v", s.StatusCodes)
	}
}

func TestRequestSummaryApplyUpdate(t *testing.T) {
	s := newRequestSummary("GET", "/index")
	s.record(&RequestSample{ResponseMS: 50, Success: false}, false)
	if s.Fail != 1 || s.Success != 0 {
		t.Fatalf("precondition failed: %+v", s)
	}
	beforeCount := s.Count
	beforeHistSum := s.Histogram.sum()

	s.applyUpdate(&RequestSample{Success: true, Update: true})

	if s.Success != 1 || s.Fail != 0 {
		t.Fatalf("after update Success/Fail = %d/%d, want 1/0", s.Success, s.Fail)
	}
	if s.Count != beforeCount {
		t.Fatalf("Update must not change Count: got %d, want %d", s.Count, beforeCount)
	}
	if s.Histogram.sum() != beforeHistSum {
		t.Fatalf("Update must not add a histogram entry")
	}
	if s.Success+s.Fail != s.Count {
		t.Fatalf("invariant broken after update: Success+Fail (%d) != Count (%d)", s.Success+s.Fail, s.Count)
	}
}

func TestRequestSummaryMerge(t *testing.T) {
	a := newRequestSummary("GET", "/index")
	a.record(&RequestSample{ResponseMS: 10, Success: true}, false)
	b := newRequestSummary("GET", "/index")
	b.record(&RequestSample{ResponseMS: 90, Success: false}, false)

	a.merge(b)
	if a.Count != 2 {
		t.Fatalf("Count after merge = %d, want 2", a.Count)
	}
	if a.Min != 10 || a.Max != 90 {
		t.Fatalf("Min/Max after merge = %d/%d, want 10/90", a.Min, a.Max)
	}
	if a.Success != 1 || a.Fail != 1 {
		t.Fatalf("Success/Fail after merge = %d/%d, want 1/1", a.Success, a.Fail)
	}
}

func TestStepSummaryRecordAndMerge(t *testing.T) {
	s := newStepSummary(0, 1, "login")
	s.record(&StepSample{RuntimeMS: 20, Success: true})
	s.record(&StepSample{RuntimeMS: 40, Success: false})
	if s.Count != 2 || s.Success != 1 || s.Fail != 1 {
		t.Fatalf("unexpected step summary: %+v", s)
	}

	o := newStepSummary(0, 1, "login")
	o.record(&StepSample{RuntimeMS: 5, Success: true})
	s.merge(o)
	if s.Count != 3 || s.Min != 5 {
		t.Fatalf("unexpected step summary after merge: %+v", s)
	}
}

func TestComputePercentiles(t *testing.T) {
	h := Histogram{}
	for i := int64(1); i <= 10; i++ {
		h.add(i)
	}
	row := computePercentiles(h, 1, 10)
	if row.P50 == 0 {
		t.Fatalf("P50 unexpectedly zero: %+v", row)
	}
	if row.P9999 < row.P50 {
		t.Fatalf("P9999 (%d) should be >= P50 (%d)", row.P9999, row.P50)
	}
}
