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
	"testing"
	"time"

	"surge/plan"
)

func TestAggregatorRecordsRequestsAndSteps(t *testing.T) {
	a := NewAggregator(true)
	a.Start()
	defer a.Stop()

	a.Ingest <- Sample{Request: &RequestSample{Method: "GET", Name: "/index", ResponseMS: 20, Success: true, StatusCode: 200}}
	a.Ingest <- Sample{Request: &RequestSample{Method: "GET", Name: "/index", ResponseMS: 30, Success: false, StatusCode: 500}}
	a.Ingest <- Sample{Step: &StepSample{Scenario: 0, Step: 1, Name: "login", RuntimeMS: 5, Success: true}}
	a.RecordUser()
	a.RecordUser()

	// give the consumer goroutine a moment to drain
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap := a.Snapshot(plan.Fingerprint(0))
		if len(snap.Requests) == 1 && snap.Requests[0].Count == 2 && len(snap.Steps) == 1 {
			if snap.Requests[0].Success != 1 || snap.Requests[0].Fail != 1 {
				t.Fatalf("unexpected success/fail split: %+v", snap.Requests[0])
			}
			if snap.UsersLaunched != 2 {
				t.Fatalf("UsersLaunched = %d, want 2", snap.UsersLaunched)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("aggregator did not converge to expected snapshot in time")
}

func TestAggregatorUpdateDoesNotAddHistogramEntry(t *testing.T) {
	a := NewAggregator(false)
	a.Start()
	defer a.Stop()

	a.Ingest <- Sample{Request: &RequestSample{Method: "GET", Name: "/x", ResponseMS: 40, Success: false}}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap := a.Snapshot(plan.Fingerprint(0))
		if len(snap.Requests) == 1 && snap.Requests[0].Fail == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	a.Ingest <- Sample{Request: &RequestSample{Method: "GET", Name: "/x", Success: true, Update: true}}

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap := a.Snapshot(plan.Fingerprint(0))
		if len(snap.Requests) == 1 && snap.Requests[0].Success == 1 && snap.Requests[0].Fail == 0 {
			if snap.Requests[0].Count != 1 {
				t.Fatalf("Update must not increment Count, got %d", snap.Requests[0].Count)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("update was not reflected in snapshot in time")
}

func TestAggregatorMerge(t *testing.T) {
	manager := NewAggregator(false)
	manager.Start()
	defer manager.Stop()

	worker := NewAggregator(false)
	worker.Start()
	worker.Ingest <- Sample{Request: &RequestSample{Method: "GET", Name: "/x", ResponseMS: 10, Success: true}}
	worker.Ingest <- Sample{Step: &StepSample{Scenario: 0, Step: 0, Name: "s", RuntimeMS: 1, Success: true}}

	var snap Snapshot
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap = worker.Snapshot(plan.Fingerprint(7))
		if len(snap.Requests) == 1 && len(snap.Steps) == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	worker.Stop()

	manager.Merge(snap)
	merged := manager.Snapshot(plan.Fingerprint(7))
	if len(merged.Requests) != 1 || merged.Requests[0].Count != 1 {
		t.Fatalf("merge did not fold in worker requests: %+v", merged.Requests)
	}
	if len(merged.Steps) != 1 {
		t.Fatalf("merge did not fold in worker steps: %+v", merged.Steps)
	}

	// merging a second, identical-key snapshot should accumulate, not replace
	manager.Merge(snap)
	merged = manager.Snapshot(plan.Fingerprint(7))
	if merged.Requests[0].Count != 2 {
		t.Fatalf("second merge did not accumulate: Count = %d, want 2", merged.Requests[0].Count)
	}
}

func TestAggregatorResetOnSteady(t *testing.T) {
	a := NewAggregator(false)
	a.Start()
	defer a.Stop()

	a.Ingest <- Sample{Request: &RequestSample{Method: "GET", Name: "/x", ResponseMS: 10, Success: true}}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(a.Snapshot(plan.Fingerprint(0)).Requests) == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	a.ResetOnSteady()
	snap := a.Snapshot(plan.Fingerprint(0))
	if len(snap.Requests) != 0 {
		t.Fatalf("ResetOnSteady left %d requests, want 0", len(snap.Requests))
	}
}
