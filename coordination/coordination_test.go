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

package coordination

import (
	"net/http/httptest"
	"strings"
	"testing"

	"surge/metrics"
	"surge/plan"
)

func testPlan(t *testing.T) *plan.WeightedPlan {
	t.Helper()
	wp, err := plan.Build([]plan.Scenario{{
		Name:   "s1",
		Weight: 1,
		Steps:  []plan.Step{{Name: "x", Weight: 1, Run: func(plan.StepContext) plan.Outcome { return plan.Outcome{} }}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return wp
}

func TestSlotAssignerDeterministicForSameName(t *testing.T) {
	a := NewSlotAssigner(5)
	first := a.Assign("worker-a")
	second := a.Assign("worker-a")
	if first != second {
		t.Fatalf("Assign not deterministic: %d != %d", first, second)
	}
	if first < 0 || first >= 5 {
		t.Fatalf("Assign returned out-of-range slot %d", first)
	}
}

func TestSlotAssignerIsABijection(t *testing.T) {
	a := NewSlotAssigner(2)
	s1 := a.Assign("worker-a")
	s2 := a.Assign("worker-b")
	if s1 == s2 {
		t.Fatalf("two distinct workers got the same slot %d", s1)
	}
	// re-registering worker-a must not steal a second slot
	if again := a.Assign("worker-a"); again != s1 {
		t.Fatalf("worker-a's slot changed on re-registration: %d != %d", again, s1)
	}
}

func TestManagerRegisterPlanMetricsShutdownRoundTrip(t *testing.T) {
	wp := testPlan(t)
	fp := plan.ComputeFingerprint(wp.Scenarios)
	agg := metrics.NewAggregator(false)
	agg.Start()
	defer agg.Stop()

	mgr := NewManager(wp, fp, 2, 10, 5, "http://example.invalid", agg)
	srv := httptest.NewServer(mgr.Handler())
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	client := NewWorkerClient(addr, "worker-a")

	slot, err := client.Register()
	if err != nil {
		t.Fatal(err)
	}
	if slot < 0 || slot >= 2 {
		t.Fatalf("unexpected slot %d", slot)
	}

	resp, err := client.FetchPlan(fp, false)
	if err != nil {
		t.Fatalf("FetchPlan with matching fingerprint failed: %v", err)
	}
	if resp.YourSlot != slot {
		t.Fatalf("plan response slot %d != registered slot %d", resp.YourSlot, slot)
	}

	if _, err := client.FetchPlan(plan.Fingerprint(fp+1), false); err == nil {
		t.Fatal("expected fingerprint mismatch error")
	}
	if _, err := client.FetchPlan(plan.Fingerprint(fp+1), true); err != nil {
		t.Fatalf("no_hash_check should suppress the mismatch error: %v", err)
	}

	snap := metrics.Snapshot{Fingerprint: fp, Requests: nil, Steps: nil}
	if err := client.PushMetrics(snap); err != nil {
		t.Fatal(err)
	}

	draining, err := client.PollShutdown()
	if err != nil {
		t.Fatal(err)
	}
	if draining {
		t.Fatal("manager should not be draining yet")
	}

	mgr.Drain()
	draining, err = client.PollShutdown()
	if err != nil {
		t.Fatal(err)
	}
	if !draining {
		t.Fatal("manager should report draining after Drain()")
	}
}
