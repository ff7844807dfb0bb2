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

package throttle

import (
	"context"
	"testing"
	"time"
)

func TestNewRejectsOutOfRange(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for rate 0")
	}
	if _, err := New(1_000_001); err == nil {
		t.Fatal("expected error for rate over max")
	}
}

func TestAcquireFillsOneFreeSlotThenBlocks(t *testing.T) {
	th, err := New(5)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	// bucket pre-filled to capacity-1=4, leaving exactly one free slot:
	// one Acquire (enqueue) fits immediately.
	if err := th.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	// the bucket is now full; without the leaker running, the next
	// Acquire must block.
	done := make(chan error, 1)
	go func() { done <- th.Acquire(ctx) }()
	select {
	case <-done:
		t.Fatal("2nd Acquire should not have succeeded without the leaker running")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	th, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	// pre-filled to capacity-1=0: the single slot starts free, so this
	// succeeds immediately and leaves the bucket full.
	if err := th.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	// the bucket is now full; without the leaker running, the next
	// Acquire must block until the context deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := th.Acquire(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestLeakerRefillsAtConfiguredRate(t *testing.T) {
	th, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	th.Start()
	defer th.Stop()

	ctx := context.Background()
	// capacity 2, pre-filled to 1: first Acquire immediate
	if err := th.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	// second must wait for the leaker (~500ms for rate=2)
	start := time.Now()
	if err := th.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Fatalf("Acquire returned too fast (%v), leaker may not be rate-limiting", elapsed)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	th, err := New(10)
	if err != nil {
		t.Fatal(err)
	}
	th.Start()
	th.Stop()
	th.Stop()
}
