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

// Package throttle is the process-wide leaky bucket that every virtual
// user's HTTP call passes through before it is allowed onto the wire.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Throttle is a buffered-channel leaky bucket. Acquire enqueues a slot for
// the caller's request, blocking once the bucket is full; a background
// leaker goroutine dequeues one slot per tick at a fixed rate, letting the
// next blocked Acquire through.
type Throttle struct {
	tokens   chan struct{}
	rate     int
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
}

const (
	minRate = 1
	maxRate = 1_000_000
)

// New builds a Throttle for requestsPerSecond, which must be in
// [1, 1_000_000] per spec.md §4.3. The bucket capacity equals
// requestsPerSecond and starts pre-filled to capacity-1, occupying all but
// one slot, so the first Acquire succeeds immediately but the rest must
// wait on the leaker: the first second is not a burst.
func New(requestsPerSecond int) (*Throttle, error) {
	if requestsPerSecond < minRate || requestsPerSecond > maxRate {
		return nil, fmt.Errorf("throttle: requests_per_second %d out of range [%d, %d]", requestsPerSecond, minRate, maxRate)
	}
	t := &Throttle{
		tokens:   make(chan struct{}, requestsPerSecond),
		rate:     requestsPerSecond,
		stopChan: make(chan struct{}),
	}
	for i := 0; i < requestsPerSecond-1; i++ {
		t.tokens <- struct{}{}
	}
	return t, nil
}

// Start launches the leaker goroutine.
func (t *Throttle) Start() {
	t.wg.Add(1)
	go t.leak()
}

func (t *Throttle) leak() {
	defer t.wg.Done()
	interval := time.Second / time.Duration(t.rate)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-t.tokens:
			default:
				// bucket already empty, nothing queued this tick
			}
		case <-t.stopChan:
			return
		}
	}
}

// Stop halts the leaker goroutine. Idempotent.
func (t *Throttle) Stop() {
	if !atomic.CompareAndSwapUint32(&t.stopped, 0, 1) {
		return
	}
	close(t.stopChan)
	t.wg.Wait()
}

// Acquire blocks until the bucket has room to enqueue this request,
// returning ctx.Err() if the context is cancelled first.
func (t *Throttle) Acquire(ctx context.Context) error {
	select {
	case t.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
