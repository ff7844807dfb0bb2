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

// Package vuser runs one Virtual User: on-start hooks once, the main-plan
// bucket sequence until told to stop, then on-stop hooks once.
package vuser

import (
	"context"
	"math/rand"
	"time"

	"surge/debuglog"
	"surge/httpclient"
	"surge/metrics"
	"surge/plan"
	"surge/throttle"
)

// User is a single virtual user's runtime state: its allocated scenario,
// an HTTP session, and the optional shared services every step may reach
// for through its StepHandle.
type User struct {
	Index       int
	Scenario    plan.Scenario
	scenarioIdx int
	steps       plan.ScenarioPlan

	session  *httpclient.Session
	throttle *throttle.Throttle
	debug    debuglog.Sink
	ingest   chan<- metrics.Sample

	rng *rand.Rand
}

// New constructs a User for a given scenario index within plan wp. The
// base URL is resolved once here, per spec.md §4.2's "frozen at user
// construction" rule.
func New(index int, wp *plan.WeightedPlan, opts httpclient.Options, globalHost, defaultHost string, th *throttle.Throttle, dbg debuglog.Sink, ingest chan<- metrics.Sample) (*User, error) {
	scenarioIdx := wp.AllocateUser(index)
	scenario := wp.Scenarios[scenarioIdx]
	base := httpclient.ResolveBaseURL(scenario.Host, globalHost, defaultHost)

	session, err := httpclient.NewSession(base, opts)
	if err != nil {
		return nil, err
	}

	return &User{
		Index:       index,
		Scenario:    scenario,
		scenarioIdx: scenarioIdx,
		steps:       wp.Plans[scenarioIdx],
		session:     session,
		throttle:    th,
		debug:       dbg,
		ingest:      ingest,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano() + int64(index))),
	}, nil
}

// Run executes the full user lifecycle: on-start hooks, the main loop
// (until ctx is cancelled), then on-stop hooks. It never returns before
// on-stop hooks have run, so teardown always happens even on cancellation.
func (u *User) Run(ctx context.Context) {
	defer u.session.Close()

	u.runBucketsOnce(ctx, u.steps.OnStart)
	u.runMain(ctx)
	// ctx is already cancelled once runMain returns, so on-stop hooks run
	// on a context that keeps its values but drops that cancellation.
	u.runBucketsOnce(context.WithoutCancel(ctx), u.steps.OnStop)
}

// runBucketsOnce walks every bucket exactly once, in order, with no
// think-time between steps — hooks run back to back per spec.md §4.2.
func (u *User) runBucketsOnce(ctx context.Context, buckets []plan.Bucket) {
	for _, bucket := range buckets {
		for _, stepIdx := range bucket {
			if ctx.Err() != nil {
				return
			}
			u.invoke(ctx, stepIdx)
		}
	}
}

// runMain loops the main-plan buckets, wrapping around after the last one,
// until ctx is cancelled. Cancellation is checked at the top of every step
// iteration so a draining user stops between steps rather than mid-request.
func (u *User) runMain(ctx context.Context) {
	buckets := u.steps.Main
	if len(buckets) == 0 {
		return
	}
	bucketIdx, stepIdx := 0, 0
	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		bucket := buckets[bucketIdx]
		if len(bucket) == 0 {
			bucketIdx = (bucketIdx + 1) % len(buckets)
			continue
		}
		if stepIdx >= len(bucket) {
			stepIdx = 0
		}

		if !first {
			if !u.thinkTime(ctx) {
				return
			}
		}
		first = false

		u.invoke(ctx, bucket[stepIdx])

		stepIdx++
		if stepIdx >= len(bucket) {
			stepIdx = 0
			bucketIdx = (bucketIdx + 1) % len(buckets)
		}
	}
}

// thinkTime sleeps a uniformly random duration in [MinWait, MaxWait],
// returning false if ctx is cancelled first.
func (u *User) thinkTime(ctx context.Context) bool {
	min, max := u.Scenario.MinWait, u.Scenario.MaxWait
	wait := min
	if max > min {
		wait = min + time.Duration(u.rng.Int63n(int64(max-min)+1))
	}
	if wait <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (u *User) invoke(ctx context.Context, stepIdx int) {
	step := u.Scenario.Steps[stepIdx]
	handle := &StepHandle{ctx: ctx, user: u}

	start := time.Now()
	outcome := step.Run(handle)
	runtime := time.Since(start)

	success := outcome.Kind == plan.OutcomeOK
	u.forwardStep(metrics.StepSample{
		ElapsedMS: start.UnixMilli(),
		Scenario:  u.scenarioIdx,
		Step:      stepIdx,
		Name:      step.Name,
		RuntimeMS: runtime.Milliseconds(),
		Success:   success,
		UserIndex: u.Index,
	})
}

func (u *User) forwardStep(s metrics.StepSample) {
	if u.ingest == nil {
		return
	}
	u.ingest <- metrics.Sample{Step: &s}
}
