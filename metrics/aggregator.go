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
	"sort"
	"sync"
	"time"

	"surge/plan"
)

// Aggregator is the single consumer of Raw Request and Raw Step samples.
// Producers never touch requests/steps directly: every virtual user writes
// to Ingest and only the goroutine started by Start reads from it, so the
// mutex below exists solely to protect Snapshot and Merge, which a Manager
// calls from other goroutines while the consumer loop keeps running.
type Aggregator struct {
	Ingest chan Sample

	trackStatus bool
	metricsFile *FileSink

	mu        sync.Mutex // guards requests/steps against concurrent Snapshot/Merge
	requests  map[string]*RequestSummary
	steps     map[string]*StepSummary
	start     time.Time
	usersUp   int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewAggregator creates an Aggregator. trackStatus enables the optional
// status-code -> count map on request summaries.
func NewAggregator(trackStatus bool) *Aggregator {
	return &Aggregator{
		Ingest:      make(chan Sample, 4096),
		trackStatus: trackStatus,
		requests:    map[string]*RequestSummary{},
		steps:       map[string]*StepSummary{},
		start:       time.Now(),
		done:        make(chan struct{}),
	}
}

// SetMetricsFile attaches a FileSink that receives one record per raw
// request sample as it is ingested, per spec.md §6; Update re-forwards are
// not written. Must be called before
// Start, or while no samples are in flight.
func (a *Aggregator) SetMetricsFile(f *FileSink) {
	a.metricsFile = f
}

// Start launches the single consumer goroutine.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case s, ok := <-a.Ingest:
				if !ok {
					return
				}
				a.ingestOne(s)
			case <-a.done:
				a.drainRemaining()
				return
			}
		}
	}()
}

// drainRemaining processes whatever is already queued before exiting, so
// a fast-finishing run doesn't lose the last few samples.
func (a *Aggregator) drainRemaining() {
	for {
		select {
		case s := <-a.Ingest:
			a.ingestOne(s)
		default:
			return
		}
	}
}

// Stop halts the consumer goroutine after draining the queue.
func (a *Aggregator) Stop() {
	close(a.done)
	a.wg.Wait()
}

func (a *Aggregator) ingestOne(s Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case s.Request != nil:
		a.recordRequest(s.Request)
	case s.Step != nil:
		a.recordStep(s.Step)
	}
}

func (a *Aggregator) recordRequest(r *RequestSample) {
	key := requestKey(r.Method, r.Name)
	sum, ok := a.requests[key]
	if !ok {
		sum = newRequestSummary(r.Method, r.Name)
		a.requests[key] = sum
	}
	if r.Update {
		sum.applyUpdate(r)
		return
	}
	sum.record(r, a.trackStatus)
	ObserveRequest(r.Method, r.Name, r.Success, r.ResponseMS)
	if a.metricsFile != nil {
		_ = a.metricsFile.Write(*r)
	}
}

func (a *Aggregator) recordStep(s *StepSample) {
	key := stepKey(s.Scenario, s.Step)
	sum, ok := a.steps[key]
	if !ok {
		sum = newStepSummary(s.Scenario, s.Step, s.Name)
		a.steps[key] = sum
	}
	sum.record(s)
	ObserveStep(fmt.Sprintf("%d", s.Scenario), fmt.Sprintf("%d", s.Step), s.Success)
}

func stepKey(scenario, step int) string {
	return fmt.Sprintf("%d:%d", scenario, step)
}

// RecordUser increments the count of virtual users launched so far.
func (a *Aggregator) RecordUser() {
	a.mu.Lock()
	a.usersUp++
	n := a.usersUp
	a.mu.Unlock()
	SetUsersActive(n)
}

// ResetOnSteady clears request/step summaries and resets the start time.
// Per spec.md §4.7, measurements taken during the hatch ramp are not
// representative of steady-state throughput.
func (a *Aggregator) ResetOnSteady() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = map[string]*RequestSummary{}
	a.steps = map[string]*StepSummary{}
	a.start = time.Now()
}

// Snapshot is a point-in-time view of the Aggregator's summaries, used both
// for printing and for shipping to a Manager.
type Snapshot struct {
	Fingerprint     plan.Fingerprint
	ElapsedSeconds  float64
	UsersLaunched   int64
	Requests        []*RequestSummary
	Steps           []*StepSummary
}

// Snapshot captures the current state of the Aggregator.
func (a *Aggregator) Snapshot(fp plan.Fingerprint) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	reqs := make([]*RequestSummary, 0, len(a.requests))
	for _, r := range a.requests {
		cp := *r
		cp.Histogram = mergeHistograms(r.Histogram, Histogram{})
		reqs = append(reqs, &cp)
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].Method != reqs[j].Method {
			return reqs[i].Method < reqs[j].Method
		}
		return reqs[i].Name < reqs[j].Name
	})

	steps := make([]*StepSummary, 0, len(a.steps))
	for _, s := range a.steps {
		cp := *s
		cp.Histogram = mergeHistograms(s.Histogram, Histogram{})
		steps = append(steps, &cp)
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].Scenario != steps[j].Scenario {
			return steps[i].Scenario < steps[j].Scenario
		}
		return steps[i].Step < steps[j].Step
	})

	return Snapshot{
		Fingerprint:    fp,
		ElapsedSeconds: time.Since(a.start).Seconds(),
		UsersLaunched:  a.usersUp,
		Requests:       reqs,
		Steps:          steps,
	}
}

// Merge folds a worker's Snapshot into this (Manager-side) Aggregator.
// Unlike the hot ingestion path, this is called concurrently from one
// goroutine per connected worker, so it takes the same lock Snapshot and
// the consumer loop use and does plain map lookups under it; a key not
// seen before gets a copy of the worker's summary.
func (a *Aggregator) Merge(snap Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range snap.Requests {
		key := requestKey(r.Method, r.Name)
		existing, ok := a.requests[key]
		if !ok {
			cp := *r
			a.requests[key] = &cp
			continue
		}
		existing.merge(r)
	}
	for _, s := range snap.Steps {
		key := stepKey(s.Scenario, s.Step)
		existing, ok := a.steps[key]
		if !ok {
			cp := *s
			a.steps[key] = &cp
			continue
		}
		existing.merge(s)
	}
	a.usersUp += snap.UsersLaunched
}
