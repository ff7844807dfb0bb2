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

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"surge/debuglog"
	"surge/httpclient"
	"surge/metrics"
	"surge/plan"
	"surge/throttle"
	"surge/vuser"
)

// Config carries every Orchestrator-level knob from spec.md §4.7 and §6.
type Config struct {
	Users       int
	HatchRate   float64
	RunTime     time.Duration // 0 disables the time budget; drain only on signal/Drain()
	GlobalHost  string
	DefaultHost string

	NoResetMetrics bool
	OnlySummary    bool
	MetricsEnabled bool

	// TestStart/TestStop are exactly-once hooks run before the first user
	// spawn and after the last user exit. They receive only a context; no
	// user instance or HTTP session is built for them.
	TestStart func(ctx context.Context)
	TestStop  func(ctx context.Context)
}

// Orchestrator drives the full run lifecycle over a validated plan.
type Orchestrator struct {
	cfg      Config
	wp       *plan.WeightedPlan
	agg      *metrics.Aggregator
	httpOpts httpclient.Options
	throttle *throttle.Throttle
	debug    debuglog.Sink

	state   stateBox
	drainCh chan struct{}
	once    sync.Once
}

// New builds an Orchestrator. agg must already be Start()-ed; th and dbg
// may be nil.
func New(cfg Config, wp *plan.WeightedPlan, agg *metrics.Aggregator, httpOpts httpclient.Options, th *throttle.Throttle, dbg debuglog.Sink) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		wp:       wp,
		agg:      agg,
		httpOpts: httpOpts,
		throttle: th,
		debug:    dbg,
		drainCh:  make(chan struct{}),
	}
	o.state.Store(Validated)
	return o
}

// State reports the Orchestrator's current lifecycle state.
func (o *Orchestrator) State() State { return o.state.Load() }

// Drain requests an early transition to Draining, as if the run-time
// budget had elapsed. Idempotent.
func (o *Orchestrator) Drain() {
	o.once.Do(func() { close(o.drainCh) })
}

// Run executes the full lifecycle and blocks until Reporting completes.
// parent's cancellation is treated the same as a drain request, letting a
// Worker's EXIT command or a StandAlone run's own ctx both terminate it.
func (o *Orchestrator) Run(parent context.Context) {
	runCtx, cancelRun := context.WithCancel(parent)
	defer cancelRun()

	if o.cfg.TestStart != nil {
		o.cfg.TestStart(runCtx)
	}

	o.state.Store(Hatching)
	var wg sync.WaitGroup
	o.hatch(runCtx, &wg)

	o.state.Store(Steady)
	if !o.cfg.NoResetMetrics {
		o.agg.ResetOnSteady()
	} else {
		fmt.Println("metrics reset skipped (no_reset_metrics set)")
	}

	stopTicker := make(chan struct{})
	var tickerWG sync.WaitGroup
	if o.cfg.MetricsEnabled && !o.cfg.OnlySummary {
		tickerWG.Add(1)
		go o.runMetricsTicker(stopTicker, &tickerWG)
	}

	o.waitForDrainSignal(runCtx)

	o.state.Store(Draining)
	cancelRun()
	close(stopTicker)
	tickerWG.Wait()
	wg.Wait()

	if o.cfg.TestStop != nil {
		o.cfg.TestStop(parent)
	}

	o.state.Store(Reporting)
	o.report()
}

// hatch spawns cfg.Users virtual users, one every 1/hatch_rate seconds,
// correcting for accumulated scheduling drift the way a naive fixed sleep
// would not.
func (o *Orchestrator) hatch(ctx context.Context, wg *sync.WaitGroup) {
	if o.cfg.Users <= 0 {
		return
	}
	interval := time.Duration(float64(time.Second) / o.cfg.HatchRate)
	start := time.Now()

	for i := 0; i < o.cfg.Users; i++ {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			expected := time.Duration(i) * interval
			sleep := expected - time.Since(start)
			if sleep > 0 {
				t := time.NewTimer(sleep)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return
				}
			}
		}
		o.spawnUser(ctx, i, wg)
	}
}

func (o *Orchestrator) spawnUser(ctx context.Context, index int, wg *sync.WaitGroup) {
	u, err := vuser.New(index, o.wp, o.httpOpts, o.cfg.GlobalHost, o.cfg.DefaultHost, o.throttle, o.debug, o.agg.Ingest)
	if err != nil {
		fmt.Printf("failed to construct user %d: %v\n", index, err)
		return
	}
	o.agg.RecordUser()
	wg.Add(1)
	go func() {
		defer wg.Done()
		u.Run(ctx)
	}()
}

// waitForDrainSignal blocks until the run-time budget elapses, an explicit
// Drain() call arrives, a SIGINT/SIGTERM is observed (wired exactly as
// cmd/ratelimiter-api's main.go wires its own shutdown signal), or the
// parent context is cancelled (a Worker's EXIT command).
func (o *Orchestrator) waitForDrainSignal(ctx context.Context) {
	var budget <-chan time.Time
	if o.cfg.RunTime > 0 {
		timer := time.NewTimer(o.cfg.RunTime)
		defer timer.Stop()
		budget = timer.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-budget:
	case <-o.drainCh:
	case <-sigCh:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) runMetricsTicker(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.PrintRunning(os.Stdout, o.agg.Snapshot(plan.Fingerprint(0)))
		case <-stop:
			return
		}
	}
}

func (o *Orchestrator) report() {
	snap := o.agg.Snapshot(plan.Fingerprint(0))
	metrics.PrintFinal(os.Stdout, snap)
	if o.debug != nil {
		o.debug.Write(nil) // flush sentinel
		_ = o.debug.Close()
	}
	if o.throttle != nil {
		o.throttle.Stop()
	}
}
