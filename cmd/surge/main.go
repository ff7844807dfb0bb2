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

// Package main is the entry point for surge, an HTTP load-generation
// engine. It wires CLI configuration, the Weight Planner, the Metrics
// Aggregator, the Attack Orchestrator, and the Manager/Worker control
// plane together, exactly the way cmd/ratelimiter-api/main.go wires its
// own store, worker, and API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surge/config"
	"surge/coordination"
	"surge/debuglog"
	"surge/httpclient"
	"surge/metrics"
	"surge/orchestrator"
	"surge/plan"
	"surge/throttle"
)

const version = "surge 0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	cfg, err := config.Parse(args, config.Defaults{}, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(stderr, ve)
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if cfg.Version {
		fmt.Fprintln(stdout, version)
		return 0
	}

	logger, closeLogger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeLogger()

	scenarios := demoScenarios()

	if cfg.List {
		printScenarios(stdout, scenarios)
		return 0
	}

	wp, err := plan.Build(scenarios)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	mode, err := cfg.Mode()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	interrupted := make(chan struct{})
	go func() {
		if _, ok := <-sigCh; ok {
			close(interrupted)
		}
	}()

	var runErr error
	switch mode {
	case config.Manager:
		runErr = runManager(cfg, wp, interrupted, stdout, logger)
	case config.Worker:
		runErr = runWorker(cfg, wp, interrupted, stdout, logger)
	default:
		runErr = runStandAlone(cfg, wp, interrupted, stdout, logger)
	}
	if runErr != nil {
		fmt.Fprintln(stderr, runErr)
		return 1
	}

	select {
	case <-interrupted:
		return 130
	default:
		return 0
	}
}

func printScenarios(w *os.File, scenarios []plan.Scenario) {
	for _, s := range scenarios {
		fmt.Fprintf(w, "scenario %q (weight %d)\n", s.Name, s.Weight)
		for _, st := range s.Steps {
			tag := ""
			switch {
			case st.OnStart && st.OnStop:
				tag = " [on_start+on_stop]"
			case st.OnStart:
				tag = " [on_start]"
			case st.OnStop:
				tag = " [on_stop]"
			}
			fmt.Fprintf(w, "  step %q (weight %d)%s\n", st.Name, st.Weight, tag)
		}
	}
}

// newLogger opens --log-file if set, matching internal/sinks' buffered
// append-mode file idiom, and otherwise logs to fallback (stderr). Mirrors
// cmd/ratelimiter-api/main.go's use of the stdlib log package for
// operational messages, fmt.Fprintln being reserved for final output and
// user-facing errors.
func newLogger(cfg *config.Config, fallback *os.File) (*log.Logger, func() error, error) {
	if cfg.LogFile == "" {
		return log.New(fallback, "", log.LstdFlags), func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return log.New(f, "", log.LstdFlags), f.Close, nil
}

// verbose reports whether --log-level or --verbose (both integer flags in
// config.Parse; a repeated flag keeps its last value and is not counted)
// were raised above their zero default.
func verbose(cfg *config.Config) bool {
	return cfg.LogLevel > 0 || cfg.Verbose > 0
}

func buildHTTPOptions(cfg *config.Config) httpclient.Options {
	return httpclient.Options{
		StickyFollow: cfg.StickyFollow,
	}
}

func buildThrottle(cfg *config.Config) (*throttle.Throttle, error) {
	if cfg.ThrottleRequests <= 0 {
		return nil, nil
	}
	th, err := throttle.New(cfg.ThrottleRequests)
	if err != nil {
		return nil, err
	}
	th.Start()
	return th, nil
}

func buildDebugSink(cfg *config.Config) (debuglog.Sink, error) {
	if cfg.DebugFile == "" {
		return nil, nil
	}
	return debuglog.New(cfg.DebugFile, debuglog.Format(cfg.DebugFormat))
}

func buildMetricsFile(cfg *config.Config) (*metrics.FileSink, error) {
	if cfg.MetricsFile == "" {
		return nil, nil
	}
	return metrics.NewFileSink(cfg.MetricsFile, metrics.FileFormat(cfg.MetricsFormat))
}

func runStandAlone(cfg *config.Config, wp *plan.WeightedPlan, interrupted <-chan struct{}, stdout *os.File, logger *log.Logger) error {
	if verbose(cfg) {
		logger.Printf("starting standalone run: %d users, hatch-rate %.2f/s, host %s", cfg.Users, cfg.HatchRate, cfg.Host)
	}
	agg := metrics.NewAggregator(cfg.StatusCodes)
	mf, err := buildMetricsFile(cfg)
	if err != nil {
		return err
	}
	if mf != nil {
		agg.SetMetricsFile(mf)
		defer mf.Close()
	}
	agg.Start()
	defer agg.Stop()

	th, err := buildThrottle(cfg)
	if err != nil {
		return err
	}
	dbg, err := buildDebugSink(cfg)
	if err != nil {
		return err
	}

	o := orchestrator.New(orchestrator.Config{
		Users:          cfg.Users,
		HatchRate:      cfg.HatchRate,
		RunTime:        cfg.RunTime,
		GlobalHost:     "",
		DefaultHost:    cfg.Host,
		NoResetMetrics: cfg.NoResetMetrics,
		OnlySummary:    cfg.OnlySummary,
		MetricsEnabled: !cfg.NoMetrics,
	}, wp, agg, buildHTTPOptions(cfg), th, dbg)

	done := make(chan struct{})
	go func() {
		o.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-interrupted:
		if verbose(cfg) {
			logger.Printf("interrupt received, draining")
		}
		o.Drain()
		<-done
	}
	return nil
}

func runManager(cfg *config.Config, wp *plan.WeightedPlan, interrupted <-chan struct{}, stdout *os.File, logger *log.Logger) error {
	fp := plan.ComputeFingerprint(wp.Scenarios)
	agg := metrics.NewAggregator(cfg.StatusCodes)
	agg.Start()
	defer agg.Stop()

	mgr := coordination.NewManager(wp, fp, cfg.ExpectWorkers, cfg.Users, cfg.HatchRate, cfg.Host, agg)
	addr := fmt.Sprintf("%s:%d", cfg.ManagerBindHost, cfg.ManagerBindPort)

	if verbose(cfg) {
		logger.Printf("manager listening on %s, expecting %d workers", addr, cfg.ExpectWorkers)
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- mgr.ListenAndServe(addr) }()

	var budget <-chan time.Time
	if cfg.RunTime > 0 {
		timer := time.NewTimer(cfg.RunTime)
		defer timer.Stop()
		budget = timer.C
	}

	select {
	case <-budget:
	case <-interrupted:
	case err := <-serveErr:
		return err
	}

	if verbose(cfg) {
		logger.Printf("draining and shutting down control plane")
	}
	mgr.Drain()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Shutdown(ctx); err != nil {
		return err
	}

	metrics.PrintFinal(stdout, agg.Snapshot(fp))
	return nil
}

func runWorker(cfg *config.Config, wp *plan.WeightedPlan, interrupted <-chan struct{}, stdout *os.File, logger *log.Logger) error {
	managerAddr := fmt.Sprintf("%s:%d", cfg.ManagerHost, cfg.ManagerPort)
	name := fmt.Sprintf("worker-%d-%d", os.Getpid(), time.Now().UnixNano())
	client := coordination.NewWorkerClient(managerAddr, name)

	slot, err := client.Register()
	if err != nil {
		return fmt.Errorf("registering with manager: %w", err)
	}
	if verbose(cfg) {
		logger.Printf("registered with manager %s as slot %d", managerAddr, slot)
	}

	localFP := plan.ComputeFingerprint(wp.Scenarios)
	resp, err := client.FetchPlan(localFP, cfg.NoHashCheck)
	if err != nil {
		return fmt.Errorf("fetching plan: %w", err)
	}

	agg := metrics.NewAggregator(cfg.StatusCodes)
	agg.Start()
	defer agg.Stop()

	th, err := buildThrottle(cfg)
	if err != nil {
		return err
	}
	dbg, err := buildDebugSink(cfg)
	if err != nil {
		return err
	}

	hatchRate := resp.HatchRate
	if hatchRate <= 0 {
		hatchRate = 1
	}
	o := orchestrator.New(orchestrator.Config{
		Users:          resp.YourShare(),
		HatchRate:      hatchRate,
		DefaultHost:    resp.Host,
		NoResetMetrics: cfg.NoResetMetrics,
		OnlySummary:    true,
		MetricsEnabled: false,
	}, wp, agg, buildHTTPOptions(cfg), th, dbg)

	done := make(chan struct{})
	go func() {
		o.Run(context.Background())
		close(done)
	}()

	// Pushes and shutdown polls happen on their own short cadence,
	// independent of the Orchestrator's 15s running-metrics print (which
	// is disabled for a Worker via OnlySummary anyway).
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			pushSnapshot(client, agg, localFP)
			return nil
		case <-interrupted:
			if verbose(cfg) {
				logger.Printf("interrupt received, draining")
			}
			o.Drain()
			<-done
			pushSnapshot(client, agg, localFP)
			return nil
		case <-ticker.C:
			pushErr := client.PushMetrics(agg.Snapshot(localFP))
			draining, pollErr := client.PollShutdown()
			// An unreachable Manager (already shut down, or a lost
			// connection) is treated the same as an explicit drain
			// signal: there is nobody left to report to.
			if draining || pushErr != nil || pollErr != nil {
				if verbose(cfg) {
					logger.Printf("draining: manager draining=%v push_err=%v poll_err=%v", draining, pushErr, pollErr)
				}
				o.Drain()
			}
		}
	}
}

func pushSnapshot(client *coordination.WorkerClient, agg *metrics.Aggregator, fp plan.Fingerprint) {
	_ = client.PushMetrics(agg.Snapshot(fp))
}
