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

// Package config parses CLI flags into a validated Config, enforcing the
// StandAlone/Manager/Worker option matrix before any user is spawned.
package config

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// Mode selects which of the three mutually-exclusive run modes is active.
type Mode int

const (
	StandAlone Mode = iota
	Manager
	Worker
)

func (m Mode) String() string {
	switch m {
	case Manager:
		return "Manager"
	case Worker:
		return "Worker"
	default:
		return "StandAlone"
	}
}

// ErrorKind tags the surfaced error categories of spec.md §7.
type ErrorKind string

const (
	KindIo                ErrorKind = "Io"
	KindHttp              ErrorKind = "Http"
	KindFeatureNotEnabled ErrorKind = "FeatureNotEnabled"
	KindInvalidHost       ErrorKind = "InvalidHost"
	KindInvalidOption     ErrorKind = "InvalidOption"
	KindInvalidWaitTime   ErrorKind = "InvalidWaitTime"
	KindInvalidWeight     ErrorKind = "InvalidWeight"
	KindNoScenarios       ErrorKind = "NoScenarios"
)

// ValidationError is the typed error surfaced to the caller, carrying the
// offending option/value for diagnostics.
type ValidationError struct {
	Kind   ErrorKind
	Option string
	Value  string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("%s: %s=%s: %s", e.Kind, e.Option, e.Value, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Config is the fully-parsed, not-yet-validated set of CLI options.
type Config struct {
	Host      string
	Users     int
	HatchRate float64
	RunTime   time.Duration

	LogLevel int
	LogFile  string
	Verbose  int

	OnlySummary    bool
	NoResetMetrics bool
	NoMetrics      bool
	NoTaskMetrics  bool
	MetricsFile    string
	MetricsFormat  string

	DebugFile   string
	DebugFormat string

	StatusCodes      bool
	ThrottleRequests int
	StickyFollow     bool

	ManagerMode      bool
	ExpectWorkers    int
	NoHashCheck      bool
	ManagerBindHost  string
	ManagerBindPort  int
	WorkerMode       bool
	ManagerHost      string
	ManagerPort      int

	List    bool
	Version bool
}

// Defaults holds programmatically-settable defaults, overridden by any CLI
// flag actually passed. Mirrors original_source's GooseDefault enum.
type Defaults struct {
	Host            *string
	Users           *int
	HatchRate       *float64
	RunTime         *time.Duration
	LogFile         *string
	MetricsFile     *string
	MetricsFormat   *string
	DebugFile       *string
	DebugFormat     *string
	ManagerBindHost *string
	ManagerHost     *string
	Manager         *bool
	Worker          *bool
}

// Parse builds a Config from args (excluding the program name), applying
// defaults for anything not explicitly passed, and runs Validate. Returns
// (nil, err) wrapping flag.ErrHelp on --help, which callers should treat
// as exit code 0; any other parse error should exit 2.
func Parse(args []string, defaults Defaults, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("surge", flag.ContinueOnError)
	fs.SetOutput(output)

	cfg := &Config{}

	fs.StringVar(&cfg.Host, "host", "", "target host (e.g. http://example.com)")
	fs.IntVar(&cfg.Users, "users", 0, "number of virtual users")
	fs.Float64Var(&cfg.HatchRate, "hatch-rate", 0, "users spawned per second")
	fs.DurationVar(&cfg.RunTime, "run-time", 0, "stop after this long (0 = run until interrupted)")

	fs.IntVar(&cfg.LogLevel, "log-level", 0, "log verbosity level (an integer; a repeated flag keeps its last value)")
	fs.StringVar(&cfg.LogFile, "log-file", "", "write logs to this file instead of stderr")
	fs.IntVar(&cfg.Verbose, "verbose", 0, "verbosity count")

	fs.BoolVar(&cfg.OnlySummary, "only-summary", false, "suppress the 15s running-metrics print")
	fs.BoolVar(&cfg.NoResetMetrics, "no-reset-metrics", false, "keep hatch-ramp metrics in the final summary")
	fs.BoolVar(&cfg.NoMetrics, "no-metrics", false, "disable metrics collection entirely")
	fs.BoolVar(&cfg.NoTaskMetrics, "no-task-metrics", false, "disable step-level metrics collection")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "append raw request samples to this file")
	fs.StringVar(&cfg.MetricsFormat, "metrics-format", "json", "metrics file format: json, csv, raw")

	fs.StringVar(&cfg.DebugFile, "debug-file", "", "append per-request debug records to this file")
	fs.StringVar(&cfg.DebugFormat, "debug-format", "json", "debug file format: json, raw")

	fs.BoolVar(&cfg.StatusCodes, "status-codes", false, "track per-status-code counts on each request summary")
	fs.IntVar(&cfg.ThrottleRequests, "throttle-requests", 0, "cap requests/sec across all users (0 disables)")
	fs.BoolVar(&cfg.StickyFollow, "sticky-follow", false, "stick to a redirect's authority for subsequent requests")

	fs.BoolVar(&cfg.ManagerMode, "manager", false, "run as a Manager")
	fs.IntVar(&cfg.ExpectWorkers, "expect-workers", 0, "number of Workers a Manager waits for")
	fs.BoolVar(&cfg.NoHashCheck, "no-hash-check", false, "skip Fingerprint validation on a Worker")
	fs.StringVar(&cfg.ManagerBindHost, "manager-bind-host", "0.0.0.0", "address a Manager listens on")
	fs.IntVar(&cfg.ManagerBindPort, "manager-bind-port", 5115, "port a Manager listens on")
	fs.BoolVar(&cfg.WorkerMode, "worker", false, "run as a Worker")
	fs.StringVar(&cfg.ManagerHost, "manager-host", "127.0.0.1", "Manager address a Worker connects to")
	fs.IntVar(&cfg.ManagerPort, "manager-port", 5115, "Manager port a Worker connects to")

	fs.BoolVar(&cfg.List, "list", false, "print scenarios and steps, then exit 0")
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit 0")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	applyDefaults(fs, cfg, defaults)

	if err := validateDefaults(defaults); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults overwrites any flag not passed on the command line with the
// programmatic default, if one was supplied. fs.Visit only reports flags
// actually passed on the command line, so an explicit "-users 0" is
// correctly treated as "passed" and left alone.
func applyDefaults(fs *flag.FlagSet, cfg *Config, d Defaults) {
	passed := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { passed[f.Name] = true })

	if d.Host != nil && !passed["host"] {
		cfg.Host = *d.Host
	}
	if d.Users != nil && !passed["users"] {
		cfg.Users = *d.Users
	}
	if d.HatchRate != nil && !passed["hatch-rate"] {
		cfg.HatchRate = *d.HatchRate
	}
	if d.RunTime != nil && !passed["run-time"] {
		cfg.RunTime = *d.RunTime
	}
	if d.LogFile != nil && !passed["log-file"] {
		cfg.LogFile = *d.LogFile
	}
	if d.MetricsFile != nil && !passed["metrics-file"] {
		cfg.MetricsFile = *d.MetricsFile
	}
	if d.MetricsFormat != nil && !passed["metrics-format"] {
		cfg.MetricsFormat = *d.MetricsFormat
	}
	if d.DebugFile != nil && !passed["debug-file"] {
		cfg.DebugFile = *d.DebugFile
	}
	if d.DebugFormat != nil && !passed["debug-format"] {
		cfg.DebugFormat = *d.DebugFormat
	}
	if d.ManagerBindHost != nil && !passed["manager-bind-host"] {
		cfg.ManagerBindHost = *d.ManagerBindHost
	}
	if d.ManagerHost != nil && !passed["manager-host"] {
		cfg.ManagerHost = *d.ManagerHost
	}
	if d.Manager != nil && !passed["manager"] {
		cfg.ManagerMode = *d.Manager
	}
	if d.Worker != nil && !passed["worker"] {
		cfg.WorkerMode = *d.Worker
	}
}

// validateDefaults enforces the one rule that applies to defaults
// themselves, before CLI-level validation runs: Manager and Worker
// defaults are mutually exclusive (spec.md §6, "setting both... is an
// error").
func validateDefaults(d Defaults) error {
	if d.Manager != nil && d.Worker != nil && *d.Manager && *d.Worker {
		return &ValidationError{Kind: KindInvalidOption, Option: "Manager/Worker", Detail: "default Manager and Worker cannot both be set"}
	}
	return nil
}

// Mode reports which of the three mutually-exclusive modes cfg selects.
func (c *Config) Mode() (Mode, error) {
	switch {
	case c.ManagerMode && c.WorkerMode:
		return 0, &ValidationError{Kind: KindInvalidOption, Option: "manager/worker", Detail: "cannot set both --manager and --worker"}
	case c.ManagerMode:
		return Manager, nil
	case c.WorkerMode:
		return Worker, nil
	default:
		return StandAlone, nil
	}
}
