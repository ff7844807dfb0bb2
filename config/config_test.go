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

package config

import (
	"bytes"
	"errors"
	"flag"
	"testing"
)

func TestParseStandAloneMinimal(t *testing.T) {
	cfg, err := Parse([]string{"-host", "http://example.com", "-users", "5", "-hatch-rate", "2"}, Defaults{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Users != 5 || cfg.HatchRate != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	mode, err := cfg.Mode()
	if err != nil || mode != StandAlone {
		t.Fatalf("mode = %v, %v, want StandAlone", mode, err)
	}
}

func TestParseCLIErrorReturnsFlagErrHelp(t *testing.T) {
	_, err := Parse([]string{"-help"}, Defaults{}, &bytes.Buffer{})
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
}

func TestParseUnknownFlagIsParseError(t *testing.T) {
	_, err := Parse([]string{"-nonexistent"}, Defaults{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Fatal("unknown-flag errors should come from the flag package, not ValidationError")
	}
}

func TestValidateWorkerForbidsStandAloneOnlyOptions(t *testing.T) {
	cfg := &Config{WorkerMode: true, Host: "http://example.com", MetricsFormat: "json", DebugFormat: "json"}
	err := cfg.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Option != "host" {
		t.Fatalf("expected host-forbidden ValidationError, got %v", err)
	}
}

func TestValidateManagerRequiresExpectWorkersInRange(t *testing.T) {
	cfg := &Config{ManagerMode: true, Users: 10, HatchRate: 1, ExpectWorkers: 20, MetricsFormat: "json", DebugFormat: "json"}
	err := cfg.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Option != "expect-workers" {
		t.Fatalf("expected expect-workers range error, got %v", err)
	}
}

func TestValidateStandAloneRequiresUsersAndHatchRate(t *testing.T) {
	cfg := &Config{MetricsFormat: "json", DebugFormat: "json"}
	err := cfg.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Option != "users" {
		t.Fatalf("expected users-required error, got %v", err)
	}
}

func TestValidateRejectsBadHost(t *testing.T) {
	cfg := &Config{Users: 1, HatchRate: 1, Host: "::not a url::", MetricsFormat: "json", DebugFormat: "json"}
	err := cfg.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Kind != KindInvalidHost {
		t.Fatalf("expected InvalidHost error, got %v", err)
	}
}

func TestValidateRejectsBadMetricsFormat(t *testing.T) {
	cfg := &Config{Users: 1, HatchRate: 1, MetricsFormat: "yaml", DebugFormat: "json"}
	err := cfg.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Option != "metrics-format" {
		t.Fatalf("expected metrics-format error, got %v", err)
	}
}

func TestDefaultsAppliedOnlyWhenFlagNotPassed(t *testing.T) {
	host := "http://default.example"
	users := 7
	cfg, err := Parse([]string{"-hatch-rate", "1"}, Defaults{Host: &host, Users: &users}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Host != host || cfg.Users != users {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	cfg2, err := Parse([]string{"-host", "http://explicit.example", "-users", "3", "-hatch-rate", "1"}, Defaults{Host: &host, Users: &users}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg2.Host != "http://explicit.example" || cfg2.Users != 3 {
		t.Fatalf("explicit flag should override default: %+v", cfg2)
	}
}

func TestValidateDefaultsRejectsManagerAndWorkerTogether(t *testing.T) {
	yes := true
	_, err := Parse([]string{"-hatch-rate", "1", "-users", "1"}, Defaults{Manager: &yes, Worker: &yes}, &bytes.Buffer{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for conflicting defaults, got %v", err)
	}
}

func TestListSkipsRequiredFieldValidation(t *testing.T) {
	cfg, err := Parse([]string{"-list"}, Defaults{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.List {
		t.Fatal("expected List to be true")
	}
}
