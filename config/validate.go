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

import "net/url"

// Validate enforces the Manager/Worker/StandAlone option matrix and
// per-field constraints, all at validation time rather than at run-time.
func (c *Config) Validate() error {
	mode, err := c.Mode()
	if err != nil {
		return err
	}

	if c.List || c.Version {
		return nil
	}

	if c.Host != "" {
		if _, err := url.ParseRequestURI(c.Host); err != nil {
			return &ValidationError{Kind: KindInvalidHost, Option: "host", Value: c.Host, Detail: "failed URL parsing", Err: err}
		}
	}

	switch mode {
	case Worker:
		if c.Host != "" {
			return forbidden("host", mode)
		}
		if c.Users != 0 {
			return forbidden("users", mode)
		}
		if c.HatchRate != 0 {
			return forbidden("hatch-rate", mode)
		}
		if c.RunTime != 0 {
			return forbidden("run-time", mode)
		}
		if c.ExpectWorkers != 0 {
			return forbidden("expect-workers", mode)
		}
		if c.NoHashCheck {
			return forbidden("no-hash-check", mode)
		}
		if c.MetricsFile != "" {
			return forbidden("metrics-file", mode)
		}
		if c.ManagerHost == "" {
			c.ManagerHost = "127.0.0.1"
		}
		if c.ManagerPort == 0 {
			c.ManagerPort = 5115
		}

	case Manager:
		if c.Users == 0 {
			return required("users", mode)
		}
		if c.HatchRate == 0 {
			return required("hatch-rate", mode)
		}
		if c.ExpectWorkers == 0 {
			return required("expect-workers", mode)
		}
		if c.ExpectWorkers < 1 || c.ExpectWorkers > c.Users {
			return &ValidationError{Kind: KindInvalidOption, Option: "expect-workers", Detail: "must satisfy 1 <= expect_workers <= users"}
		}
		if c.ThrottleRequests != 0 {
			return forbidden("throttle-requests", mode)
		}
		if c.DebugFile != "" {
			return forbidden("debug-file", mode)
		}
		if c.ManagerBindHost == "" {
			c.ManagerBindHost = "0.0.0.0"
		}
		if c.ManagerBindPort == 0 {
			c.ManagerBindPort = 5115
		}

	case StandAlone:
		if c.Users == 0 {
			return required("users", mode)
		}
		if c.HatchRate == 0 {
			return required("hatch-rate", mode)
		}
		if c.ExpectWorkers != 0 {
			return forbidden("expect-workers", mode)
		}
		if c.NoHashCheck {
			return forbidden("no-hash-check", mode)
		}
	}

	if c.Users < 0 {
		return &ValidationError{Kind: KindInvalidOption, Option: "users", Detail: "must be >= 0"}
	}
	if c.HatchRate < 0 {
		return &ValidationError{Kind: KindInvalidOption, Option: "hatch-rate", Detail: "must be > 0"}
	}
	if c.ThrottleRequests < 0 {
		return &ValidationError{Kind: KindInvalidOption, Option: "throttle-requests", Detail: "must be >= 0"}
	}

	switch c.MetricsFormat {
	case "json", "csv", "raw":
	default:
		return &ValidationError{Kind: KindInvalidOption, Option: "metrics-format", Value: c.MetricsFormat, Detail: "must be one of json, csv, raw"}
	}
	switch c.DebugFormat {
	case "json", "raw":
	default:
		return &ValidationError{Kind: KindInvalidOption, Option: "debug-format", Value: c.DebugFormat, Detail: "must be one of json, raw"}
	}

	return nil
}

func required(option string, mode Mode) error {
	return &ValidationError{Kind: KindInvalidOption, Option: option, Detail: option + " is required in " + mode.String() + " mode"}
}

func forbidden(option string, mode Mode) error {
	return &ValidationError{Kind: KindInvalidOption, Option: option, Detail: option + " is forbidden in " + mode.String() + " mode"}
}
