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

package main

import (
	"time"

	"surge/plan"
	"surge/vuser"
)

// demoScenarios is the built-in scenario set this binary drives against
// --host. It stands in for a user-authored test file the way
// cmd/ratelimiter-api's rate-limiter demo stands in for a caller's own
// service: a browsing scenario that logs in once, then loops reading a
// home page and a product page, and logs out on teardown.
func demoScenarios() []plan.Scenario {
	return []plan.Scenario{
		{
			Name:    "browsing",
			Weight:  3,
			MinWait: 500 * time.Millisecond,
			MaxWait: 1500 * time.Millisecond,
			Steps: []plan.Step{
				{
					Name:    "login",
					Weight:  1,
					OnStart: true,
					Run: func(c plan.StepContext) plan.Outcome {
						h := c.(*vuser.StepHandle)
						_, _, err := h.Get("/login")
						if err != nil {
							return plan.Outcome{Kind: plan.OutcomeFailure, Reason: err.Error()}
						}
						return plan.Outcome{Kind: plan.OutcomeOK}
					},
				},
				{
					Name:   "home",
					Weight: 3,
					Run: func(c plan.StepContext) plan.Outcome {
						h := c.(*vuser.StepHandle)
						_, _, err := h.Get("/")
						if err != nil {
							return plan.Outcome{Kind: plan.OutcomeFailure, Reason: err.Error()}
						}
						return plan.Outcome{Kind: plan.OutcomeOK}
					},
				},
				{
					Name:   "product",
					Weight: 2,
					Run: func(c plan.StepContext) plan.Outcome {
						h := c.(*vuser.StepHandle)
						_, _, err := h.Get("/product")
						if err != nil {
							return plan.Outcome{Kind: plan.OutcomeFailure, Reason: err.Error()}
						}
						return plan.Outcome{Kind: plan.OutcomeOK}
					},
				},
				{
					Name:   "logout",
					Weight: 1,
					OnStop: true,
					Run: func(c plan.StepContext) plan.Outcome {
						h := c.(*vuser.StepHandle)
						_, _, err := h.Get("/logout")
						if err != nil {
							return plan.Outcome{Kind: plan.OutcomeFailure, Reason: err.Error()}
						}
						return plan.Outcome{Kind: plan.OutcomeOK}
					},
				},
			},
		},
		{
			Name:    "health_check",
			Weight:  1,
			MinWait: 2 * time.Second,
			MaxWait: 4 * time.Second,
			Steps: []plan.Step{
				{
					Name:   "ping",
					Weight: 1,
					Run: func(c plan.StepContext) plan.Outcome {
						h := c.(*vuser.StepHandle)
						sample, _, err := h.Get("/healthz")
						if err != nil {
							return plan.Outcome{Kind: plan.OutcomeFailure, Reason: err.Error()}
						}
						if !sample.Success() {
							return plan.Outcome{Kind: plan.OutcomeFailure, Reason: "non-2xx health check"}
						}
						return plan.Outcome{Kind: plan.OutcomeOK}
					},
				},
			},
		},
	}
}
