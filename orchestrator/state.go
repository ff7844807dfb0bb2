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

// Package orchestrator drives one run's lifecycle: hatching virtual users
// at a configured rate, holding steady, draining on a deadline or signal,
// and reporting final metrics.
package orchestrator

import "sync/atomic"

// State is the coarse-grained run state, advanced monotonically.
type State int32

const (
	Undefined State = iota
	Validated
	Hatching
	Steady
	Draining
	Reporting
)

func (s State) String() string {
	switch s {
	case Undefined:
		return "Undefined"
	case Validated:
		return "Validated"
	case Hatching:
		return "Hatching"
	case Steady:
		return "Steady"
	case Draining:
		return "Draining"
	case Reporting:
		return "Reporting"
	default:
		return "Unknown"
	}
}

type stateBox struct{ v atomic.Int32 }

func (b *stateBox) Load() State      { return State(b.v.Load()) }
func (b *stateBox) Store(s State)    { b.v.Store(int32(s)) }
