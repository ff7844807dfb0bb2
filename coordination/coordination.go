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

// Package coordination is the Manager/Worker HTTP control plane: a Manager
// accepts worker registrations, broadcasts the Weighted Plan, absorbs
// worker metric snapshots, and tells workers to drain; a Worker connects
// to one Manager, validates the plan's Fingerprint, and pushes its own
// snapshots back.
package coordination

import (
	"sync"

	"surge/plan"
)

// RegisterRequest is what a Worker posts to /surge/register.
type RegisterRequest struct {
	Name string `json:"name"`
}

// RegisterResponse tells a Worker its assigned slot.
type RegisterResponse struct {
	Slot int `json:"slot"`
}

// PlanResponse is served by GET /surge/plan. It carries only the
// Fingerprint and the weighted-scenario allocation sequence, not the full
// plan.WeightedPlan: Step.Run callables are Go closures compiled into the
// Worker's own binary, so a Worker validates against a plan it already
// holds rather than executing one deserialized from JSON.
type PlanResponse struct {
	WeightedScenarios []int   `json:"weighted_scenarios"`
	Fingerprint       uint64  `json:"fingerprint"`
	TotalSlots        int     `json:"total_slots"`
	YourSlot          int     `json:"your_slot"`
	TotalUsers        int     `json:"total_users"`
	HatchRate         float64 `json:"hatch_rate"`
	Host              string  `json:"host"`
}

// NewPlanResponse builds the wire-safe projection of wp for slot assigned
// to a particular Worker. totalUsers, hatchRate and host are the Manager's
// own configured values, which a Worker has no CLI flags for (all three
// are forbidden on --worker) and must inherit from the Manager instead.
func NewPlanResponse(wp *plan.WeightedPlan, fp plan.Fingerprint, totalSlots, slot, totalUsers int, hatchRate float64, host string) PlanResponse {
	return PlanResponse{
		WeightedScenarios: append([]int(nil), wp.WeightedScenarios...),
		Fingerprint:       uint64(fp),
		TotalSlots:        totalSlots,
		YourSlot:          slot,
		TotalUsers:        totalUsers,
		HatchRate:         hatchRate,
		Host:              host,
	}
}

// YourShare divides TotalUsers across TotalSlots, giving the first
// (TotalUsers % TotalSlots) slots one extra user so the split is exact.
func (p PlanResponse) YourShare() int {
	if p.TotalSlots <= 0 {
		return 0
	}
	share := p.TotalUsers / p.TotalSlots
	if p.YourSlot < p.TotalUsers%p.TotalSlots {
		share++
	}
	return share
}

// SlotAssigner hands each registering Worker one of a fixed number of
// slots, first-come-first-served, and remembers the mapping so a
// reconnecting Worker gets its original slot back rather than claiming a
// second one and leaving its old slot's share of the weighted user
// sequence unassigned.
type SlotAssigner struct {
	mu     sync.Mutex
	byName map[string]int
	taken  []bool
}

// NewSlotAssigner builds an assigner over total available slots.
func NewSlotAssigner(total int) *SlotAssigner {
	return &SlotAssigner{
		byName: map[string]int{},
		taken:  make([]bool, total),
	}
}

// Assign returns the slot workerName is bound to: the lowest-numbered
// free slot on first registration, the same slot on every later call for
// that name. Guarantees a bijection between distinct names and slots (up
// to total), unlike hashing runtime-chosen names onto a fixed node set,
// which can map two different names onto the same slot and leave another
// slot never assigned.
func (a *SlotAssigner) Assign(workerName string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot, ok := a.byName[workerName]; ok {
		return slot
	}
	for i, busy := range a.taken {
		if !busy {
			a.taken[i] = true
			a.byName[workerName] = i
			return i
		}
	}
	return 0
}
