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

package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"surge/metrics"
	"surge/plan"
)

// Manager is the HTTP control plane a Manager-mode process runs. Grounded
// on internal/ratelimiter/api/server.go's RegisterRoutes/ListenAndServe
// shape: a thin *http.ServeMux wrapper over a handful of handlers.
type Manager struct {
	wp            *plan.WeightedPlan
	fingerprint   plan.Fingerprint
	expectWorkers int
	totalUsers    int
	hatchRate     float64
	host          string
	assigner      *SlotAssigner
	aggregator    *metrics.Aggregator

	mu       sync.Mutex
	slots    map[string]int
	nextSlot int
	draining bool
	server   *http.Server
}

// NewManager builds a Manager over a validated plan and the Aggregator it
// folds worker snapshots into. totalUsers is divided across expectWorkers
// when each Worker fetches its plan.
func NewManager(wp *plan.WeightedPlan, fp plan.Fingerprint, expectWorkers, totalUsers int, hatchRate float64, host string, agg *metrics.Aggregator) *Manager {
	return &Manager{
		wp:            wp,
		fingerprint:   fp,
		expectWorkers: expectWorkers,
		totalUsers:    totalUsers,
		hatchRate:     hatchRate,
		host:          host,
		assigner:      NewSlotAssigner(expectWorkers),
		aggregator:    agg,
		slots:         map[string]int{},
	}
}

// RegisterRoutes wires the control-plane endpoints onto mux.
func (m *Manager) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/surge/register", m.handleRegister)
	mux.HandleFunc("/surge/plan", m.handlePlan)
	mux.HandleFunc("/surge/metrics", m.handleMetrics)
	mux.HandleFunc("/surge/shutdown", m.handleShutdown)
}

func (m *Manager) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid register request", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	slot, ok := m.slots[req.Name]
	if !ok {
		slot = m.assigner.Assign(req.Name)
		m.slots[req.Name] = slot
	}
	m.mu.Unlock()

	writeJSON(w, RegisterResponse{Slot: slot})
}

func (m *Manager) handlePlan(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	m.mu.Lock()
	slot, ok := m.slots[name]
	m.mu.Unlock()
	if !ok {
		slot = m.assigner.Assign(name)
	}
	resp := NewPlanResponse(m.wp, m.fingerprint, m.expectWorkers, slot, m.totalUsers, m.hatchRate, m.host)
	writeJSON(w, resp)
}

func (m *Manager) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var snap metrics.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "invalid metrics snapshot", http.StatusBadRequest)
		return
	}
	m.aggregator.Merge(snap)
	w.WriteHeader(http.StatusNoContent)
}

func (m *Manager) handleShutdown(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	draining := m.draining
	m.mu.Unlock()
	if draining {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "drain")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Drain flips the manager into draining state; subsequent /surge/shutdown
// polls from workers report "drain".
func (m *Manager) Drain() {
	m.mu.Lock()
	m.draining = true
	m.mu.Unlock()
}

// Handler returns an http.Handler serving the control-plane routes,
// useful for embedding in a test server or a larger mux.
func (m *Manager) Handler() http.Handler {
	mux := http.NewServeMux()
	m.RegisterRoutes(mux)
	return mux
}

// ListenAndServe starts the control plane on addr and blocks until
// Shutdown is called or the listener fails. Mirrors the *http.Server
// embedded in cmd/ratelimiter-api/main.go, built here instead of left to
// http.ListenAndServe so Shutdown can later drain it gracefully.
func (m *Manager) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	m.RegisterRoutes(mux)
	m.mu.Lock()
	m.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	server := m.server
	m.mu.Unlock()
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the control-plane HTTP server, as
// cmd/ratelimiter-api/main.go does with its own httpServer.Shutdown.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	server := m.server
	m.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
