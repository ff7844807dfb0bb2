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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"surge/metrics"
	"surge/plan"
)

// WorkerClient is the Worker side of the control plane: it registers with
// a Manager, fetches the plan for Fingerprint validation, and periodically
// pushes metric snapshots.
type WorkerClient struct {
	managerAddr string
	name        string
	client      *http.Client
}

// NewWorkerClient builds a client against a Manager listening on
// managerAddr (host:port), identifying itself as name.
func NewWorkerClient(managerAddr, name string) *WorkerClient {
	return &WorkerClient{
		managerAddr: managerAddr,
		name:        name,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WorkerClient) url(path string) string {
	return fmt.Sprintf("http://%s%s", c.managerAddr, path)
}

// Register posts this worker's name and returns its assigned slot.
func (c *WorkerClient) Register() (int, error) {
	body, err := json.Marshal(RegisterRequest{Name: c.name})
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Post(c.url("/surge/register"), "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var out RegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Slot, nil
}

// FetchPlan retrieves the wire-safe plan projection and, unless
// skipHashCheck is set, validates the Fingerprint against local.
func (c *WorkerClient) FetchPlan(local plan.Fingerprint, skipHashCheck bool) (PlanResponse, error) {
	u := c.url("/surge/plan") + "?name=" + url.QueryEscape(c.name)
	resp, err := c.client.Get(u)
	if err != nil {
		return PlanResponse{}, err
	}
	defer resp.Body.Close()
	var out PlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PlanResponse{}, err
	}
	if !skipHashCheck && out.Fingerprint != uint64(local) {
		return out, fmt.Errorf("coordination: fingerprint mismatch: manager=%d local=%d", out.Fingerprint, uint64(local))
	}
	return out, nil
}

// PushMetrics posts snap to the Manager's Aggregator.
func (c *WorkerClient) PushMetrics(snap metrics.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	resp, err := c.client.Post(c.url("/surge/metrics"), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("coordination: unexpected status %d pushing metrics", resp.StatusCode)
	}
	return nil
}

// PollShutdown reports whether the Manager has signalled a drain.
func (c *WorkerClient) PollShutdown() (bool, error) {
	resp, err := c.client.Get(c.url("/surge/shutdown"))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
