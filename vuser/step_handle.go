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

package vuser

import (
	"context"
	"net/http"
	"time"

	"surge/httpclient"
	"surge/metrics"
)

// RequestBuilder constructs the request a Step wants to send, against the
// user's current session (so it sees any sticky-redirect rebasing).
type RequestBuilder func(ctx context.Context, session *httpclient.Session) (*http.Request, error)

// StepHandle is the concrete type behind plan.StepContext: the handle a
// Step's Run callable receives. It satisfies plan.StepContext's empty
// marker interface by virtue of being any type at all; callers type-assert
// it back to *vuser.StepHandle to reach Get/Send.
type StepHandle struct {
	ctx  context.Context
	user *User
}

// UserIndex returns the owning virtual user's allocation index.
func (h *StepHandle) UserIndex() int { return h.user.Index }

// Context returns the run's cancellation context, for steps that need to
// pass it to their own blocking calls.
func (h *StepHandle) Context() context.Context { return h.ctx }

// Get issues a GET request for path against the session's current base
// URL and returns the recorded Sample alongside the raw response.
func (h *StepHandle) Get(path string) (*Sample, *http.Response, error) {
	return h.Send(func(ctx context.Context, s *httpclient.Session) (*http.Request, error) {
		return s.Get(ctx, path)
	}, path)
}

// Send executes the five-step request contract of spec.md §4.2: throttle
// acquire, execute with timing, build a Raw Request Sample tagged
// success=(2xx), forward it to the Aggregator, then return it with the
// response.
func (h *StepHandle) Send(build RequestBuilder, name string) (*Sample, *http.Response, error) {
	u := h.user
	if u.throttle != nil {
		if err := u.throttle.Acquire(h.ctx); err != nil {
			return nil, nil, err
		}
	}

	req, err := build(h.ctx, u.session)
	if err != nil {
		return nil, nil, err
	}
	if name == "" {
		name = req.URL.Path
	}
	method := req.Method

	start := time.Now()
	resp, err := u.session.Do(req)
	elapsed := time.Since(start)

	record := metrics.RequestSample{
		ElapsedMS:  start.UnixMilli(),
		Method:     method,
		Name:       name,
		URL:        req.URL.String(),
		ResponseMS: elapsed.Milliseconds(),
		UserIndex:  u.Index,
	}
	if err != nil {
		record.Success = false
		u.forwardRequest(record)
		if u.debug != nil {
			u.debug.Write(map[string]any{"method": method, "name": name, "error": err.Error()})
		}
		return &Sample{user: u, record: record}, nil, err
	}

	record.StatusCode = resp.StatusCode
	record.FinalURL = resp.Request.URL.String()
	record.Redirected = record.FinalURL != record.URL
	record.Success = resp.StatusCode >= 200 && resp.StatusCode < 300

	u.forwardRequest(record)
	if u.debug != nil {
		u.debug.Write(map[string]any{"method": method, "name": name, "status": resp.StatusCode, "ms": record.ResponseMS})
	}

	return &Sample{user: u, record: record}, resp, nil
}
