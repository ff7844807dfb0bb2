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

// Package metrics is the single-consumer Aggregator: it merges Raw Request
// and Raw Step samples streaming from virtual users into per-endpoint
// summaries with percentile-ready histograms.
package metrics


// RequestSample is one completed HTTP call made by a virtual user.
type RequestSample struct {
	ElapsedMS    int64
	Method       string
	Name         string
	URL          string
	FinalURL     string
	Redirected   bool
	ResponseMS   int64
	StatusCode   int
	Success      bool
	Update       bool
	UserIndex    int
}

// StepSample is one completed Step invocation.
type StepSample struct {
	ElapsedMS  int64
	Scenario   int
	Step       int
	Name       string
	RuntimeMS  int64
	Success    bool
	UserIndex  int
}

// Sample is the sum type flowing through the Aggregator's ingestion
// channel: exactly one of Request/Step is non-nil.
type Sample struct {
	Request *RequestSample
	Step    *StepSample
}

func requestKey(method, name string) string { return method + " " + name }
