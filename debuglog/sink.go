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

// Package debuglog is the per-request debug sink a virtual user can write
// every completed request to. Sinks are append-only and buffered; a
// sentinel empty write forces a flush, matching the behavior test rigs
// rely on to observe the tail of the log without waiting for a full
// buffer.
package debuglog

import (
	"strings"
)

// Sink is satisfied by every debug log backend: the file sink and the
// Redis-backed sink.
type Sink interface {
	// Write appends one record. A nil record is the flush sentinel.
	Write(record map[string]any)
	Close() error
}

// Format selects how a fileSink renders each record. A redisListSink
// always pushes JSON regardless of Format, since nothing downstream of a
// Redis list reads Go's %+v rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatRaw  Format = "raw"
)

// New selects a Sink implementation by the scheme of target: a bare path
// or file:// URL opens a buffered file sink rendering records as format,
// a redis:// URL opens a Redis-list-backed sink. Mirrors
// persistence.BuildPersister's adapter-by-selector-string shape.
func New(target string, format Format) (Sink, error) {
	switch {
	case strings.HasPrefix(target, "redis://"):
		return newRedisSink(target)
	case strings.HasPrefix(target, "file://"):
		return newFileSink(strings.TrimPrefix(target, "file://"), format)
	default:
		return newFileSink(target, format)
	}
}
