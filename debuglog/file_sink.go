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

package debuglog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// fileSink is a buffered, append-only line sink (JSON lines, or Go %+v
// lines for FormatRaw). Grounded directly on
// internal/sinks/sbatch_file_sink.go: a bufio.Writer over an append-mode
// *os.File, guarded by a mutex, flushed periodically and on the empty
// sentinel write.
type fileSink struct {
	mu        sync.Mutex
	f         *os.File
	w         *bufio.Writer
	format    Format
	lastFlush time.Time
}

func newFileSink(path string, format Format) (*fileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
	}
	return &fileSink{f: f, w: bufio.NewWriterSize(f, 1<<20), format: format, lastFlush: time.Now()}, nil
}

func (s *fileSink) Write(record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record == nil {
		_ = s.w.Flush()
		s.lastFlush = time.Now()
		return
	}
	if s.format == FormatRaw {
		fmt.Fprintf(s.w, "%+v\n", record)
	} else {
		enc := json.NewEncoder(s.w)
		if err := enc.Encode(record); err != nil {
			_ = s.w.Flush()
			_ = enc.Encode(record)
		}
	}
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		_ = s.w.Flush()
		s.lastFlush = time.Now()
	}
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}
