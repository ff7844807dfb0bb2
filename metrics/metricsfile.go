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

package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// FileFormat selects the on-disk encoding of a metrics log file.
type FileFormat string

const (
	FormatJSON FileFormat = "json"
	FormatCSV  FileFormat = "csv"
	FormatRaw  FileFormat = "raw"
)

// FileSink appends one record per Raw Request Sample to a metrics log
// file, newline-delimited, per the chosen FileFormat. Grounded on
// debuglog's fileSink: a buffered append-mode *os.File guarded by a
// mutex, flushed after every record and on Close.
type FileSink struct {
	mu         sync.Mutex
	f          *os.File
	w          *bufio.Writer
	format     FileFormat
	wroteHeader bool
}

// NewFileSink opens path in append mode and prepares it to receive
// RequestSamples in the given format.
func NewFileSink(path string, format FileFormat) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, w: bufio.NewWriterSize(f, 1<<20), format: format}, nil
}

// Write appends one record for r, formatted per s.format.
func (s *FileSink) Write(r RequestSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case FormatCSV:
		if !s.wroteHeader {
			if _, err := s.w.WriteString("elapsed,method,name,url,final_url,redirected,response_time,status_code,success,update,user\n"); err != nil {
				return err
			}
			s.wroteHeader = true
		}
		line := fmt.Sprintf("%d,%s,%s,%s,%s,%t,%d,%d,%t,%t,%d\n",
			r.ElapsedMS,
			strconv.Quote(r.Method),
			strconv.Quote(r.Name),
			strconv.Quote(r.URL),
			strconv.Quote(r.FinalURL),
			r.Redirected,
			r.ResponseMS,
			r.StatusCode,
			r.Success,
			r.Update,
			r.UserIndex,
		)
		if _, err := s.w.WriteString(line); err != nil {
			return err
		}
	case FormatRaw:
		if _, err := fmt.Fprintf(s.w, "%+v\n", r); err != nil {
			return err
		}
	default: // FormatJSON
		if err := json.NewEncoder(s.w).Encode(r); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}
