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

import "surge/metrics"

// Sample wraps a recorded Raw Request Sample, letting Step code mutate its
// success classification post-hoc and re-forward the correction to the
// Aggregator (spec.md §4.5).
type Sample struct {
	user   *User
	record metrics.RequestSample
}

// Success reports the current success classification.
func (s *Sample) Success() bool { return s.record.Success }

// StatusCode reports the response's HTTP status code (0 if the request
// itself failed before a response was received).
func (s *Sample) StatusCode() int { return s.record.StatusCode }

// SetSuccess reclassifies the sample and, only if the classification
// actually changes, re-forwards it to the Aggregator with Update=true so
// the already-recorded histogram entry is left alone and just the
// success/fail counters move. Calling SetSuccess with the value the
// sample already holds — including a second call that repeats the first
// — is a no-op, matching goose's "only adjust when the success flag
// changed" behavior and keeping success+fail == count.
func (s *Sample) SetSuccess(ok bool) {
	if ok == s.record.Success {
		return
	}
	s.record.Success = ok
	update := s.record
	update.Update = true
	s.user.forwardRequest(update)
}

func (u *User) forwardRequest(r metrics.RequestSample) {
	if u.ingest == nil {
		return
	}
	u.ingest <- metrics.Sample{Request: &r}
}
