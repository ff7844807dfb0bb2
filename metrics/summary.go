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

// RequestSummary is the per-(method,name) accumulation of Raw Request
// Samples: a rounded response-time histogram plus min/max/sum/count and
// success/fail counters. Invariant: Success+Fail == Count.
type RequestSummary struct {
	Method      string
	Name        string
	Histogram   Histogram
	Min, Max    int64
	Sum         int64
	Count       int64
	Success     int64
	Fail        int64
	StatusCodes map[int]int64
}

func newRequestSummary(method, name string) *RequestSummary {
	return &RequestSummary{Method: method, Name: name, Histogram: Histogram{}}
}

func (s *RequestSummary) record(sample *RequestSample, trackStatus bool) {
	ms := sample.ResponseMS
	if s.Min == 0 || ms < s.Min {
		s.Min = ms
	}
	if ms > s.Max {
		s.Max = ms
	}
	s.Sum += ms
	s.Count++
	if sample.Success {
		s.Success++
	} else {
		s.Fail++
	}
	s.Histogram.add(ms)
	if trackStatus {
		if s.StatusCodes == nil {
			s.StatusCodes = map[int]int64{}
		}
		s.StatusCodes[sample.StatusCode]++
	}
}

// applyUpdate reclassifies an already-recorded sample's success/fail
// counter without inserting a new histogram entry, per spec.md §4.5.
func (s *RequestSummary) applyUpdate(sample *RequestSample) {
	if sample.Success {
		s.Fail--
		s.Success++
	} else {
		s.Success--
		s.Fail++
	}
}

func (s *RequestSummary) merge(o *RequestSummary) {
	if s.Min == 0 || (o.Min != 0 && o.Min < s.Min) {
		s.Min = o.Min
	}
	if o.Max > s.Max {
		s.Max = o.Max
	}
	s.Sum += o.Sum
	s.Count += o.Count
	s.Success += o.Success
	s.Fail += o.Fail
	s.Histogram = mergeHistograms(s.Histogram, o.Histogram)
	if o.StatusCodes != nil {
		if s.StatusCodes == nil {
			s.StatusCodes = map[int]int64{}
		}
		for code, n := range o.StatusCodes {
			s.StatusCodes[code] += n
		}
	}
}

// StepSummary mirrors RequestSummary for step run-times, keyed by
// (scenario index, step index).
type StepSummary struct {
	Scenario, Step int
	Name           string
	Histogram      Histogram
	Min, Max       int64
	Sum            int64
	Count          int64
	Success        int64
	Fail           int64
}

func newStepSummary(scenario, step int, name string) *StepSummary {
	return &StepSummary{Scenario: scenario, Step: step, Name: name, Histogram: Histogram{}}
}

func (s *StepSummary) record(sample *StepSample) {
	ms := sample.RuntimeMS
	if s.Min == 0 || ms < s.Min {
		s.Min = ms
	}
	if ms > s.Max {
		s.Max = ms
	}
	s.Sum += ms
	s.Count++
	if sample.Success {
		s.Success++
	} else {
		s.Fail++
	}
	s.Histogram.add(ms)
}

func (s *StepSummary) merge(o *StepSummary) {
	if s.Min == 0 || (o.Min != 0 && o.Min < s.Min) {
		s.Min = o.Min
	}
	if o.Max > s.Max {
		s.Max = o.Max
	}
	s.Sum += o.Sum
	s.Count += o.Count
	s.Success += o.Success
	s.Fail += o.Fail
	s.Histogram = mergeHistograms(s.Histogram, o.Histogram)
}

// PercentileRow is one computed percentile table row for printing.
type PercentileRow struct {
	P50, P75, P98, P99, P999, P9999 int64
}

func computePercentiles(h Histogram, min, max int64) PercentileRow {
	vals := make([]int64, len(Percentiles))
	for i, p := range Percentiles {
		vals[i] = percentile(h, p, min, max)
	}
	return PercentileRow{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}
}
