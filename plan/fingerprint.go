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

package plan

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a 64-bit hash identifying a specific load-test definition.
// It is a pure function of the ordered scenario/step definitions and is
// stable across processes, letting a Worker confirm it was handed the same
// plan a Manager built.
type Fingerprint uint64

// ComputeFingerprint hashes the ordered scenario/step definitions. Only the
// fields that affect planning and user-visible behavior are included; the
// Run callables are opaque and cannot be hashed, so two plans that differ
// only in callable identity still collide (by design: the wire protocol
// ships only the fingerprint and allocation sequence, never the callables).
func ComputeFingerprint(scenarios []Scenario) Fingerprint {
	d := xxhash.New()
	write := func(s string) { _, _ = d.WriteString(s) }

	for _, sc := range scenarios {
		write("scenario\x00")
		write(sc.Name)
		write("\x00")
		write(sc.Host)
		write("\x00")
		write(strconv.FormatInt(sc.MinWait.Nanoseconds(), 10))
		write("\x00")
		write(strconv.FormatInt(sc.MaxWait.Nanoseconds(), 10))
		write("\x00")
		write(strconv.Itoa(sc.Weight))
		write("\x00")
		for _, st := range sc.Steps {
			write("step\x00")
			write(st.Name)
			write("\x00")
			write(strconv.Itoa(st.Weight))
			write("\x00")
			write(strconv.Itoa(st.Sequence))
			write("\x00")
			write(strconv.FormatBool(st.OnStart))
			write("\x00")
			write(strconv.FormatBool(st.OnStop))
			write("\x00")
		}
	}
	return Fingerprint(d.Sum64())
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}
