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

package telemetry

import (
	"fmt"
	"io"
	"sort"
)

// Render writes the plain-text stats summary spec.md's stats endpoint
// requires: global counters, persistence status, then three lines per
// rule (total, hit, fetch) in sorted name order so the output is
// diff-stable across ticks.
func Render(w io.Writer, snap Snapshot, diskEnabled bool) error {
	if _, err := fmt.Fprintf(w, "used_mem: %d\ncapacity: %d\n", snap.UsedMem, snap.Capacity); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "req_total: %d\nreq_hit: %d\nreq_fetch: %d\nreq_abort: %d\n",
		snap.ReqTotal, snap.ReqHit, snap.ReqFetch, snap.ReqAbort); err != nil {
		return err
	}
	persistState := "disabled"
	if diskEnabled {
		persistState = "enabled"
	}
	if _, err := fmt.Fprintf(w, "persistence: %s\n", persistState); err != nil {
		return err
	}

	names := make([]string, 0, len(snap.Rules))
	for name := range snap.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rc := snap.Rules[name]
		if _, err := fmt.Fprintf(w, "rule.%s.total: %d\nrule.%s.hit: %d\nrule.%s.fetch: %d\n",
			name, rc.Total, name, rc.Hit, name, rc.Fetch); err != nil {
			return err
		}
	}
	return nil
}
