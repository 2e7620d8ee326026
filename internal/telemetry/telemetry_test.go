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
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"nuster-engine/pkg/arena"
)

func TestStats_CountersAndSnapshot(t *testing.T) {
	a := arena.New(arena.Options{Size: 1 << 20, BlockSize: 4096, Lock: arena.LockMutex})
	s := New(a)

	s.IncReqTotal()
	s.IncReqTotal()
	s.IncReqHit()
	s.IncReqFetch()
	s.IncReqAbort()
	s.ObserveRule("static", true)
	s.ObserveRule("static", false)
	s.ObserveRule("api", false)

	snap := s.Snapshot()
	if snap.ReqTotal != 2 || snap.ReqHit != 1 || snap.ReqFetch != 1 || snap.ReqAbort != 1 {
		t.Fatalf("unexpected global counters: %+v", snap)
	}
	if snap.Rules["static"].Total != 2 || snap.Rules["static"].Hit != 1 || snap.Rules["static"].Fetch != 1 {
		t.Fatalf("unexpected static rule counters: %+v", snap.Rules["static"])
	}
	if snap.Rules["api"].Fetch != 1 {
		t.Fatalf("unexpected api rule counters: %+v", snap.Rules["api"])
	}
	if snap.Capacity <= 0 {
		t.Fatal("expected nonzero arena capacity")
	}
}

func TestRender_IncludesGlobalsAndRules(t *testing.T) {
	snap := Snapshot{
		ReqTotal: 10, ReqHit: 7, ReqFetch: 3,
		Rules: map[string]RuleSnapshot{
			"static": {Total: 10, Hit: 7, Fetch: 3},
		},
	}
	var buf strings.Builder
	if err := Render(&buf, snap, true); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"req_total: 10", "req_hit: 7", "persistence: enabled", "rule.static.total: 10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_PersistenceDisabled(t *testing.T) {
	var buf strings.Builder
	if err := Render(&buf, Snapshot{}, false); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "persistence: disabled") {
		t.Fatal("expected disabled persistence line")
	}
}

func TestPromCollector_RegistersAndGathers(t *testing.T) {
	a := arena.New(arena.Options{Size: 1 << 20, BlockSize: 4096, Lock: arena.LockMutex})
	s := New(a)
	s.IncReqTotal()
	s.ObserveRule("r", true)

	reg := prometheus.NewRegistry()
	if err := reg.Register(NewPromCollector(s, true)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var sawReqTotal bool
	for _, fam := range families {
		if fam.GetName() == "nuster_req_total" {
			sawReqTotal = true
		}
	}
	if !sawReqTotal {
		t.Fatal("expected nuster_req_total metric family in gathered output")
	}
}
