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

// Package telemetry tracks the engine's request counters and exposes
// them as both a plain-text summary and, optionally, Prometheus
// metrics — the same split the churn package draws between its
// atomic counters and its Prometheus registration.
package telemetry

import (
	"sync"
	"sync/atomic"

	"nuster-engine/pkg/arena"
)

// Stats implements engine.Stats: four global atomic counters plus a
// per-rule-name breakdown, matching the original stats renderer's
// practice of reporting both global and per-proxy/rule totals.
type Stats struct {
	arena *arena.Arena

	reqTotal atomic.Int64
	reqHit   atomic.Int64
	reqFetch atomic.Int64
	reqAbort atomic.Int64

	perRule sync.Map // map[string]*ruleCounters
}

type ruleCounters struct {
	total atomic.Int64
	hit   atomic.Int64
	fetch atomic.Int64
}

// New builds a Stats handle over a. a may be nil for tests that don't
// need used-memory reporting.
func New(a *arena.Arena) *Stats {
	return &Stats{arena: a}
}

func (s *Stats) IncReqTotal() { s.reqTotal.Add(1) }
func (s *Stats) IncReqHit()   { s.reqHit.Add(1) }
func (s *Stats) IncReqFetch() { s.reqFetch.Add(1) }
func (s *Stats) IncReqAbort() { s.reqAbort.Add(1) }

// ObserveRule bumps the named rule's counters alongside the globals,
// recording which outcome occurred for that specific rule. hit and
// fetch are mutually exclusive per call.
func (s *Stats) ObserveRule(name string, hit bool) {
	if name == "" {
		return
	}
	v, _ := s.perRule.LoadOrStore(name, &ruleCounters{})
	rc := v.(*ruleCounters)
	rc.total.Add(1)
	if hit {
		rc.hit.Add(1)
	} else {
		rc.fetch.Add(1)
	}
}

// Snapshot is a point-in-time copy of the global counters plus the
// per-rule breakdown, safe to render without holding any locks.
type Snapshot struct {
	UsedMem  int64
	Capacity int64
	ReqTotal int64
	ReqHit   int64
	ReqFetch int64
	ReqAbort int64
	Rules    map[string]RuleSnapshot
}

// RuleSnapshot is one rule's slice of the Snapshot.
type RuleSnapshot struct {
	Total int64
	Hit   int64
	Fetch int64
}

// Snapshot takes a consistent-enough read of every counter for
// rendering; individual fields may be a tick stale relative to each
// other under concurrent load, which is fine for a stats endpoint.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		ReqTotal: s.reqTotal.Load(),
		ReqHit:   s.reqHit.Load(),
		ReqFetch: s.reqFetch.Load(),
		ReqAbort: s.reqAbort.Load(),
		Rules:    make(map[string]RuleSnapshot),
	}
	if s.arena != nil {
		snap.UsedMem = s.arena.UsedBytes()
		snap.Capacity = s.arena.Capacity()
	}
	s.perRule.Range(func(k, v any) bool {
		rc := v.(*ruleCounters)
		snap.Rules[k.(string)] = RuleSnapshot{
			Total: rc.total.Load(),
			Hit:   rc.hit.Load(),
			Fetch: rc.fetch.Load(),
		}
		return true
	})
	return snap
}
