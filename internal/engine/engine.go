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

package engine

import (
	"nuster-engine/pkg/arena"
	"nuster-engine/pkg/datachain"
	"nuster-engine/pkg/dict"
)

// Store is the subset of dict.Dict's surface the engine depends on.
// Both *dict.Dict and *dict.ShardedDict satisfy it, so either can back
// an Engine. config.Build always wires a single *dict.Dict; there is no
// configuration option that selects the sharded store.
type Store interface {
	Get(hash uint64, key []byte) (*dict.Entry, bool)
	Set(hash uint64, key []byte, now, ttl int64) (*dict.Entry, error)
	CreateIfAbsent(hash uint64, key []byte, now, ttl int64) (*dict.Entry, bool, error)
	Invalidate(hash uint64, key []byte) bool
	InvalidateByRule(ruleUUID int) int
	ForEach(visit func(e *dict.Entry))
	Rehash(quota int)
	Cleanup(quota int, now int64) int
	Size() int64
	SetFromDisk(e *dict.Entry)
}

// Stats receives per-request counter bumps. A nil Stats on Engine is a
// valid no-op configuration for tests that don't care about telemetry.
type Stats interface {
	IncReqTotal()
	IncReqHit()
	IncReqFetch()
	IncReqAbort()
}

// Engine is the single handle constructed at startup and borrowed by
// every filter attachment, replacing the source's process-wide
// singletons (global.nuster.cache, nuster.*) with explicit
// dependency injection.
type Engine struct {
	Arena *arena.Arena
	Dict  Store
	Chain *datachain.Chain
	Rules []*Rule
	Stats Stats
}

// New builds an Engine over an already-constructed arena, dict store
// and data chain. Rules are appended with AddRule after construction so
// config parsing can fail per-rule without tearing down the whole
// engine.
func New(a *arena.Arena, store Store, chain *datachain.Chain) *Engine {
	return &Engine{Arena: a, Dict: store, Chain: chain}
}

// AddRule appends a configured rule in declared order; rule evaluation
// order during INIT follows this slice.
func (e *Engine) AddRule(r *Rule) {
	e.Rules = append(e.Rules, r)
}

// RuleByName returns the first rule with the given name, enabled or
// not, used
// by the PURGE handler to resolve a rule-name argument to a UUID.
func (e *Engine) RuleByName(name string) (*Rule, bool) {
	for _, r := range e.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// RuleByUUID looks up a rule by its unique instance id, used by
// housekeeping to decide an entry's disk mode without storing a
// pointer back to Rule on every dict.Entry.
func (e *Engine) RuleByUUID(uuid int) (*Rule, bool) {
	for _, r := range e.Rules {
		if r.UUID == uuid {
			return r, true
		}
	}
	return nil, false
}

func (e *Engine) bumpReqTotal() {
	if e.Stats != nil {
		e.Stats.IncReqTotal()
	}
}

func (e *Engine) bumpHit() {
	if e.Stats != nil {
		e.Stats.IncReqHit()
	}
}

func (e *Engine) bumpFetch() {
	if e.Stats != nil {
		e.Stats.IncReqFetch()
	}
}

func (e *Engine) bumpAbort() {
	if e.Stats != nil {
		e.Stats.IncReqAbort()
	}
}
