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

package dict

import (
	"strconv"

	"github.com/dgryski/go-rendezvous"
)

// ShardedDict fans a single fingerprint space out over N independent
// Dict instances, each with its own lock, so the dict critical section
// (§4.2's lock primitive) only ever contends within one shard. Shard
// assignment uses rendezvous (highest random weight) hashing over the
// fingerprint hash rather than a plain modulo, so growing the shard
// count later only reshuffles the minimal necessary fraction of keys
// instead of every key, the same property that motivates rendezvous
// hashing for any consistently-hashed pool.
type ShardedDict struct {
	shards []*Dict
	rv     *rendezvous.Rendezvous
}

// NewSharded builds a ShardedDict of n independent dicts, each built
// with opts (opts.Arena is shared; every shard draws from the same
// backing arena, since the arena — not any one dict — is what bounds
// total cache memory).
func NewSharded(n int, opts Options) *ShardedDict {
	if n < 1 {
		n = 1
	}
	nodes := make([]string, n)
	shards := make([]*Dict, n)
	for i := 0; i < n; i++ {
		nodes[i] = strconv.Itoa(i)
		shards[i] = New(opts)
	}
	sd := &ShardedDict{shards: shards}
	sd.rv = rendezvous.New(nodes, hashString)
	return sd
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func (sd *ShardedDict) shardFor(hash uint64) *Dict {
	idx, err := strconv.Atoi(sd.rv.Lookup(hash))
	if err != nil {
		idx = 0
	}
	return sd.shards[idx]
}

func (sd *ShardedDict) Get(hash uint64, key []byte) (*Entry, bool) {
	return sd.shardFor(hash).Get(hash, key)
}

func (sd *ShardedDict) Set(hash uint64, key []byte, now, ttl int64) (*Entry, error) {
	return sd.shardFor(hash).Set(hash, key, now, ttl)
}

func (sd *ShardedDict) CreateIfAbsent(hash uint64, key []byte, now, ttl int64) (*Entry, bool, error) {
	return sd.shardFor(hash).CreateIfAbsent(hash, key, now, ttl)
}

func (sd *ShardedDict) Invalidate(hash uint64, key []byte) bool {
	return sd.shardFor(hash).Invalidate(hash, key)
}

// InvalidateByRule fans out to every shard since a rule's entries may
// be spread across all of them.
func (sd *ShardedDict) InvalidateByRule(ruleUUID int) int {
	total := 0
	for _, s := range sd.shards {
		total += s.InvalidateByRule(ruleUUID)
	}
	return total
}

// Rehash and Cleanup give each shard the full quota per tick, so no
// shard starves and a tick does up to N times the scheduler's per-tick
// budget (spec.md's dict_cleaner option) across N shards.
func (sd *ShardedDict) Rehash(quotaPerShard int) {
	for _, s := range sd.shards {
		s.Rehash(quotaPerShard)
	}
}

func (sd *ShardedDict) Cleanup(quotaPerShard int, now int64) int {
	total := 0
	for _, s := range sd.shards {
		total += s.Cleanup(quotaPerShard, now)
	}
	return total
}

func (sd *ShardedDict) Size() int64 {
	var total int64
	for _, s := range sd.shards {
		total += s.Size()
	}
	return total
}

// ForEach visits every live entry across all shards.
func (sd *ShardedDict) ForEach(visit func(e *Entry)) {
	for _, s := range sd.shards {
		s.ForEach(visit)
	}
}

// SetFromDisk routes a recovered entry to the shard its hash maps to.
func (sd *ShardedDict) SetFromDisk(e *Entry) {
	sd.shardFor(e.Hash).SetFromDisk(e)
}
